package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type CommandLineOptions struct {
	ConfigPath     string `short:"c" long:"config" default:"config.yaml" description:"configuration file"`
	Port           string `short:"p" long:"port" description:"serial port override (e.g. COM3 or /dev/ttyACM0)"`
	Mock           bool   `long:"mock" description:"use the simulated source instead of a serial port"`
	AverageSamples int    `long:"average-samples" default:"-1" description:"number of points to average (0 = disabled, overrides config)"`
	Verbose        bool   `short:"v" long:"verbose" description:"enable debug logging"`
}

func readCommandLineOptions() CommandLineOptions {
	opts := CommandLineOptions{}
	_, err := flags.Parse(&opts)

	switch errt := err.(type) {
	case *flags.Error:
		if errt.Type == flags.ErrHelp {
			os.Exit(0)
		}
	}

	if err != nil {
		logrus.WithError(err).Fatal("could not parse command line arguments")
	}

	return opts
}
