package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type CommandLineOptions struct {
	ConfigPath string `short:"c" long:"config" default:"config.yaml" description:"configuration file"`

	Input  string        `short:"i" long:"input" description:"CSV input file (- for stdin)"`
	SQLite string        `long:"sqlite" description:"SQLite database to read the series from"`
	Mock   time.Duration `long:"mock" description:"record the simulated source for this long instead of reading a file"`
	Output string        `short:"o" long:"output" description:"CSV output file (default stdout)"`

	MaxPoints int      `short:"n" long:"points" description:"output point budget (overrides config)"`
	Strategy  string   `long:"strategy" description:"reduction strategy: everynth, minmax or lttb"`
	NoGaps    bool     `long:"no-gaps" description:"do not interleave gap markers"`
	Quantile  float64  `long:"quantile" default:"-1" description:"delta quantile above which a step is a gap"`
	Dtypes    []string `long:"dtype" description:"allowed value type pattern (repeatable)"`

	Verbose bool `short:"v" long:"verbose" description:"enable debug logging"`
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
