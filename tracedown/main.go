package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/itohio/tracedown/pkg/config"
)

func main() {
	opts := readCommandLineOptions()
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	// Data goes to stdout
	logrus.SetOutput(os.Stderr)

	logrus.WithField("path", opts.ConfigPath).Debug("loading configuration file")
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logrus.WithError(err).Fatal("could not load configuration file")
	}
	opts.apply(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			logrus.WithError(err).Fatal("could not create output file")
		}
		defer f.Close()
		out = f
	}

	sum, err := run(ctx, opts, cfg, out)
	if err != nil {
		logrus.WithError(err).Fatal("downsampling failed")
	}

	logrus.WithFields(logrus.Fields{
		"name":     sum.Name,
		"dtype":    sum.Dtype,
		"input":    sum.Input,
		"output":   sum.Output,
		"nulls":    sum.Nulls,
		"strategy": cfg.Downsample.Strategy,
	}).Info("downsampled series")
}
