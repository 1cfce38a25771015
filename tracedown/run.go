package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itohio/tracedown/pkg/config"
	"github.com/itohio/tracedown/pkg/downsample"
	"github.com/itohio/tracedown/pkg/series"
	"github.com/itohio/tracedown/pkg/source"
)

var errNoInput = errors.New("no input: use -i, --sqlite, --mock or configure source.path")

// summary describes one downsampling run.
type summary struct {
	Name   string
	Dtype  string
	Input  int
	Output int
	Nulls  int // Gap markers plus nulls kept from the input
}

// apply overlays command line overrides on the loaded configuration.
func (o CommandLineOptions) apply(cfg *config.Config) {
	switch {
	case o.Input != "":
		cfg.Source.Kind, cfg.Source.Path = "csv", o.Input
	case o.SQLite != "":
		cfg.Source.Kind, cfg.Source.Path = "sqlite", o.SQLite
	case o.Mock > 0:
		cfg.Source.Kind = "mock"
	}
	if o.MaxPoints > 0 {
		cfg.Downsample.MaxPoints = o.MaxPoints
	}
	if o.Strategy != "" {
		cfg.Downsample.Strategy = o.Strategy
	}
	if o.NoGaps {
		interleave := false
		cfg.Downsample.InterleaveGaps = &interleave
	}
	if o.Quantile >= 0 {
		q := o.Quantile
		cfg.Downsample.GapQuantile = &q
	}
	if len(o.Dtypes) > 0 {
		cfg.Downsample.AllowedDtypes = o.Dtypes
	}
}

// run loads the configured series, downsamples it and writes it as CSV to out.
func run(ctx context.Context, opts CommandLineOptions, cfg *config.Config, out io.Writer) (summary, error) {
	downsampler, err := downsample.NewFromConfig[float64](cfg.Downsample)
	if err != nil {
		return summary{}, err
	}

	s, err := load(ctx, opts, cfg)
	if err != nil {
		return summary{}, err
	}
	if err := s.Validate(); err != nil {
		return summary{}, fmt.Errorf("input series: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"points": s.Len(),
		"nulls":  s.NullCount(),
		"index":  s.Kind,
	}).Debug("loaded series")

	reduced, err := downsampler.Downsample(s, cfg.Downsample.MaxPoints)
	if err != nil {
		return summary{}, err
	}

	if err := source.WriteCSV(out, reduced); err != nil {
		return summary{}, fmt.Errorf("failed to write output: %w", err)
	}

	return summary{
		Name:   reduced.Name,
		Dtype:  reduced.Dtype(),
		Input:  s.Len(),
		Output: reduced.Len(),
		Nulls:  reduced.NullCount(),
	}, nil
}

func load(ctx context.Context, opts CommandLineOptions, cfg *config.Config) (series.Series[float64], error) {
	src := cfg.Source
	switch strings.ToLower(src.Kind) {
	case "mock":
		return record(ctx, source.NewMock(&cfg.Mock), opts.Mock)
	case "sqlite":
		return source.LoadSQLite(ctx, source.SQLiteConfig{
			Source:      src.Path,
			Table:       src.Table,
			IndexColumn: src.IndexColumn,
			ValueColumn: src.ValueColumn,
			Timestamps:  src.Timestamps,
		})
	case "", "csv":
		if src.Path == "" {
			return series.Series[float64]{}, errNoInput
		}
		if src.Path == "-" {
			return source.LoadCSV(os.Stdin, "")
		}
		f, err := os.Open(src.Path)
		if err != nil {
			return series.Series[float64]{}, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		name := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
		return source.LoadCSV(f, name)
	}
	return series.Series[float64]{}, fmt.Errorf("unknown source kind %q", src.Kind)
}

// record collects points from src for the given duration.
func record(ctx context.Context, src source.Source, d time.Duration) (series.Series[float64], error) {
	if d <= 0 {
		return series.Series[float64]{}, errNoInput
	}
	if err := src.Connect(); err != nil {
		return series.Series[float64]{}, fmt.Errorf("failed to start source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	go func() {
		<-ctx.Done()
		src.Close()
	}()

	logrus.WithField("duration", d).Info("recording")
	return source.Collect(context.Background(), src.Points(), "value"), nil
}
