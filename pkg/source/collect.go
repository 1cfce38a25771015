package source

import (
	"context"

	"github.com/itohio/tracedown/pkg/series"
)

// Collect drains points into a timestamp series until the channel closes or ctx is done.
func Collect(ctx context.Context, points <-chan Point, name string) series.Series[float64] {
	s := series.Series[float64]{Name: name, IndexName: "time", Kind: series.Timestamp}
	for {
		select {
		case <-ctx.Done():
			return s
		case p, ok := <-points:
			if !ok {
				return s
			}
			s.Samples = append(s.Samples, PointSample(p))
		}
	}
}

// PointSample converts a point into a timestamp-indexed sample.
func PointSample(p Point) series.Sample[float64] {
	return series.Sample[float64]{
		Index: series.Index{T: p.Timestamp},
		Value: p.Value,
		Null:  p.Null,
	}
}
