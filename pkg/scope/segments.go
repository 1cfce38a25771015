package scope

import (
	"github.com/itohio/tracedown/pkg/series"
)

// span is a half-open run [Start, End) of non-null samples.
type span struct {
	Start, End int
}

// segments splits a trace into runs of non-null samples.
// The line is drawn within a run and broken between runs.
func segments[V any](s series.Series[V]) []span {
	var runs []span
	start := -1
	for i, smp := range s.Samples {
		switch {
		case smp.Null && start >= 0:
			runs = append(runs, span{Start: start, End: i})
			start = -1
		case !smp.Null && start < 0:
			start = i
		}
	}
	if start >= 0 {
		runs = append(runs, span{Start: start, End: len(s.Samples)})
	}
	return runs
}

// viewport is the plotted value range and index span.
// X values are offsets from the first sample (seconds for timestamp traces).
type viewport struct {
	yMin, yMax float64
	xMax       float64
}

// autoScale fits the view to the non-null values of s with a 10% margin.
// For timestamp traces the x span is at least minWindow seconds.
func autoScale(s series.Series[float64], minWindow float64) viewport {
	v := viewport{yMin: 0, yMax: 1, xMax: 1}
	if s.Kind == series.Timestamp && minWindow > 0 {
		v.xMax = minWindow
	}
	if s.Empty() {
		return v
	}

	found := false
	for _, smp := range s.Samples {
		if smp.Null {
			continue
		}
		if !found {
			v.yMin, v.yMax = smp.Value, smp.Value
			found = true
			continue
		}
		v.yMin = min(v.yMin, smp.Value)
		v.yMax = max(v.yMax, smp.Value)
	}

	// Add 10% margin
	rng := v.yMax - v.yMin
	if rng == 0 {
		rng = 1.0
	}
	margin := rng * 0.1
	v.yMin -= margin
	v.yMax += margin

	if extent := s.Offset(s.Len() - 1); extent > v.xMax || s.Kind == series.Numeric && extent > 0 {
		v.xMax = extent
	}
	return v
}
