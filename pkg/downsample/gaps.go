package downsample

import (
	"math"
	"slices"

	"github.com/itohio/tracedown/pkg/series"
)

// GapStats returns the minimum sample delta and the q-th quantile of the
// sample deltas of s. ok is false when fewer than two deltas can be ranked.
func GapStats[V any](s series.Series[V], q float64) (minDelta, threshold float64, ok bool) {
	return gapStats(deltas(s), q)
}

// InterleaveGaps inserts a null marker before every sample whose delta from
// its predecessor exceeds the q-th quantile of all deltas. The marker sits half
// a minimum delta before that sample. When no gap is found s itself is returned.
//
// Null samples already present are never treated as gap boundaries, and neither
// is a sample directly following one, so re-applying it to its own output adds nothing.
func InterleaveGaps[V any](s series.Series[V], q float64) series.Series[V] {
	return interleaveGaps(s, q, nil)
}

// interleaveGaps is InterleaveGaps with an extra filter: a boundary i is only
// marked when keep(i) holds. A nil keep marks every boundary.
func interleaveGaps[V any](s series.Series[V], q float64, keep func(i int) bool) series.Series[V] {
	d := deltas(s)
	minDelta, threshold, ok := gapStats(d, q)
	if !ok {
		return s
	}

	isGap := func(i int) bool {
		return isBoundary(s, d, threshold, i) && (keep == nil || keep(i))
	}

	gaps := 0
	for i := range s.Samples {
		if isGap(i) {
			gaps++
		}
	}
	if gaps == 0 {
		return s
	}

	out := make([]series.Sample[V], 0, len(s.Samples)+gaps)
	for i, smp := range s.Samples {
		if isGap(i) {
			out = append(out, series.Sample[V]{
				Index: s.Shift(smp.Index, -minDelta/2),
				Null:  true,
			})
		}
		out = append(out, smp)
	}

	// Markers precede their boundary sample, so a stable sort only moves
	// anything when the minimum delta is not positive.
	slices.SortStableFunc(out, func(a, b series.Sample[V]) int {
		return s.Compare(a.Index, b.Index)
	})

	return s.WithSamples(out)
}

func isBoundary[V any](s series.Series[V], d []float64, threshold float64, i int) bool {
	return i > 0 && d[i] > threshold && !s.Samples[i].Null && !s.Samples[i-1].Null
}

// sourceGaps returns a filter for interleaveGaps over reduced. It keeps
// boundary i only when orig, the series reduced was taken from, has a gap
// boundary in (reduced[i-1], reduced[i]]. A nil filter is returned when orig
// has no gap statistics.
func sourceGaps[V any](orig, reduced series.Series[V], q float64) func(i int) bool {
	d := deltas(orig)
	_, threshold, ok := gapStats(d, q)
	if !ok {
		return nil
	}

	var bounds []series.Index
	for i, smp := range orig.Samples {
		if isBoundary(orig, d, threshold, i) {
			bounds = append(bounds, smp.Index)
		}
	}

	return func(i int) bool {
		prev, cur := reduced.Samples[i-1].Index, reduced.Samples[i].Index
		j, found := slices.BinarySearchFunc(bounds, prev, orig.Compare)
		if found {
			j++
		}
		return j < len(bounds) && orig.Compare(bounds[j], cur) <= 0
	}
}

// deltas returns one delta per sample; the first is NaN.
func deltas[V any](s series.Series[V]) []float64 {
	d := make([]float64, len(s.Samples))
	for i := range d {
		d[i] = s.Delta(i)
	}
	return d
}

func gapStats(d []float64, q float64) (minDelta, threshold float64, ok bool) {
	ranked := make([]float64, 0, len(d))
	for _, v := range d {
		if !math.IsNaN(v) {
			ranked = append(ranked, v)
		}
	}
	if len(ranked) < 2 {
		return math.NaN(), math.NaN(), false
	}
	slices.Sort(ranked)

	qs := Quantiles(ranked, 0, q)
	if math.IsNaN(qs[0]) || math.IsNaN(qs[1]) {
		return math.NaN(), math.NaN(), false
	}
	return qs[0], qs[1], true
}
