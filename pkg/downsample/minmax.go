package downsample

import (
	"github.com/itohio/tracedown/pkg/series"
)

// MinMax keeps the first and last samples and, for each of (nOut-2)/2 equal
// buckets in between, the bucket minimum and maximum in index order.
// Peaks survive.
type MinMax[V Number] struct{}

var _ Reducer[float64] = MinMax[float64]{}

// Reduce implements Reducer.
func (MinMax[V]) Reduce(s series.Series[V], nOut int) series.Series[V] {
	if nOut < 4 || s.Len() <= nOut {
		return EveryNth[V]{}.Reduce(s, nOut)
	}

	samples := s.Samples
	last := len(samples) - 1
	interior := samples[1:last]
	buckets := (nOut - 2) / 2

	out := make([]series.Sample[V], 0, nOut)
	out = append(out, samples[0])

	for b := range buckets {
		lo := b * len(interior) / buckets
		hi := (b + 1) * len(interior) / buckets

		minIdx, maxIdx := -1, -1
		for i := lo; i < hi; i++ {
			if interior[i].Null {
				continue
			}
			if minIdx < 0 || interior[i].Value < interior[minIdx].Value {
				minIdx = i
			}
			if maxIdx < 0 || interior[i].Value > interior[maxIdx].Value {
				maxIdx = i
			}
		}

		switch {
		case minIdx < 0:
			// all null
		case minIdx == maxIdx:
			out = append(out, interior[minIdx])
		case minIdx < maxIdx:
			out = append(out, interior[minIdx], interior[maxIdx])
		default:
			out = append(out, interior[maxIdx], interior[minIdx])
		}
	}

	out = append(out, samples[last])
	return s.WithSamples(out)
}
