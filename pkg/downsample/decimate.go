package downsample

import (
	"github.com/itohio/tracedown/pkg/series"
)

// Decimate keeps every k-th sample, k = ceil(len(samples)/maxPoints), and the
// last sample when room is left. Regularly spaced input stays regularly spaced.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// If len(samples) <= maxPoints, copies all samples to dst.
func Decimate[V any](dst, samples []series.Sample[V], maxPoints int) []series.Sample[V] {
	if len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]series.Sample[V], len(samples))
		copy(result, samples)
		return result
	}

	if maxPoints <= 0 {
		return dst[:0]
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]series.Sample[V], 0, maxPoints)
	}

	stride := (len(samples) + maxPoints - 1) / maxPoints
	lastIdx := 0
	for i := 0; i < len(samples); i += stride {
		dst = append(dst, samples[i])
		lastIdx = i
	}
	if lastIdx != len(samples)-1 && len(dst) < maxPoints {
		dst = append(dst, samples[len(samples)-1])
	}

	return dst
}

// EveryNth reduces a series by fixed-stride decimation. It accepts any value type.
type EveryNth[V any] struct{}

var _ Reducer[string] = EveryNth[string]{}

// Reduce implements Reducer.
func (EveryNth[V]) Reduce(s series.Series[V], nOut int) series.Series[V] {
	return s.WithSamples(Decimate(nil, s.Samples, nOut))
}
