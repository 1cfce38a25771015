package downsample

import "math"

// Quantiles returns the qs-th quantiles of sorted, interpolating linearly
// between the two closest order statistics. sorted must be ascending and NaN free.
// A quantile outside [0, 1], or any quantile of an empty slice, is NaN.
func Quantiles(sorted []float64, qs ...float64) []float64 {
	out := make([]float64, len(qs))
	n := len(sorted)
	for i, q := range qs {
		if n == 0 || !(q >= 0 && q <= 1) {
			out[i] = math.NaN()
			continue
		}

		h := float64(n-1) * q
		lo := int(math.Floor(h))
		if lo >= n-1 {
			out[i] = sorted[n-1]
			continue
		}
		frac := h - float64(lo)
		if frac == 0 {
			out[i] = sorted[lo]
			continue
		}
		out[i] = sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
	}
	return out
}
