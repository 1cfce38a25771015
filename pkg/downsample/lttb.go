package downsample

import (
	"math"

	"github.com/itohio/tracedown/pkg/series"
)

// LTTB implements Largest-Triangle-Three-Buckets selection.
// Null samples are dropped before selection.
type LTTB[V Number] struct{}

var _ Reducer[float64] = LTTB[float64]{}

// Reduce implements Reducer.
func (LTTB[V]) Reduce(s series.Series[V], nOut int) series.Series[V] {
	c := s.Compact()
	if c.Len() <= nOut {
		return c
	}
	if nOut < 3 {
		return EveryNth[V]{}.Reduce(c, nOut)
	}

	samples := c.Samples
	n := len(samples)
	every := float64(n-2) / float64(nOut-2)

	out := make([]series.Sample[V], 0, nOut)
	out = append(out, samples[0])

	a := 0
	for i := range nOut - 2 {
		// Average point of the following bucket
		avgStart := int(math.Floor(float64(i+1)*every)) + 1
		avgEnd := min(int(math.Floor(float64(i+2)*every))+1, n)
		avgX, avgY := 0.0, 0.0
		for j := avgStart; j < avgEnd; j++ {
			avgX += c.Offset(j)
			avgY += float64(samples[j].Value)
		}
		if cnt := float64(avgEnd - avgStart); cnt > 0 {
			avgX /= cnt
			avgY /= cnt
		}

		rangeStart := int(math.Floor(float64(i)*every)) + 1
		rangeEnd := min(int(math.Floor(float64(i+1)*every))+1, n-1)

		ax, ay := c.Offset(a), float64(samples[a].Value)
		maxArea := -1.0
		next := rangeStart
		for j := rangeStart; j < rangeEnd; j++ {
			area := triangleArea(ax, ay, c.Offset(j), float64(samples[j].Value), avgX, avgY)
			if area > maxArea {
				maxArea = area
				next = j
			}
		}

		out = append(out, samples[next])
		a = next
	}

	out = append(out, samples[n-1])
	return c.WithSamples(out)
}

func triangleArea(ax, ay, bx, by, cx, cy float64) float64 {
	return math.Abs((ax-cx)*(by-ay)-(ax-bx)*(cy-ay)) * 0.5
}
