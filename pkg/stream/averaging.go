package stream

import (
	"github.com/itohio/tracedown/pkg/source"
)

// Converter transforms a point stream into another point stream.
type Converter func(in <-chan source.Point) <-chan source.Point

// NewAveraging creates a converter that replaces each value with the mean of
// the last windowSize non-null values. One point is emitted per input point
// with the input timestamp, so dropouts in the input stay visible downstream.
// A null point is passed through and resets the window. Sends block until
// the consumer reads, so no point is dropped.
func NewAveraging(windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = source.DefaultBufferSize
	}

	return func(in <-chan source.Point) <-chan source.Point {
		out := make(chan source.Point, bufSize)

		go func() {
			defer close(out)

			buffer := make([]float64, 0, windowSize)
			for p := range in {
				if p.Null {
					buffer = buffer[:0]
				} else {
					buffer = append(buffer, p.Value)
					if len(buffer) > windowSize {
						buffer = buffer[1:] // Remove oldest
					}
					p.Value = mean(buffer)
				}

				out <- p
			}
		}()

		return out
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
