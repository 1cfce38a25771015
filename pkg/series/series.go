package series

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

var (
	// ErrLengthMismatch is returned when index and value slices differ in length.
	ErrLengthMismatch = errors.New("index and values differ in length")
	// ErrUnsorted is returned by Validate when the index is not strictly increasing.
	ErrUnsorted = errors.New("index is not strictly increasing")
)

// IndexKind tells how the index of a series is interpreted.
type IndexKind int

const (
	// Numeric indexes use Index.X.
	Numeric IndexKind = iota
	// Timestamp indexes use Index.T.
	Timestamp
)

func (k IndexKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("IndexKind(%d)", int(k))
	}
}

// Index is the position of a sample. Only the field matching the series kind is meaningful.
type Index struct {
	X float64
	T time.Time
}

// Sample is a single (index, value) pair.
// Null samples carry no data; renderers must break the line at them.
type Sample[V any] struct {
	Index Index
	Value V
	Null  bool
}

// Series is an index-ordered sequence of samples.
type Series[V any] struct {
	Name      string // Value label
	IndexName string
	Kind      IndexKind
	Samples   []Sample[V]
}

// NewNumeric creates a series indexed by plain numbers.
func NewNumeric[V any](name string, xs []float64, values []V) (Series[V], error) {
	if len(xs) != len(values) {
		return Series[V]{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(xs), len(values))
	}
	samples := make([]Sample[V], len(xs))
	for i := range xs {
		samples[i] = Sample[V]{Index: Index{X: xs[i]}, Value: values[i]}
	}
	return Series[V]{Name: name, IndexName: "index", Kind: Numeric, Samples: samples}, nil
}

// NewTimestamp creates a series indexed by timestamps.
func NewTimestamp[V any](name string, ts []time.Time, values []V) (Series[V], error) {
	if len(ts) != len(values) {
		return Series[V]{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(ts), len(values))
	}
	samples := make([]Sample[V], len(ts))
	for i := range ts {
		samples[i] = Sample[V]{Index: Index{T: ts[i]}, Value: values[i]}
	}
	return Series[V]{Name: name, IndexName: "time", Kind: Timestamp, Samples: samples}, nil
}

// Len returns the number of samples, markers included.
func (s Series[V]) Len() int {
	return len(s.Samples)
}

// Empty reports whether the series has no samples.
func (s Series[V]) Empty() bool {
	return len(s.Samples) == 0
}

// Dtype returns the canonical name of the value type (e.g. "float64", "string").
func (s Series[V]) Dtype() string {
	return reflect.TypeFor[V]().String()
}

// WithSamples returns a series with the same metadata and the given samples.
func (s Series[V]) WithSamples(samples []Sample[V]) Series[V] {
	s.Samples = samples
	return s
}

// Compact returns the series without its null samples.
func (s Series[V]) Compact() Series[V] {
	if s.NullCount() == 0 {
		return s
	}
	out := make([]Sample[V], 0, len(s.Samples))
	for _, smp := range s.Samples {
		if !smp.Null {
			out = append(out, smp)
		}
	}
	return s.WithSamples(out)
}

// NullCount returns the number of null samples.
func (s Series[V]) NullCount() int {
	n := 0
	for _, smp := range s.Samples {
		if smp.Null {
			n++
		}
	}
	return n
}

// Delta returns the spacing between sample i-1 and sample i:
// seconds for timestamp series, the raw difference otherwise.
// The first sample has no predecessor and yields NaN.
func (s Series[V]) Delta(i int) float64 {
	if i <= 0 || i >= len(s.Samples) {
		return math.NaN()
	}
	prev, cur := s.Samples[i-1].Index, s.Samples[i].Index
	if s.Kind == Timestamp {
		return cur.T.Sub(prev.T).Seconds()
	}
	return cur.X - prev.X
}

// Shift moves idx by the given amount (seconds for timestamp series).
func (s Series[V]) Shift(idx Index, by float64) Index {
	if s.Kind == Timestamp {
		return Index{T: idx.T.Add(time.Duration(math.Round(by * float64(time.Second))))}
	}
	return Index{X: idx.X + by}
}

// Compare orders two indexes of this series: -1, 0 or +1.
func (s Series[V]) Compare(a, b Index) int {
	if s.Kind == Timestamp {
		return a.T.Compare(b.T)
	}
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	default:
		return 0
	}
}

// Offset returns the position of sample i relative to the first sample,
// in seconds for timestamp series.
func (s Series[V]) Offset(i int) float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	if s.Kind == Timestamp {
		return s.Samples[i].Index.T.Sub(s.Samples[0].Index.T).Seconds()
	}
	return s.Samples[i].Index.X - s.Samples[0].Index.X
}

// Validate checks that the index is strictly increasing.
func (s Series[V]) Validate() error {
	for i := 1; i < len(s.Samples); i++ {
		if s.Compare(s.Samples[i-1].Index, s.Samples[i].Index) >= 0 {
			return fmt.Errorf("%w: sample %d", ErrUnsorted, i)
		}
	}
	return nil
}
