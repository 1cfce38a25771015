package downsample

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/itohio/tracedown/pkg/series"
)

// DefaultGapQuantile is the delta quantile above which a gap is declared.
const DefaultGapQuantile = 0.95

var (
	// ErrUnsupportedDtype matches every *UnsupportedDtypeError.
	ErrUnsupportedDtype = errors.New("unsupported dtype")
	// ErrInvalidTarget is returned for a target point count below one.
	ErrInvalidTarget = errors.New("target point count must be positive")
	// ErrInvalidQuantile is returned by New when the gap quantile is outside [0, 1].
	ErrInvalidQuantile = errors.New("gap quantile must be within [0, 1]")
	// ErrNilReducer is returned by New when no reduction strategy is given.
	ErrNilReducer = errors.New("reducer is nil")
)

// UnsupportedDtypeError reports a value type that matches none of the allowed patterns.
type UnsupportedDtypeError struct {
	Dtype    string
	Patterns []string
}

func (e *UnsupportedDtypeError) Error() string {
	return fmt.Sprintf("%s doesn't match any pattern in [%s]", e.Dtype, strings.Join(e.Patterns, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedDtype) hold.
func (e *UnsupportedDtypeError) Is(target error) bool {
	return target == ErrUnsupportedDtype
}

// Reducer shrinks a series to at most nOut samples.
// It is only called with s.Len() > nOut and must return a strictly increasing
// index made of index values taken from s.
type Reducer[V any] interface {
	Reduce(s series.Series[V], nOut int) series.Series[V]
}

// ReducerFunc adapts a plain function to Reducer.
type ReducerFunc[V any] func(s series.Series[V], nOut int) series.Series[V]

// Reduce calls f(s, nOut).
func (f ReducerFunc[V]) Reduce(s series.Series[V], nOut int) series.Series[V] {
	return f(s, nOut)
}

// Options configures a Downsampler.
type Options struct {
	InterleaveGaps bool     // Insert null markers at detected gaps
	AllowedDtypes  []string // Regular expressions over the value type name; empty accepts all
	GapQuantile    float64  // Delta quantile used as the gap threshold
}

// DefaultOptions returns gap interleaving at the 95th percentile with no dtype restriction.
func DefaultOptions() Options {
	return Options{
		InterleaveGaps: true,
		GapQuantile:    DefaultGapQuantile,
	}
}

// Downsampler bounds the number of points of a series for display.
// It holds immutable configuration only and can be shared between goroutines.
type Downsampler[V any] struct {
	reducer  Reducer[V]
	opts     Options
	patterns []*regexp.Regexp
}

// New creates a Downsampler. Dtype patterns are anchored at the start of the
// type name, so "float" accepts float32 and float64.
func New[V any](reducer Reducer[V], opts Options) (*Downsampler[V], error) {
	if reducer == nil {
		return nil, ErrNilReducer
	}
	if !(opts.GapQuantile >= 0 && opts.GapQuantile <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantile, opts.GapQuantile)
	}

	opts.AllowedDtypes = slices.Clone(opts.AllowedDtypes)
	patterns := make([]*regexp.Regexp, 0, len(opts.AllowedDtypes))
	for _, p := range opts.AllowedDtypes {
		re, err := regexp.Compile(`^(?:` + p + `)`)
		if err != nil {
			return nil, fmt.Errorf("invalid dtype pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &Downsampler[V]{
		reducer:  reducer,
		opts:     opts,
		patterns: patterns,
	}, nil
}

// Options returns a copy of the configuration.
func (d *Downsampler[V]) Options() Options {
	opts := d.opts
	opts.AllowedDtypes = slices.Clone(d.opts.AllowedDtypes)
	return opts
}

// Downsample reduces s to at most nOut samples when it is longer than that and,
// if enabled, interleaves gap markers. After a reduction a marker is only
// placed where s itself has a gap between the two reduced samples.
// An empty series is returned as is.
// The input series is never modified.
func (d *Downsampler[V]) Downsample(s series.Series[V], nOut int) (series.Series[V], error) {
	if s.Empty() {
		return s, nil
	}

	if err := d.supportsDtype(s.Dtype()); err != nil {
		return series.Series[V]{}, err
	}

	if s.Len() <= nOut {
		if d.opts.InterleaveGaps {
			s = InterleaveGaps(s, d.opts.GapQuantile)
		}
		return s, nil
	}

	if nOut < 1 {
		return series.Series[V]{}, fmt.Errorf("%w: %d", ErrInvalidTarget, nOut)
	}
	reduced := d.reducer.Reduce(s, nOut)

	if d.opts.InterleaveGaps {
		reduced = interleaveGaps(reduced, d.opts.GapQuantile, sourceGaps(s, reduced, d.opts.GapQuantile))
	}

	return reduced, nil
}

func (d *Downsampler[V]) supportsDtype(dtype string) error {
	if len(d.patterns) == 0 {
		return nil
	}
	for _, re := range d.patterns {
		if re.MatchString(dtype) {
			return nil
		}
	}
	return &UnsupportedDtypeError{
		Dtype:    dtype,
		Patterns: slices.Clone(d.opts.AllowedDtypes),
	}
}
