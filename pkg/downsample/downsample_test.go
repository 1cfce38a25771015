package downsample

import (
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/tracedown/pkg/config"
	"github.com/itohio/tracedown/pkg/series"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// gappedTimestamps returns n timestamps one second apart, with the interval
// ending at gapAt stretched to gapLen seconds.
func gappedTimestamps(n, gapAt, gapLen int) []time.Time {
	ts := make([]time.Time, n)
	offset := 0
	for i := range n {
		if i == gapAt {
			offset += gapLen - 1
		}
		ts[i] = epoch.Add(time.Duration(i+offset) * time.Second)
	}
	return ts
}

func ramp(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.Sin(float64(i) * 0.1)
	}
	return v
}

func uniformNumeric(t *testing.T, n int) series.Series[float64] {
	t.Helper()
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	s, err := series.NewNumeric("signal", xs, ramp(n))
	require.NoError(t, err)
	return s
}

// countingReducer wraps EveryNth and records how often it was invoked.
func countingReducer[V any](calls *int) Reducer[V] {
	return ReducerFunc[V](func(s series.Series[V], nOut int) series.Series[V] {
		*calls++
		return EveryNth[V]{}.Reduce(s, nOut)
	})
}

func mustNew[V any](t *testing.T, r Reducer[V], opts Options) *Downsampler[V] {
	t.Helper()
	d, err := New(r, opts)
	require.NoError(t, err)
	return d
}

func TestDownsample_ScenarioA_SingleGapNoReduction(t *testing.T) {
	ts := gappedTimestamps(100, 50, 10)
	s, err := series.NewTimestamp("temp", ts, ramp(100))
	require.NoError(t, err)

	calls := 0
	d := mustNew(t, countingReducer[float64](&calls), DefaultOptions())

	out, err := d.Downsample(s, 100)
	require.NoError(t, err)

	assert.Equal(t, 0, calls)
	require.Equal(t, 101, out.Len())
	assert.Equal(t, 1, out.NullCount())

	marker := out.Samples[50]
	assert.True(t, marker.Null)
	assert.Equal(t, ts[50].Add(-500*time.Millisecond), marker.Index.T)
	assert.Equal(t, 0.0, marker.Value)

	// Originals unchanged and in order around the marker
	assert.Equal(t, s.Samples[:50], out.Samples[:50])
	assert.Equal(t, s.Samples[50:], out.Samples[51:])
	assert.Equal(t, "temp", out.Name)
	assert.Equal(t, s.IndexName, out.IndexName)
	assert.NoError(t, out.Validate())
}

func TestDownsample_ScenarioB_UnsupportedDtype(t *testing.T) {
	s, err := series.NewNumeric("label", []float64{0, 1, 2, 3, 4}, []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	d := mustNew(t, Reducer[string](EveryNth[string]{}), Options{
		InterleaveGaps: true,
		AllowedDtypes:  []string{"float.*"},
		GapQuantile:    DefaultGapQuantile,
	})

	_, err = d.Downsample(s, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDtype)

	var dtErr *UnsupportedDtypeError
	require.True(t, errors.As(err, &dtErr))
	assert.Equal(t, "string", dtErr.Dtype)
	assert.Equal(t, []string{"float.*"}, dtErr.Patterns)
	assert.Contains(t, err.Error(), "string")
	assert.Contains(t, err.Error(), "float.*")
}

func TestDownsample_ScenarioC_EmptySeries(t *testing.T) {
	fail := ReducerFunc[string](func(s series.Series[string], nOut int) series.Series[string] {
		t.Fatal("reducer must not be called for an empty series")
		return s
	})
	d := mustNew(t, Reducer[string](fail), Options{
		InterleaveGaps: true,
		AllowedDtypes:  []string{"float.*"},
		GapQuantile:    DefaultGapQuantile,
	})

	empty := series.Series[string]{Name: "empty", Kind: series.Timestamp}
	for _, n := range []int{-1, 0, 1, 1000} {
		out, err := d.Downsample(empty, n)
		require.NoError(t, err)
		assert.Equal(t, empty, out)
	}
}

func TestDownsample_ScenarioD_UniformNoGaps(t *testing.T) {
	s := uniformNumeric(t, 1000)

	calls := 0
	d := mustNew(t, countingReducer[float64](&calls), DefaultOptions())

	out, err := d.Downsample(s, 200)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.LessOrEqual(t, out.Len(), 200)
	assert.Equal(t, 0, out.NullCount())
	assert.NoError(t, out.Validate())
}

// steadyTimestamps returns n timestamps step apart; a non-zero gap is added
// to every timestamp from gapAt on.
func steadyTimestamps(n int, step time.Duration, gapAt int, gap time.Duration) []time.Time {
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = epoch.Add(time.Duration(i) * step)
		if gap > 0 && i >= gapAt {
			ts[i] = ts[i].Add(gap)
		}
	}
	return ts
}

func allStrategies() map[string]Reducer[float64] {
	return map[string]Reducer[float64]{
		StrategyEveryNth: EveryNth[float64]{},
		StrategyMinMax:   MinMax[float64]{},
		StrategyLTTB:     LTTB[float64]{},
	}
}

func TestDownsample_UniformInputHasNoMarkersAfterReduction(t *testing.T) {
	sizes := []struct{ n, nOut int }{{1000, 200}, {5000, 1000}}

	t.Run("default config", func(t *testing.T) {
		d, err := NewFromConfig[float64](config.Default().Downsample)
		require.NoError(t, err)
		for _, sz := range sizes {
			s, err := series.NewTimestamp("signal", steadyTimestamps(sz.n, 20*time.Millisecond, 0, 0), ramp(sz.n))
			require.NoError(t, err)

			out, err := d.Downsample(s, sz.nOut)
			require.NoError(t, err)
			assert.LessOrEqual(t, out.Len(), sz.nOut, "n=%d", sz.n)
			assert.Zero(t, out.NullCount(), "n=%d", sz.n)
		}
	})

	for name, r := range allStrategies() {
		t.Run(name, func(t *testing.T) {
			d := mustNew(t, r, DefaultOptions())
			for _, sz := range sizes {
				s, err := series.NewTimestamp("signal", steadyTimestamps(sz.n, 20*time.Millisecond, 0, 0), ramp(sz.n))
				require.NoError(t, err)

				out, err := d.Downsample(s, sz.nOut)
				require.NoError(t, err)
				assert.LessOrEqual(t, out.Len(), sz.nOut, "n=%d", sz.n)
				assert.Zero(t, out.NullCount(), "n=%d", sz.n)
				assert.NoError(t, out.Validate())
			}
		})
	}
}

func TestDownsample_GapSurvivesReduction(t *testing.T) {
	const n = 5000
	ts := steadyTimestamps(n, 20*time.Millisecond, n/2, 10*time.Second)
	s, err := series.NewTimestamp("signal", ts, ramp(n))
	require.NoError(t, err)

	for name, r := range allStrategies() {
		t.Run(name, func(t *testing.T) {
			d := mustNew(t, r, DefaultOptions())
			out, err := d.Downsample(s, 1000)
			require.NoError(t, err)
			require.NoError(t, out.Validate())

			require.Equal(t, 1, out.NullCount())
			for i, smp := range out.Samples {
				if !smp.Null {
					continue
				}
				require.Greater(t, i, 0)
				require.Less(t, i, out.Len()-1)
				prev, next := out.Samples[i-1].Index.T, out.Samples[i+1].Index.T
				assert.False(t, prev.After(ts[n/2-1]))
				assert.False(t, next.Before(ts[n/2]))
				assert.True(t, smp.Index.T.After(prev))
				assert.True(t, smp.Index.T.Before(next))
			}
		})
	}
}

func TestDownsample_ShortSeriesSkipsReduction(t *testing.T) {
	s := uniformNumeric(t, 50)

	calls := 0
	d := mustNew(t, countingReducer[float64](&calls), Options{GapQuantile: DefaultGapQuantile})

	for _, n := range []int{50, 51, 1000} {
		out, err := d.Downsample(s, n)
		require.NoError(t, err)
		assert.Equal(t, s, out)
	}
	assert.Equal(t, 0, calls)
}

func TestDownsample_LengthBoundAcrossStrategies(t *testing.T) {
	s := uniformNumeric(t, 5000)
	// Poke a few holes so interleaving has work to do
	s.Samples = slices.Delete(slices.Clone(s.Samples), 1200, 1500)
	s.Samples = slices.Delete(s.Samples, 3000, 3100)

	reducers := map[string]Reducer[float64]{
		StrategyEveryNth: EveryNth[float64]{},
		StrategyMinMax:   MinMax[float64]{},
		StrategyLTTB:     LTTB[float64]{},
	}

	for name, r := range reducers {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{1, 2, 3, 7, 100, 999} {
				reduceOnly := mustNew(t, r, Options{GapQuantile: DefaultGapQuantile})
				out, err := reduceOnly.Downsample(s, n)
				require.NoError(t, err)
				assert.LessOrEqual(t, out.Len(), n, "n=%d", n)
				assert.NoError(t, out.Validate(), "n=%d", n)

				withGaps := mustNew(t, r, DefaultOptions())
				out, err = withGaps.Downsample(s, n)
				require.NoError(t, err)
				assert.NoError(t, out.Validate(), "n=%d", n)
				assert.LessOrEqual(t, out.Len()-out.NullCount(), n, "n=%d", n)
			}
		})
	}
}

func TestDownsample_MarkersStrictlyBetweenOriginals(t *testing.T) {
	// 40 unit steps, a gap of 21, 40 unit steps, a gap of 51
	var xs []float64
	for i := range 40 {
		xs = append(xs, float64(i))
	}
	for i := range 40 {
		xs = append(xs, float64(60+i))
	}
	xs = append(xs, 150)
	s, err := series.NewNumeric("v", xs, make([]float64, len(xs)))
	require.NoError(t, err)

	d := mustNew(t, Reducer[float64](EveryNth[float64]{}), DefaultOptions())
	out, err := d.Downsample(s, 100)
	require.NoError(t, err)

	minDelta, threshold, ok := GapStats(s, DefaultGapQuantile)
	require.True(t, ok)

	require.Equal(t, 2, out.NullCount())
	for i, smp := range out.Samples {
		if !smp.Null {
			continue
		}
		require.Greater(t, i, 0)
		require.Less(t, i, out.Len()-1)
		prev, next := out.Samples[i-1], out.Samples[i+1]
		assert.False(t, prev.Null)
		assert.False(t, next.Null)
		assert.Greater(t, next.Index.X-prev.Index.X, threshold)
		assert.Greater(t, smp.Index.X, prev.Index.X)
		assert.Less(t, smp.Index.X, next.Index.X)
		assert.Equal(t, next.Index.X-minDelta/2, smp.Index.X)
	}
}

func TestDownsample_Idempotent(t *testing.T) {
	ts := gappedTimestamps(100, 50, 10)
	s, err := series.NewTimestamp("temp", ts, ramp(100))
	require.NoError(t, err)

	calls := 0
	d := mustNew(t, countingReducer[float64](&calls), DefaultOptions())

	first, err := d.Downsample(s, 200)
	require.NoError(t, err)
	second, err := d.Downsample(first, 200)
	require.NoError(t, err)

	assert.Equal(t, 0, calls)
	assert.Equal(t, first, second)
}

func TestDownsample_InterleaveDisabled(t *testing.T) {
	ts := gappedTimestamps(100, 50, 10)
	s, err := series.NewTimestamp("temp", ts, ramp(100))
	require.NoError(t, err)

	d := mustNew(t, Reducer[float64](EveryNth[float64]{}), Options{GapQuantile: DefaultGapQuantile})
	out, err := d.Downsample(s, 100)
	require.NoError(t, err)
	assert.Equal(t, s, out)
}

func TestDownsample_DoesNotMutateInput(t *testing.T) {
	ts := gappedTimestamps(300, 120, 30)
	s, err := series.NewTimestamp("temp", ts, ramp(300))
	require.NoError(t, err)
	before := slices.Clone(s.Samples)

	d := mustNew(t, Reducer[float64](MinMax[float64]{}), DefaultOptions())
	_, err = d.Downsample(s, 40)
	require.NoError(t, err)

	assert.Equal(t, before, s.Samples)
}

func TestDownsample_InvalidTarget(t *testing.T) {
	s := uniformNumeric(t, 10)
	d := mustNew(t, Reducer[float64](EveryNth[float64]{}), DefaultOptions())

	for _, n := range []int{0, -5} {
		_, err := d.Downsample(s, n)
		assert.ErrorIs(t, err, ErrInvalidTarget)
	}
}

func TestDownsample_DtypePatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		wantErr  bool
	}{
		{name: "no patterns", patterns: nil, wantErr: false},
		{name: "empty patterns", patterns: []string{}, wantErr: false},
		{name: "exact", patterns: []string{"float64"}, wantErr: false},
		{name: "prefix", patterns: []string{"float"}, wantErr: false},
		{name: "second pattern matches", patterns: []string{"int.*", "float.*"}, wantErr: false},
		{name: "anchored at start", patterns: []string{"64"}, wantErr: true},
		{name: "no match", patterns: []string{"int.*", "string"}, wantErr: true},
	}

	s := uniformNumeric(t, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustNew(t, Reducer[float64](EveryNth[float64]{}), Options{
				AllowedDtypes: tt.patterns,
				GapQuantile:   DefaultGapQuantile,
			})
			_, err := d.Downsample(s, 5)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedDtype)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New[float64](nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNilReducer)

	for _, q := range []float64{-0.1, 1.01, math.NaN()} {
		_, err = New(Reducer[float64](EveryNth[float64]{}), Options{GapQuantile: q})
		assert.ErrorIs(t, err, ErrInvalidQuantile, "q=%v", q)
	}

	_, err = New(Reducer[float64](EveryNth[float64]{}), Options{AllowedDtypes: []string{"("}})
	assert.Error(t, err)

	for _, q := range []float64{0, 1} {
		_, err = New(Reducer[float64](EveryNth[float64]{}), Options{GapQuantile: q})
		assert.NoError(t, err, "q=%v", q)
	}
}

func TestDownsampler_OptionsAreImmutable(t *testing.T) {
	patterns := []string{"float.*"}
	d := mustNew(t, Reducer[float64](EveryNth[float64]{}), Options{
		InterleaveGaps: true,
		AllowedDtypes:  patterns,
		GapQuantile:    0.9,
	})

	patterns[0] = "string"
	got := d.Options()
	assert.Equal(t, []string{"float.*"}, got.AllowedDtypes)
	assert.Equal(t, 0.9, got.GapQuantile)
	assert.True(t, got.InterleaveGaps)

	got.AllowedDtypes[0] = "int"
	assert.Equal(t, []string{"float.*"}, d.Options().AllowedDtypes)
}

func TestDownsampler_ConcurrentUse(t *testing.T) {
	ts := gappedTimestamps(2000, 700, 25)
	s, err := series.NewTimestamp("temp", ts, ramp(2000))
	require.NoError(t, err)

	d := mustNew(t, Reducer[float64](EveryNth[float64]{}), DefaultOptions())
	want, err := d.Downsample(s, 500)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]series.Series[float64], 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := d.Downsample(s, 500)
			if err == nil {
				results[i] = out
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Downsample
	d, err := NewFromConfig[float64](cfg)
	require.NoError(t, err)
	opts := d.Options()
	assert.True(t, opts.InterleaveGaps)
	assert.Equal(t, DefaultGapQuantile, opts.GapQuantile)
	assert.IsType(t, MinMax[float64]{}, d.reducer)

	off := false
	q := 0.5
	cfg.Strategy = "LTTB"
	cfg.InterleaveGaps = &off
	cfg.GapQuantile = &q
	cfg.AllowedDtypes = []string{"float.*"}
	d, err = NewFromConfig[float64](cfg)
	require.NoError(t, err)
	opts = d.Options()
	assert.False(t, opts.InterleaveGaps)
	assert.Equal(t, 0.5, opts.GapQuantile)
	assert.Equal(t, []string{"float.*"}, opts.AllowedDtypes)
	assert.IsType(t, LTTB[float64]{}, d.reducer)

	cfg.Strategy = "median"
	_, err = NewFromConfig[float64](cfg)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	bad := 2.0
	cfg.Strategy = ""
	cfg.GapQuantile = &bad
	_, err = NewFromConfig[float64](cfg)
	assert.ErrorIs(t, err, ErrInvalidQuantile)
}
