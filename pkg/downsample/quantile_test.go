package downsample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantiles(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		qs     []float64
		want   []float64
	}{
		{
			name:   "order statistics",
			sorted: []float64{1, 2, 3, 4},
			qs:     []float64{0, 0.25, 0.5, 1},
			want:   []float64{1, 1.75, 2.5, 4},
		},
		{
			name:   "single value",
			sorted: []float64{5},
			qs:     []float64{0, 0.3, 1},
			want:   []float64{5, 5, 5},
		},
		{
			name:   "high quantile",
			sorted: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			qs:     []float64{0.95},
			want:   []float64{95},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantiles(tt.sorted, tt.qs...)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "q=%v", tt.qs[i])
			}
		})
	}
}

func TestQuantiles_Undefined(t *testing.T) {
	got := Quantiles(nil, 0, 0.5)
	require.Len(t, got, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))

	got = Quantiles([]float64{1, 2}, -0.1, 1.1, math.NaN())
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}

	assert.Empty(t, Quantiles([]float64{1, 2}))
}
