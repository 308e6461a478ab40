package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanMedian(t *testing.T) {
	// 1. empty input
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Median(nil))

	// 2. odd and even lengths
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}

func TestPercentileInterpolation(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50}

	// k = (p/100)*(n-1); p50 lands exactly on the middle rank.
	assert.Equal(t, 30.0, Percentile(vals, 50))
	// p90 interpolates between 40 and 50: k=3.6 -> 46.
	assert.InDelta(t, 46.0, Percentile(vals, 90), 1e-9)
	assert.Equal(t, 10.0, Percentile(vals, 0))
	assert.Equal(t, 50.0, Percentile(vals, 100))
	assert.Equal(t, 0.0, Percentile(nil, 99))
}

func TestPercentilesSharedSort(t *testing.T) {
	vals := []float64{5, 1, 4, 2, 3}
	got := Percentiles(vals, 50, 90, 99)
	assert.Len(t, got, 3)
	assert.Equal(t, 3.0, got[0])
	assert.InDelta(t, 4.6, got[1], 1e-9)
}

func TestIndexPercentile(t *testing.T) {
	// single sample collapses to itself
	assert.Equal(t, 7.0, IndexPercentile([]float64{7}, 99))

	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	// idx = floor(10*0.9) = 9 -> the last element
	assert.Equal(t, 10.0, IndexPercentile(vals, 90))
	assert.Equal(t, 10.0, IndexPercentile(vals, 99))
}

func TestRolling(t *testing.T) {
	// 1. too few samples
	assert.Nil(t, Rolling([]float64{1, 2}, 3))

	// 2. window of 3 over five samples yields three means
	got := Rolling([]float64{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, []float64{2, 3, 4}, got)
}

func TestMinMax(t *testing.T) {
	vals := []float64{3, 1, 4, 1, 5}
	assert.Equal(t, 1.0, Min(vals))
	assert.Equal(t, 5.0, Max(vals))
	assert.Equal(t, 0.0, Min(nil))
	assert.Equal(t, 0.0, Max(nil))
}
