// Package stats provides the small descriptive-statistics kit shared by the
// metric computers and the baseline generator.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Min returns the smallest value, or 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Percentile computes the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// Percentiles computes several percentiles over one shared sort of values.
func Percentiles(values []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	if len(values) == 0 {
		return out
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for i, p := range ps {
		out[i] = percentileSorted(sorted, p)
	}
	return out
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	k := (p / 100) * float64(n-1)
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	d0 := sorted[int(f)] * (c - k)
	d1 := sorted[int(c)] * (k - f)
	return d0 + d1
}

// IndexPercentile returns the value at index floor(p/100*n) of the sorted
// series, the estimator the baseline generator uses for p90/p99. For a
// single-element series it returns that element.
func IndexPercentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(float64(n) * p / 100)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Rolling computes the moving averages of values with the given window
// size. Returns nil when fewer than size samples are available.
func Rolling(values []float64, size int) []float64 {
	if size <= 0 || len(values) < size {
		return nil
	}
	out := make([]float64, 0, len(values)-size+1)
	for i := 0; i+size <= len(values); i++ {
		out = append(out, Mean(values[i:i+size]))
	}
	return out
}
