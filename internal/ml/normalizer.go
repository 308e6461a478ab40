package ml

import "math"

// epsilon keeps zero-variance features from dividing by zero.
const epsilon = 1e-8

// Normalizer z-scores feature vectors. It is fitted once at training time
// and reused unchanged at scoring time.
type Normalizer struct {
	Mean [NumFeatures]float64 `json:"mean"`
	Std  [NumFeatures]float64 `json:"std"`
	Fit  bool                 `json:"fit"`
}

// FitTransform computes per-feature mean and standard deviation over X and
// returns the normalized vectors.
func (n *Normalizer) FitTransform(X []FeatureVector) []FeatureVector {
	if len(X) == 0 {
		return nil
	}
	for j := 0; j < NumFeatures; j++ {
		var sum float64
		for _, v := range X {
			sum += v[j]
		}
		mean := sum / float64(len(X))
		var variance float64
		for _, v := range X {
			d := v[j] - mean
			variance += d * d
		}
		n.Mean[j] = mean
		n.Std[j] = math.Sqrt(variance/float64(len(X))) + epsilon
	}
	n.Fit = true
	return n.Transform(X)
}

// Transform normalizes X with the fitted statistics. Unfitted normalizers
// pass vectors through unchanged.
func (n *Normalizer) Transform(X []FeatureVector) []FeatureVector {
	out := make([]FeatureVector, len(X))
	if !n.Fit {
		copy(out, X)
		return out
	}
	for i, v := range X {
		for j := 0; j < NumFeatures; j++ {
			out[i][j] = (v[j] - n.Mean[j]) / n.Std[j]
		}
	}
	return out
}
