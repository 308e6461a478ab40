package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"NetMetrica/internal/model"
)

// ErrNotTrained reports scoring against an untrained model.
var ErrNotTrained = errors.New("model not trained")

// minTrainingSamples is the smallest corpus a scorer accepts.
const minTrainingSamples = 10

// Score is one vector's novelty verdict. Raw follows the convention that
// lower means more anomalous; Probability is derived per batch by inverting
// and min-max-normalizing the raw scores.
type Score struct {
	IsOutlier   bool    `json:"is_anomaly"`
	Raw         float64 `json:"anomaly_score"`
	Probability float64 `json:"anomaly_probability"`
}

// Scorer is the pluggable novelty-scoring capability: one training pass
// over a normalized corpus, then batch scoring.
type Scorer interface {
	Train(X []FeatureVector) error
	ScoreBatch(X []FeatureVector) ([]Score, error)
}

// StatScorer scores novelty with per-feature z-statistics: a vector's raw
// score is the negated mean absolute z-distance from the training
// distribution. The outlier threshold is calibrated so roughly the
// contamination fraction of the training set scores as outliers.
type StatScorer struct {
	Contamination float64              `json:"contamination"`
	Mean          [NumFeatures]float64 `json:"mean"`
	Std           [NumFeatures]float64 `json:"std"`
	Threshold     float64              `json:"threshold"`
	Trained       bool                 `json:"trained"`
}

// NewStatScorer returns a scorer expecting the given contamination rate.
func NewStatScorer(contamination float64) *StatScorer {
	return &StatScorer{Contamination: contamination}
}

// Train fits the per-feature statistics and the outlier threshold.
func (s *StatScorer) Train(X []FeatureVector) error {
	if len(X) < minTrainingSamples {
		return fmt.Errorf("ml: need at least %d samples, got %d", minTrainingSamples, len(X))
	}
	if s.Contamination <= 0 || s.Contamination >= 1 {
		return fmt.Errorf("ml: contamination must be in (0, 1), got %g", s.Contamination)
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
		s.Mean[j] = mean
		s.Std[j] = math.Sqrt(variance/float64(len(X))) + epsilon
	}

	// threshold at the contamination quantile of training raw scores
	raws := make([]float64, len(X))
	for i, v := range X {
		raws[i] = s.raw(v)
	}
	sort.Float64s(raws)
	cut := int(float64(len(raws)) * s.Contamination)
	if cut >= len(raws) {
		cut = len(raws) - 1
	}
	s.Threshold = raws[cut]
	s.Trained = true
	return nil
}

// ScoreBatch scores every vector of X against the trained distribution.
func (s *StatScorer) ScoreBatch(X []FeatureVector) ([]Score, error) {
	if !s.Trained {
		return nil, ErrNotTrained
	}
	if len(X) == 0 {
		return nil, nil
	}
	out := make([]Score, len(X))
	minRaw, maxRaw := math.Inf(1), math.Inf(-1)
	for i, v := range X {
		r := s.raw(v)
		out[i].Raw = r
		out[i].IsOutlier = r < s.Threshold
		if r < minRaw {
			minRaw = r
		}
		if r > maxRaw {
			maxRaw = r
		}
	}
	span := maxRaw - minRaw
	if span <= 0 {
		span = 1
	}
	for i := range out {
		p := 1 - (out[i].Raw-minRaw)/span
		out[i].Probability = math.Min(1, math.Max(0, p))
	}
	return out, nil
}

// raw is the negated mean absolute z-distance; lower means more anomalous,
// matching the usual novelty-score convention.
func (s *StatScorer) raw(v FeatureVector) float64 {
	var total float64
	for j := 0; j < NumFeatures; j++ {
		total += math.Abs((v[j] - s.Mean[j]) / s.Std[j])
	}
	return -total / NumFeatures
}

// SeverityFromProbability maps an anomaly probability to a severity tier.
func SeverityFromProbability(p float64) string {
	switch {
	case p < 0.5:
		return model.SeverityLow
	case p < 0.75:
		return model.SeverityMedium
	default:
		return model.SeverityHigh
	}
}
