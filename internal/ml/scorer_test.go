package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

// trainingCorpus builds n vectors jittered around a common operating point.
func trainingCorpus(n int, seed int64) []FeatureVector {
	rng := rand.New(rand.NewSource(seed))
	out := make([]FeatureVector, n)
	for i := range out {
		out[i] = FeatureVector{
			1000 + rng.Float64()*100, // bps
			10 + rng.Float64(),       // pps
			0.02 + rng.Float64()*0.005,
			0.05 + rng.Float64()*0.01,
			0.001 + rng.Float64()*0.0005,
			5 + rng.Float64(),
			75, 25, 0,
			100 + rng.Float64()*10,
		}
	}
	return out
}

func TestNormalizerFitTransform(t *testing.T) {
	X := trainingCorpus(50, 1)
	var norm Normalizer
	normalized := norm.FitTransform(X)
	require.Len(t, normalized, 50)
	require.True(t, norm.Fit)

	// each feature should be centered with unit-ish spread
	for j := 0; j < NumFeatures; j++ {
		var sum float64
		for _, v := range normalized {
			sum += v[j]
		}
		assert.InDelta(t, 0, sum/50, 1e-6, "feature %d not centered", j)
	}

	// the same statistics apply at transform time
	again := norm.Transform(X)
	assert.Equal(t, normalized, again)
}

func TestNormalizerUnfittedPassthrough(t *testing.T) {
	X := trainingCorpus(3, 2)
	var norm Normalizer
	assert.Equal(t, X, norm.Transform(X))
}

func TestStatScorerTrainValidation(t *testing.T) {
	s := NewStatScorer(0.1)

	// 1. too few samples
	err := s.Train(trainingCorpus(5, 3))
	assert.Error(t, err)
	assert.False(t, s.Trained)

	// 2. bad contamination
	bad := NewStatScorer(1.5)
	assert.Error(t, bad.Train(trainingCorpus(20, 3)))

	// 3. scoring before training
	_, err = s.ScoreBatch(trainingCorpus(2, 3))
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestStatScorerFlagsDeviantVector(t *testing.T) {
	X := trainingCorpus(100, 4)
	var norm Normalizer
	s := NewStatScorer(0.1)
	require.NoError(t, s.Train(norm.FitTransform(X)))

	// a vector at the center of the training distribution
	normal := FeatureVector{1050, 10.5, 0.0225, 0.055, 0.00125, 5.5, 75, 25, 0, 105}
	extreme := FeatureVector{1e6, 5000, 2, 5, 1, 500, 75, 25, 0, 1500}

	scores, err := s.ScoreBatch(norm.Transform([]FeatureVector{normal, extreme}))
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.False(t, scores[0].IsOutlier)
	assert.True(t, scores[1].IsOutlier)
	// lower raw score means more anomalous
	assert.Less(t, scores[1].Raw, scores[0].Raw)
	// per-batch min-max inversion pins the extremes
	assert.Equal(t, 1.0, scores[1].Probability)
	assert.Equal(t, 0.0, scores[0].Probability)
}

func TestStatScorerCalibratesToContamination(t *testing.T) {
	X := trainingCorpus(200, 5)
	var norm Normalizer
	s := NewStatScorer(0.1)
	require.NoError(t, s.Train(norm.FitTransform(X)))

	scores, err := s.ScoreBatch(norm.Transform(X))
	require.NoError(t, err)
	outliers := 0
	for _, sc := range scores {
		if sc.IsOutlier {
			outliers++
		}
	}
	// roughly the contamination fraction of the training set is flagged
	assert.InDelta(t, 20, outliers, 5)
}

func TestSeverityFromProbability(t *testing.T) {
	assert.Equal(t, model.SeverityLow, SeverityFromProbability(0.2))
	assert.Equal(t, model.SeverityMedium, SeverityFromProbability(0.6))
	assert.Equal(t, model.SeverityHigh, SeverityFromProbability(0.9))
}
