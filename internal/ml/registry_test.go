package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

func trainingHistory(n int) []*model.MetricWindow {
	out := make([]*model.MetricWindow, n)
	for i := range out {
		out[i] = syntheticWindow(i)
	}
	return out
}

func TestRegistryTrainAndScore(t *testing.T) {
	reg := NewRegistry(t.TempDir())

	// 1. train on forty steady windows
	report, err := reg.Train("default", trainingHistory(40), TrainOptions{})
	require.NoError(t, err)
	assert.Equal(t, "default", report.ModelName)
	assert.Equal(t, 40, report.TrainingSamples)
	assert.Equal(t, 0.1, report.Contamination)
	assert.Equal(t, 1.0, report.Sampling.SampleRateActual)
	assert.NotEmpty(t, report.Timestamp)

	// 2. score a batch containing one wildly different window
	spike := syntheticWindow(0)
	spike.Bandwidth.AvgBps = model.Float64(5e7)
	spike.Connections.ActiveConnections = 900
	scores, err := reg.Score("default", []*model.MetricWindow{
		syntheticWindow(3), spike,
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.False(t, scores[0].IsAnomaly)
	assert.Equal(t, "Normal traffic pattern detected", scores[0].Message)
	assert.True(t, scores[1].IsAnomaly)
	assert.Equal(t, 1, scores[1].Index)
	assert.Contains(t, scores[1].Message, "anomaly detected")
	assert.Contains(t, []string{model.SeverityMedium, model.SeverityHigh}, scores[1].Severity)
}

func TestRegistryPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(dir)
	_, err := reg.Train("baseline-week", trainingHistory(30), TrainOptions{Contamination: 0.05})
	require.NoError(t, err)

	// state file written atomically, no temp leftovers
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "baseline-week.json", entries[0].Name())

	// a fresh registry loads the model from disk
	fresh := NewRegistry(dir)
	meta, err := fresh.Get("baseline-week")
	require.NoError(t, err)
	assert.Equal(t, "baseline-week", meta.ModelName)
	assert.Equal(t, 30, meta.TrainingSamples)
	assert.Equal(t, 0.05, meta.Contamination)
	assert.Equal(t, FeatureNames, meta.FeatureNames)
	assert.NotEmpty(t, meta.ID)

	scores, err := fresh.Score("baseline-week", trainingHistory(5))
	require.NoError(t, err)
	assert.Len(t, scores, 5)
}

func TestRegistryUnknownModel(t *testing.T) {
	reg := NewRegistry(t.TempDir())

	_, err := reg.Score("nope", trainingHistory(3))
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = reg.Get("nope")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestRegistryList(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)

	models, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, models)

	_, err = reg.Train("alpha", trainingHistory(20), TrainOptions{})
	require.NoError(t, err)
	_, err = reg.Train("beta", trainingHistory(25), TrainOptions{})
	require.NoError(t, err)

	// an unrelated file in the directory is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	models, err = reg.List()
	require.NoError(t, err)
	require.Len(t, models, 2)
	names := []string{models[0].ModelName, models[1].ModelName}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestRegistryRetrainUpdatesModel(t *testing.T) {
	reg := NewRegistry(t.TempDir())

	first, err := reg.Train("default", trainingHistory(20), TrainOptions{})
	require.NoError(t, err)
	second, err := reg.Train("default", trainingHistory(35), TrainOptions{})
	require.NoError(t, err)
	assert.Equal(t, 35, second.TrainingSamples)
	assert.NotEqual(t, first.TrainingSamples, second.TrainingSamples)

	meta, err := reg.Get("default")
	require.NoError(t, err)
	assert.Equal(t, 35, meta.TrainingSamples)
}
