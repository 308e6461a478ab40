package anomaly

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

func quietWindow(start float64) *model.MetricWindow {
	return &model.MetricWindow{
		WindowStart: start,
		WindowEnd:   start + 10,
		RecordCount: 100,
		Bandwidth:   model.BandwidthMetrics{AvgBps: model.Float64(1000)},
	}
}

func spikyWindow(start float64) *model.MetricWindow {
	w := quietWindow(start)
	w.Bandwidth.AvgBps = model.Float64(10000)
	return w
}

func TestEngineAnalyze(t *testing.T) {
	engine := NewEngine(bandwidthBaseline(1000, 1300))

	result := engine.Analyze(spikyWindow(0))
	require.NotNil(t, result)
	assert.Equal(t, 1, result.AnomalyCount)
	assert.Equal(t, model.AnomalyTrafficSpike, result.Anomalies[0].Type)
	require.Contains(t, result.Summary.ByType, model.AnomalyTrafficSpike)
	assert.Equal(t, 1, result.Summary.ByType[model.AnomalyTrafficSpike].High)
	assert.Equal(t, 1, result.Summary.BySeverity[model.SeverityHigh])

	assert.Len(t, engine.History(), 1)
}

func TestEngineBatchAnalyzeOrdered(t *testing.T) {
	engine := NewEngine(bandwidthBaseline(1000, 1300))

	// shuffled input must come back in window_start order
	var windows []*model.MetricWindow
	for _, start := range []float64{30, 0, 90, 60, 20, 10, 80, 40, 70, 50} {
		windows = append(windows, quietWindow(start))
	}
	results, err := engine.BatchAnalyze(context.Background(), windows)
	require.NoError(t, err)
	require.Len(t, results, 10)

	history := engine.History()
	require.Len(t, history, 10)
	for i, r := range history {
		assert.Equal(t, float64(i*10), r.WindowStart)
	}
}

func TestEngineBatchAnalyzeCancelled(t *testing.T) {
	engine := NewEngine(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := engine.BatchAnalyze(ctx, []*model.MetricWindow{quietWindow(0), quietWindow(10)})
	assert.ErrorIs(t, err, context.Canceled)
	// history stays consistent with what was returned
	assert.Equal(t, len(results), len(engine.History()))
}

func TestEngineStatistics(t *testing.T) {
	engine := NewEngine(bandwidthBaseline(1000, 1300))

	engine.Analyze(quietWindow(0))
	engine.Analyze(spikyWindow(10))
	engine.Analyze(quietWindow(20))
	engine.Analyze(spikyWindow(30))

	stats := engine.Statistics()
	assert.Equal(t, 4, stats.TotalWindows)
	assert.Equal(t, 2, stats.WindowsWithAnomalies)
	assert.Equal(t, 50.0, stats.AnomalyPercentage)
	assert.Equal(t, 2, stats.TotalAnomalies)
	require.Contains(t, stats.ByType, model.AnomalyTrafficSpike)
	assert.Equal(t, 2, stats.ByType[model.AnomalyTrafficSpike].Count)
	assert.Equal(t, 2, stats.BySeverity[model.SeverityHigh])
}

func TestEngineExportHistory(t *testing.T) {
	engine := NewEngine(bandwidthBaseline(1000, 1300))
	engine.Analyze(spikyWindow(0))
	engine.Analyze(quietWindow(10))

	var buf bytes.Buffer
	require.NoError(t, engine.ExportHistory(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"traffic_spike"`)

	var decoded model.DetectionResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, 1, decoded.AnomalyCount)
}

func TestEngineReset(t *testing.T) {
	engine := NewEngine(nil)
	engine.Analyze(quietWindow(0))
	require.Len(t, engine.History(), 1)

	engine.Reset()
	assert.Empty(t, engine.History())
	assert.Zero(t, engine.Statistics().TotalWindows)
}

func TestEngineWithoutBaselines(t *testing.T) {
	// only the baseline-free detectors can fire
	engine := NewEngine(nil)
	w := spikyWindow(0)
	w.ScanActivity = []model.ScanActivity{
		{SrcIP: "10.0.0.9", SYNCount: 150, UniqueDstPorts: 30},
	}
	result := engine.Analyze(w)
	require.Equal(t, 1, result.AnomalyCount)
	assert.Equal(t, model.AnomalyPortScan, result.Anomalies[0].Type)
}
