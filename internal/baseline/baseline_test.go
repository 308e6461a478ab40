package baseline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

func historyWindow(start, bps, rttS float64, tcp, udp int) *model.MetricWindow {
	w := &model.MetricWindow{
		WindowStart: start,
		WindowEnd:   start + 10,
		RecordCount: tcp + udp,
	}
	w.Bandwidth = model.BandwidthMetrics{
		TotalBytes:   int64(bps * 10),
		TotalPackets: tcp + udp,
		DurationS:    10,
		AvgBps:       model.Float64(bps),
		AvgPps:       model.Float64(float64(tcp+udp) / 10),
	}
	w.Latency.TCPRTT = model.LatencyStats{Count: 5, Mean: model.Float64(rttS)}
	w.Protocol = model.ProtocolMetrics{
		Total:  tcp + udp,
		Counts: map[string]int{"tcp": tcp, "udp": udp},
	}
	w.Connections = model.ConnectionMetrics{
		TotalAttempts: 10,
		Successful:    8,
		AvgDurationS:  model.Float64(0.5),
	}
	return w
}

func TestGenerateBandwidthBaseline(t *testing.T) {
	history := []*model.MetricWindow{
		historyWindow(0, 1000, 0.010, 80, 20),
		historyWindow(10, 2000, 0.012, 80, 20),
		historyWindow(20, 3000, 0.011, 80, 20),
		historyWindow(30, 4000, 0.013, 80, 20),
	}
	b := GenerateBandwidth(history)
	assert.Equal(t, model.BaselineBandwidth, b.MetricType)
	assert.Equal(t, 4, b.WindowCount)
	require.NotNil(t, b.BytesPerSecond)
	assert.Equal(t, 2500.0, b.BytesPerSecond.Mean)
	assert.Equal(t, 1000.0, b.BytesPerSecond.Min)
	assert.Equal(t, 4000.0, b.BytesPerSecond.Max)

	// rolling averages over [1000,2000,3000,4000] with window 3: 2000, 3000
	require.NotNil(t, b.BytesPerSecond.Rolling)
	assert.Equal(t, 2500.0, b.BytesPerSecond.Rolling.Mean)
	assert.Equal(t, 2000.0, b.BytesPerSecond.Rolling.Min)
	assert.Equal(t, 3000.0, b.BytesPerSecond.Rolling.Max)
}

func TestGenerateLatencyBaselineMs(t *testing.T) {
	history := []*model.MetricWindow{
		historyWindow(0, 1000, 0.010, 80, 20),
		historyWindow(10, 1000, 0.020, 80, 20),
	}
	b := GenerateLatency(history)
	require.NotNil(t, b.TCPRTTMs)
	// seconds converted to milliseconds
	assert.InDelta(t, 15.0, b.TCPRTTMs.Mean, 1e-9)
	// only two samples, no rolling stats
	assert.Nil(t, b.TCPRTTMs.Rolling)
	// no request-response samples in history
	assert.Nil(t, b.RequestResponseMs)
}

func TestGenerateProtocolBaselineAggregatesCounts(t *testing.T) {
	// shares come from aggregated raw counts, not averaged percentages
	history := []*model.MetricWindow{
		historyWindow(0, 1000, 0.01, 90, 10),  // 90% tcp in-window
		historyWindow(10, 1000, 0.01, 10, 90), // 10% tcp in-window
	}
	b := GenerateProtocol(history)
	require.NotNil(t, b.Distribution)
	assert.Equal(t, int64(200), b.TotalPackets)
	assert.InDelta(t, 50.0, b.Distribution["tcp"].Percentage, 1e-9)
	assert.Equal(t, int64(100), b.Distribution["tcp"].Count)
}

func TestGenerateEmptyHistory(t *testing.T) {
	set := Generate(nil)
	require.NotNil(t, set.Bandwidth)
	assert.Zero(t, set.Bandwidth.WindowCount)
	assert.Nil(t, set.Bandwidth.BytesPerSecond)
	assert.Nil(t, set.Latency.TCPRTTMs)
	assert.Nil(t, set.Protocol.Distribution)
	assert.Nil(t, set.Connection.Attempts)
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	history := []*model.MetricWindow{
		historyWindow(0, 1000, 0.010, 80, 20),
		historyWindow(10, 2000, 0.012, 80, 20),
		historyWindow(20, 3000, 0.011, 80, 20),
	}
	require.NoError(t, store.Save(Generate(history)))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded.Bandwidth)
	require.NotNil(t, loaded.Bandwidth.BytesPerSecond)
	assert.Equal(t, 2000.0, loaded.Bandwidth.BytesPerSecond.Mean)
	require.NotNil(t, loaded.Protocol)
	assert.Equal(t, 3, loaded.Protocol.WindowCount)
}

func TestStoreMissingArtifacts(t *testing.T) {
	store := NewStore(t.TempDir())

	// loading an empty dir yields an all-nil set, not an error
	set, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, set.Bandwidth)
	assert.Nil(t, set.Latency)
	assert.Nil(t, set.Protocol)
	assert.Nil(t, set.Connection)

	_, err = store.LoadRaw(model.BaselineBandwidth)
	assert.True(t, errors.Is(err, ErrNotAvailable))
}
