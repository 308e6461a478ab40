package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

// bandwidthBaseline builds a throughput profile with rolling stats chosen so
// the estimated stddev is (rollingMax-rollingMean)/3.
func bandwidthBaseline(rollingMean, rollingMax float64) *model.BaselineSet {
	return &model.BaselineSet{
		Bandwidth: &model.BandwidthBaseline{
			MetricType:  model.BaselineBandwidth,
			WindowCount: 10,
			BytesPerSecond: &model.SeriesStats{
				Mean: rollingMean, Median: rollingMean,
				Min: rollingMean / 2, Max: rollingMax,
				P90: rollingMax, P99: rollingMax,
				Rolling: &model.RollingStats{
					Mean: rollingMean, Median: rollingMean,
					Min: rollingMean / 2, Max: rollingMax,
				},
			},
		},
	}
}

func windowWithBps(bps float64) *model.MetricWindow {
	return &model.MetricWindow{
		WindowStart: 0, WindowEnd: 10,
		Bandwidth: model.BandwidthMetrics{AvgBps: model.Float64(bps)},
	}
}

func TestSpikeDetectorSeverities(t *testing.T) {
	// rolling mean 1000, rolling max 1300 -> sigma = 100
	baselines := bandwidthBaseline(1000, 1300)
	det := SpikeDetector{}

	// at the mean: nothing
	assert.Empty(t, det.Detect(windowWithBps(1000), baselines))

	// mean + 2.5 sigma: medium
	out := det.Detect(windowWithBps(1250), baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityMedium, out[0].Severity)
	assert.Equal(t, model.AnomalyTrafficSpike, out[0].Type)
	require.NotNil(t, out[0].BaselineMean)
	assert.Equal(t, 1000.0, *out[0].BaselineMean)

	// mean + 3.5 sigma: high
	out = det.Detect(windowWithBps(1350), baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityHigh, out[0].Severity)
	assert.NotEmpty(t, out[0].Message)

	// no baseline series: cannot evaluate
	assert.Empty(t, det.Detect(windowWithBps(99999), &model.BaselineSet{}))
}

func TestScanDetector(t *testing.T) {
	det := ScanDetector{}
	w := &model.MetricWindow{
		ScanActivity: []model.ScanActivity{
			{SrcIP: "10.0.0.9", SYNCount: 150, UniqueDstPorts: 30},
			{SrcIP: "10.0.0.8", SYNCount: 80, UniqueDstPorts: 18},
			{SrcIP: "10.0.0.7", SYNCount: 5, UniqueDstPorts: 2},
		},
	}
	out := det.Detect(w, nil)
	require.Len(t, out, 2)
	assert.Equal(t, model.SeverityHigh, out[0].Severity)
	assert.Equal(t, "10.0.0.9", out[0].SourceIP)
	assert.Equal(t, 150, out[0].SYNPacketCount)
	assert.Equal(t, model.SeverityMedium, out[1].Severity)
	assert.Equal(t, "10.0.0.8", out[1].SourceIP)
}

func latencyBaseline(rttMeanMs, reqRspMeanMs, reqRspP99Ms float64) *model.BaselineSet {
	return &model.BaselineSet{
		Latency: &model.LatencyBaseline{
			MetricType:  model.BaselineLatency,
			WindowCount: 10,
			TCPRTTMs: &model.SeriesStats{
				Mean: rttMeanMs, Median: rttMeanMs, P99: rttMeanMs * 2,
			},
			RequestResponseMs: &model.SeriesStats{
				Mean: reqRspMeanMs, Median: reqRspMeanMs, P99: reqRspP99Ms,
			},
		},
	}
}

func TestLatencyDetector(t *testing.T) {
	det := LatencyDetector{}
	baselines := latencyBaseline(10, 20, 60)

	w := &model.MetricWindow{}
	// 16ms RTT against a 10ms baseline: above 1.5x, below 2x
	w.Latency.TCPRTT = model.LatencyStats{Count: 5, Mean: model.Float64(0.016)}
	out := det.Detect(w, baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityMedium, out[0].Severity)
	assert.Equal(t, "tcp_rtt_ms", out[0].Metric)
	assert.InDelta(t, 16.0, out[0].CurrentValue, 1e-9)

	// 25ms RTT: above 2x
	w.Latency.TCPRTT = model.LatencyStats{Count: 5, Mean: model.Float64(0.025)}
	out = det.Detect(w, baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityHigh, out[0].Severity)

	// request-response escalates to high when p99 blows past 1.5x baseline p99
	w = &model.MetricWindow{}
	w.Latency.RequestResponse = model.LatencyStats{
		Count: 8,
		Mean:  model.Float64(0.021), // 21ms, barely above 1x
		P99:   model.Float64(0.100), // 100ms against a 60ms baseline p99
	}
	out = det.Detect(w, baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityHigh, out[0].Severity)
	assert.Equal(t, "request_response_ms", out[0].Metric)

	// no baseline profile: cannot evaluate
	w.Latency.TCPRTT = model.LatencyStats{Count: 5, Mean: model.Float64(9.0)}
	assert.Empty(t, det.Detect(w, &model.BaselineSet{}))
}

func TestLossDetector(t *testing.T) {
	det := LossDetector{}
	w := &model.MetricWindow{
		RetransmissionStats: []model.FlowRetransmission{
			{SrcIP: "a", DstIP: "b", SrcPort: 1, DstPort: 2, PacketCount: 10, RetransmissionCount: 8, RetransmissionRate: 80},
			{SrcIP: "c", DstIP: "d", SrcPort: 3, DstPort: 4, PacketCount: 10, RetransmissionCount: 6, RetransmissionRate: 60},
			{SrcIP: "e", DstIP: "f", SrcPort: 5, DstPort: 6, PacketCount: 10, RetransmissionCount: 1, RetransmissionRate: 10},
		},
	}
	out := det.Detect(w, nil)
	require.Len(t, out, 2)
	assert.Equal(t, model.SeverityHigh, out[0].Severity)
	assert.Equal(t, "a:1", out[0].FlowSrc)
	assert.Equal(t, model.SeverityMedium, out[1].Severity)
}

func protocolBaseline(shares map[string]float64) *model.BaselineSet {
	dist := make(map[string]model.ProtocolShareBaseline, len(shares))
	for proto, pct := range shares {
		dist[proto] = model.ProtocolShareBaseline{Count: int64(pct * 10), Percentage: pct}
	}
	return &model.BaselineSet{
		Protocol: &model.ProtocolBaseline{
			MetricType:   model.BaselineProtocol,
			WindowCount:  10,
			Distribution: dist,
			TotalPackets: 1000,
		},
	}
}

func TestProtocolDetector(t *testing.T) {
	det := ProtocolDetector{}
	baselines := protocolBaseline(map[string]float64{"tcp": 90, "udp": 10})

	mkWindow := func(udpPct float64) *model.MetricWindow {
		w := &model.MetricWindow{}
		w.Protocol.Percentages = map[string]float64{"udp": udpPct, "tcp": 100 - udpPct}
		return w
	}

	// deviation 25: below threshold
	assert.Empty(t, det.Detect(mkWindow(35), baselines))

	// deviation 35: anomalous
	out := det.Detect(mkWindow(45), baselines)
	require.Len(t, out, 2) // udp up 35, tcp down 35
	for _, a := range out {
		assert.Equal(t, model.SeverityMedium, a.Severity)
	}

	// deviation 50: escalates to high
	out = det.Detect(mkWindow(60), baselines)
	require.Len(t, out, 2)
	for _, a := range out {
		assert.Equal(t, model.SeverityHigh, a.Severity)
		assert.NotEmpty(t, a.Direction)
	}

	// unseen protocol against a 0% baseline share
	w := &model.MetricWindow{}
	w.Protocol.Percentages = map[string]float64{"icmp": 40, "tcp": 60}
	out = det.Detect(w, baselines)
	found := false
	for _, a := range out {
		if a.Protocol == "icmp" {
			found = true
			assert.Equal(t, "increased", a.Direction)
		}
	}
	assert.True(t, found)
}

func connectionBaseline(meanDuration float64) *model.BaselineSet {
	return &model.BaselineSet{
		Connection: &model.ConnectionBaseline{
			MetricType:  model.BaselineConnection,
			WindowCount: 10,
			DurationS: &model.SeriesStats{
				Mean: meanDuration, Median: meanDuration, Max: meanDuration * 2,
			},
		},
	}
}

func TestLongConnDetector(t *testing.T) {
	det := LongConnDetector{}
	baselines := connectionBaseline(10)

	mkWindow := func(duration, avgBytes float64) *model.MetricWindow {
		w := &model.MetricWindow{}
		w.Connections.AvgDurationS = model.Float64(duration)
		w.Connections.AvgBytesPerConn = model.Float64(avgBytes)
		return w
	}

	// 1.6x baseline: medium
	out := det.Detect(mkWindow(16, 50000), baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityMedium, out[0].Severity)
	assert.Equal(t, "connection_duration_s", out[0].Metric)

	// 2.5x baseline: high
	out = det.Detect(mkWindow(25, 50000), baselines)
	require.Len(t, out, 1)
	assert.Equal(t, model.SeverityHigh, out[0].Severity)

	// long and quiet: the duration record plus the idle record
	out = det.Detect(mkWindow(16, 500), baselines)
	require.Len(t, out, 2)
	assert.Equal(t, "idle_connection", out[1].Metric)
	assert.Equal(t, "long_duration_low_throughput", out[1].SuspicionReason)

	// at the baseline: nothing
	assert.Empty(t, det.Detect(mkWindow(10, 500000), baselines))
}
