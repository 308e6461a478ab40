// Package baseline derives reference traffic profiles from a history of
// computed metric windows and persists them per metric type.
package baseline

import (
	"NetMetrica/internal/model"
	"NetMetrica/internal/stats"
)

// rollingWindow is the sliding-average size used for trend statistics.
const rollingWindow = 3

// Generate builds all four baseline profiles from history. An empty history
// yields profiles with zero window counts and no series; consumers treat a
// missing series as "cannot evaluate".
func Generate(history []*model.MetricWindow) *model.BaselineSet {
	return &model.BaselineSet{
		Bandwidth:  GenerateBandwidth(history),
		Latency:    GenerateLatency(history),
		Protocol:   GenerateProtocol(history),
		Connection: GenerateConnection(history),
	}
}

// GenerateBandwidth profiles throughput across history.
func GenerateBandwidth(history []*model.MetricWindow) *model.BandwidthBaseline {
	b := &model.BandwidthBaseline{
		MetricType:  model.BaselineBandwidth,
		WindowCount: len(history),
	}
	var bps, pps, bytesW, pktsW []float64
	for _, w := range history {
		if w.Bandwidth.AvgBps != nil {
			bps = append(bps, *w.Bandwidth.AvgBps)
		}
		if w.Bandwidth.AvgPps != nil {
			pps = append(pps, *w.Bandwidth.AvgPps)
		}
		bytesW = append(bytesW, float64(w.Bandwidth.TotalBytes))
		pktsW = append(pktsW, float64(w.Bandwidth.TotalPackets))
	}
	b.BytesPerSecond = seriesStats(bps, true)
	b.PacketsPerSecond = seriesStats(pps, true)
	b.BytesPerWindow = seriesStats(bytesW, false)
	b.PacketsPerWindow = seriesStats(pktsW, false)
	return b
}

// GenerateLatency profiles both latency estimators across history. Window
// metrics carry seconds; baseline values are milliseconds.
func GenerateLatency(history []*model.MetricWindow) *model.LatencyBaseline {
	b := &model.LatencyBaseline{
		MetricType:  model.BaselineLatency,
		WindowCount: len(history),
	}
	var rtt, reqRsp []float64
	for _, w := range history {
		if s := w.Latency.TCPRTT; s.Mean != nil && s.Count > 0 {
			rtt = append(rtt, *s.Mean*1000)
		}
		if s := w.Latency.RequestResponse; s.Mean != nil && s.Count > 0 {
			reqRsp = append(reqRsp, *s.Mean*1000)
		}
	}
	b.TCPRTTMs = seriesStats(rtt, true)
	b.RequestResponseMs = seriesStats(reqRsp, true)
	return b
}

// GenerateProtocol profiles the protocol mix. Shares are computed over raw
// counts aggregated across all windows, not averaged per-window percentages.
func GenerateProtocol(history []*model.MetricWindow) *model.ProtocolBaseline {
	b := &model.ProtocolBaseline{
		MetricType:  model.BaselineProtocol,
		WindowCount: len(history),
	}
	counts := make(map[string]int64)
	var total int64
	for _, w := range history {
		for proto, c := range w.Protocol.Counts {
			counts[proto] += int64(c)
			total += int64(c)
		}
	}
	if total == 0 {
		return b
	}
	b.TotalPackets = total
	b.Distribution = make(map[string]model.ProtocolShareBaseline, len(counts))
	for proto, c := range counts {
		b.Distribution[proto] = model.ProtocolShareBaseline{
			Count:      c,
			Percentage: 100 * float64(c) / float64(total),
		}
	}
	return b
}

// GenerateConnection profiles connection behaviour across history.
func GenerateConnection(history []*model.MetricWindow) *model.ConnectionBaseline {
	b := &model.ConnectionBaseline{
		MetricType:  model.BaselineConnection,
		WindowCount: len(history),
	}
	var attempts, successful, failed, durations, bytesPerConn []float64
	for _, w := range history {
		c := w.Connections
		attempts = append(attempts, float64(c.TotalAttempts))
		successful = append(successful, float64(c.Successful))
		failed = append(failed, float64(c.FailedResets))
		if c.AvgDurationS != nil && *c.AvgDurationS > 0 {
			durations = append(durations, *c.AvgDurationS)
		}
		if c.AvgBytesPerConn != nil && *c.AvgBytesPerConn > 0 {
			bytesPerConn = append(bytesPerConn, *c.AvgBytesPerConn)
		}
	}
	b.Attempts = seriesStats(attempts, false)
	b.Successful = seriesStats(successful, false)
	b.Failed = seriesStats(failed, false)
	b.DurationS = seriesStats(durations, true)
	b.BytesPerConn = seriesStats(bytesPerConn, false)
	return b
}

// seriesStats summarizes one historical series. Rolling statistics are
// attached only when requested and at least rollingWindow samples exist.
func seriesStats(values []float64, withRolling bool) *model.SeriesStats {
	if len(values) == 0 {
		return nil
	}
	s := &model.SeriesStats{
		Mean:   stats.Mean(values),
		Median: stats.Median(values),
		Min:    stats.Min(values),
		Max:    stats.Max(values),
		P90:    stats.IndexPercentile(values, 90),
		P99:    stats.IndexPercentile(values, 99),
	}
	if withRolling {
		if rolled := stats.Rolling(values, rollingWindow); rolled != nil {
			s.Rolling = &model.RollingStats{
				Mean:   stats.Mean(rolled),
				Median: stats.Median(rolled),
				Min:    stats.Min(rolled),
				Max:    stats.Max(rolled),
			}
		}
	}
	return s
}
