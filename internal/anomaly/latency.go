package anomaly

import (
	"fmt"

	"NetMetrica/internal/model"
)

// LatencyDetector flags latency degradation on both estimators: medium
// above 1.5x the baseline mean, high above 2x (or a p99 more than 1.5x the
// baseline p99 for request-response).
type LatencyDetector struct{}

func (LatencyDetector) Name() string { return model.AnomalyHighLatency }

func (LatencyDetector) Detect(w *model.MetricWindow, baselines *model.BaselineSet) []model.AnomalyRecord {
	if baselines == nil || baselines.Latency == nil {
		return nil
	}
	var out []model.AnomalyRecord
	out = append(out, checkRTT(&w.Latency.TCPRTT, baselines.Latency.TCPRTTMs)...)
	out = append(out, checkRequestResponse(&w.Latency.RequestResponse, baselines.Latency.RequestResponseMs)...)
	return out
}

func checkRTT(s *model.LatencyStats, baseline *model.SeriesStats) []model.AnomalyRecord {
	if s.Mean == nil || s.Count == 0 || baseline == nil {
		return nil
	}
	currentMs := toMillis(*s.Mean)
	thresholdMedium := baseline.Mean * 1.5
	thresholdHigh := baseline.Mean * 2

	var severity string
	var threshold float64
	switch {
	case currentMs > thresholdHigh:
		severity, threshold = model.SeverityHigh, thresholdHigh
	case currentMs > thresholdMedium:
		severity, threshold = model.SeverityMedium, thresholdMedium
	default:
		return nil
	}
	return []model.AnomalyRecord{{
		Type:         model.AnomalyHighLatency,
		Severity:     severity,
		Metric:       "tcp_rtt_ms",
		Threshold:    threshold,
		CurrentValue: currentMs,
		BaselineMean: model.Float64(baseline.Mean),
		Deviation:    aboveBaseline(currentMs, baseline.Mean),
		SampleCount:  s.Count,
		Message: fmt.Sprintf("%s TCP RTT detected: %.2f ms (threshold: %.2f ms)",
			titleSeverity(severity), currentMs, threshold),
	}}
}

func checkRequestResponse(s *model.LatencyStats, baseline *model.SeriesStats) []model.AnomalyRecord {
	if s.Mean == nil || s.Count == 0 || baseline == nil {
		return nil
	}
	currentMs := toMillis(*s.Mean)
	thresholdMedium := baseline.Mean * 1.5
	thresholdHigh := baseline.Mean * 2

	var p99Ms *float64
	if s.P99 != nil {
		p99Ms = model.Float64(toMillis(*s.P99))
	}
	p99Exceeded := p99Ms != nil && baseline.P99 > 0 && *p99Ms > baseline.P99*1.5

	var severity string
	var threshold float64
	switch {
	case currentMs > thresholdHigh || p99Exceeded:
		severity, threshold = model.SeverityHigh, thresholdHigh
	case currentMs > thresholdMedium:
		severity, threshold = model.SeverityMedium, thresholdMedium
	default:
		return nil
	}
	rec := model.AnomalyRecord{
		Type:         model.AnomalyHighLatency,
		Severity:     severity,
		Metric:       "request_response_ms",
		Threshold:    threshold,
		CurrentValue: currentMs,
		BaselineMean: model.Float64(baseline.Mean),
		Deviation:    aboveBaseline(currentMs, baseline.Mean),
		SampleCount:  s.Count,
		Message: fmt.Sprintf("%s request-response latency detected: %.2f ms (threshold: %.2f ms)",
			titleSeverity(severity), currentMs, threshold),
	}
	if severity == model.SeverityHigh {
		rec.P99 = p99Ms
	}
	return []model.AnomalyRecord{rec}
}

// toMillis converts a latency sample to milliseconds. Window estimators
// report seconds; values of a second or more are assumed to already be
// milliseconds from an upstream source.
func toMillis(v float64) float64 {
	if v < 1 {
		return v * 1000
	}
	return v
}

func aboveBaseline(current, baseline float64) string {
	if baseline <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%% above baseline", 100*(current-baseline)/baseline)
}
