// Package anomaly holds the rule-based detectors and the engine that
// orchestrates them per metric window.
package anomaly

import (
	"fmt"

	"NetMetrica/internal/model"
)

// SpikeDetector flags sudden bandwidth increases against the learned
// throughput profile: medium above rolling mean + 2 sigma, high above
// rolling mean + 3 sigma.
type SpikeDetector struct{}

func (SpikeDetector) Name() string { return model.AnomalyTrafficSpike }

func (SpikeDetector) Detect(w *model.MetricWindow, baselines *model.BaselineSet) []model.AnomalyRecord {
	if w.Bandwidth.AvgBps == nil {
		return nil
	}
	if baselines == nil || baselines.Bandwidth == nil || baselines.Bandwidth.BytesPerSecond == nil {
		return nil
	}
	current := *w.Bandwidth.AvgBps
	series := baselines.Bandwidth.BytesPerSecond

	rollingMean := series.Mean
	rollingMax := series.P99
	if series.Rolling != nil {
		rollingMean = series.Rolling.Mean
		rollingMax = series.Rolling.Max
	}
	// sigma estimated from the rolling range, falling back to a p99 fraction
	// for flat series
	stddev := series.P99 * 0.1
	if rollingMax > rollingMean {
		stddev = (rollingMax - rollingMean) / 3
	}

	thresholdMedium := rollingMean + 2*stddev
	thresholdHigh := rollingMean + 3*stddev

	var severity string
	var threshold float64
	switch {
	case current > thresholdHigh:
		severity, threshold = model.SeverityHigh, thresholdHigh
	case current > thresholdMedium:
		severity, threshold = model.SeverityMedium, thresholdMedium
	default:
		return nil
	}

	rec := model.AnomalyRecord{
		Type:           model.AnomalyTrafficSpike,
		Severity:       severity,
		Metric:         "bytes_per_second",
		Threshold:      threshold,
		CurrentValue:   current,
		BaselineMean:   model.Float64(rollingMean),
		BaselineStddev: model.Float64(stddev),
		Message: fmt.Sprintf("%s traffic spike detected: %.0f Bps (threshold: %.0f Bps)",
			titleSeverity(severity), current, threshold),
	}
	if rollingMean > 0 {
		rec.Deviation = fmt.Sprintf("%.1f%% above baseline", 100*(current-rollingMean)/rollingMean)
	}
	return []model.AnomalyRecord{rec}
}

func titleSeverity(severity string) string {
	switch severity {
	case model.SeverityHigh:
		return "High"
	case model.SeverityMedium:
		return "Medium"
	default:
		return "Low"
	}
}
