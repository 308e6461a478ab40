package anomaly

import (
	"fmt"

	"NetMetrica/internal/model"
)

// idleBytesThreshold marks a long connection as idle when it moved fewer
// bytes than this on average.
const idleBytesThreshold = 1000.0

// LongConnDetector flags windows whose average connection duration exceeds
// the learned profile, plus the idle pattern of long duration with barely
// any data moved.
type LongConnDetector struct{}

func (LongConnDetector) Name() string { return model.AnomalyLongLivedConn }

func (LongConnDetector) Detect(w *model.MetricWindow, baselines *model.BaselineSet) []model.AnomalyRecord {
	if w.Connections.AvgDurationS == nil {
		return nil
	}
	if baselines == nil || baselines.Connection == nil || baselines.Connection.DurationS == nil {
		return nil
	}
	duration := *w.Connections.AvgDurationS
	baselineMean := baselines.Connection.DurationS.Mean
	avgBytes := w.Connections.AvgBytesPerConn

	var out []model.AnomalyRecord
	thresholdMedium := baselineMean * 1.5
	thresholdHigh := baselineMean * 2

	var severity string
	var threshold float64
	var verdict string
	switch {
	case duration > thresholdHigh:
		severity, threshold, verdict = model.SeverityHigh, thresholdHigh, "Long-lived connections detected"
	case duration > thresholdMedium:
		severity, threshold, verdict = model.SeverityMedium, thresholdMedium, "Moderately long connections detected"
	}
	if severity != "" {
		rec := model.AnomalyRecord{
			Type:               model.AnomalyLongLivedConn,
			Severity:           severity,
			Metric:             "connection_duration_s",
			Threshold:          threshold,
			CurrentValue:       duration,
			BaselineMean:       model.Float64(baselineMean),
			Deviation:          aboveBaseline(duration, baselineMean),
			ConnectionAttempts: w.Connections.TotalAttempts,
			Message: fmt.Sprintf("%s: avg %.2fs duration (baseline: %.2fs)",
				verdict, duration, baselineMean),
		}
		rec.AvgBytesPerConn = avgBytes
		out = append(out, rec)
	}

	// idle pattern: long but quiet connections
	if avgBytes != nil && duration > thresholdMedium && *avgBytes < idleBytesThreshold {
		out = append(out, model.AnomalyRecord{
			Type:            model.AnomalyLongLivedConn,
			Severity:        model.SeverityMedium,
			Metric:          "idle_connection",
			Threshold:       idleBytesThreshold,
			CurrentValue:    duration,
			BaselineMean:    model.Float64(baselineMean),
			AvgBytesPerConn: avgBytes,
			SuspicionReason: "long_duration_low_throughput",
			Message: fmt.Sprintf("Idle or stuck connection detected: %.2fs duration with only %.0f bytes transferred",
				duration, *avgBytes),
		})
	}
	return out
}
