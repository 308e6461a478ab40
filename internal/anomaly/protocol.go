package anomaly

import (
	"fmt"
	"math"

	"NetMetrica/internal/model"
)

// protocolDeviationThreshold is the absolute percentage-point deviation that
// triggers a protocol anomaly; 1.5x of it escalates to high.
const protocolDeviationThreshold = 30.0

// ProtocolDetector flags protocols whose share of the current window
// deviates from the learned mix.
type ProtocolDetector struct{}

func (ProtocolDetector) Name() string { return model.AnomalyProtocol }

func (ProtocolDetector) Detect(w *model.MetricWindow, baselines *model.BaselineSet) []model.AnomalyRecord {
	if len(w.Protocol.Percentages) == 0 {
		return nil
	}
	if baselines == nil || baselines.Protocol == nil || len(baselines.Protocol.Distribution) == 0 {
		return nil
	}

	var out []model.AnomalyRecord
	for proto, currentPct := range w.Protocol.Percentages {
		baselinePct := baselines.Protocol.Distribution[proto].Percentage
		deviation := math.Abs(currentPct - baselinePct)
		if deviation <= protocolDeviationThreshold {
			continue
		}
		severity := model.SeverityMedium
		if deviation > protocolDeviationThreshold*1.5 {
			severity = model.SeverityHigh
		}
		direction := "increased"
		if currentPct < baselinePct {
			direction = "decreased"
		}
		out = append(out, model.AnomalyRecord{
			Type:            model.AnomalyProtocol,
			Severity:        severity,
			Metric:          "protocol_distribution",
			Threshold:       protocolDeviationThreshold,
			CurrentValue:    deviation,
			Protocol:        proto,
			CurrentPercent:  model.Float64(currentPct),
			BaselinePercent: model.Float64(baselinePct),
			Direction:       direction,
			Message: fmt.Sprintf("Abnormal %s usage: %.1f%% (baseline: %.1f%%, deviation: %.1f%%)",
				proto, currentPct, baselinePct, deviation),
		})
	}
	return out
}
