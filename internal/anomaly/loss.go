package anomaly

import (
	"fmt"

	"NetMetrica/internal/model"
)

// Retransmission-rate thresholds in percent. Deliberately extreme: ordinary
// networks retransmit a few percent, so only severe loss is flagged.
const (
	lossThresholdMedium = 50.0
	lossThresholdHigh   = 70.0
)

// LossDetector flags flows whose retransmission rate indicates packet loss.
// Works purely from the window's flow enrichment and needs no baseline.
type LossDetector struct{}

func (LossDetector) Name() string { return model.AnomalyPacketLoss }

func (LossDetector) Detect(w *model.MetricWindow, _ *model.BaselineSet) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, flow := range w.RetransmissionStats {
		rate := flow.RetransmissionRate
		var severity string
		var threshold float64
		switch {
		case rate > lossThresholdHigh:
			severity, threshold = model.SeverityHigh, lossThresholdHigh
		case rate > lossThresholdMedium:
			severity, threshold = model.SeverityMedium, lossThresholdMedium
		default:
			continue
		}
		out = append(out, model.AnomalyRecord{
			Type:               model.AnomalyPacketLoss,
			Severity:           severity,
			Metric:             "packet_loss_percent",
			Threshold:          threshold,
			CurrentValue:       rate,
			FlowSrc:            fmt.Sprintf("%s:%d", flow.SrcIP, flow.SrcPort),
			FlowDst:            fmt.Sprintf("%s:%d", flow.DstIP, flow.DstPort),
			RetransmittedCount: flow.RetransmissionCount,
			SentCount:          flow.PacketCount,
			Message: fmt.Sprintf("%s packet loss detected: %.2f%% (%d retrans / %d sent)",
				titleSeverity(severity), rate, flow.RetransmissionCount, flow.PacketCount),
		})
	}
	return out
}
