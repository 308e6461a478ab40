package anomaly

import (
	"fmt"

	"NetMetrica/internal/model"
)

// Port-scan thresholds. High requires both hard limits exceeded; medium
// fires at 70% of the SYN limit and 80% of the port limit.
const (
	scanSYNThreshold  = 100
	scanPortThreshold = 20
)

// ScanDetector flags sources whose SYN volume and destination-port spread
// look like port scanning. It works purely from the window's per-source
// scan activity and needs no baseline.
type ScanDetector struct{}

func (ScanDetector) Name() string { return model.AnomalyPortScan }

func (ScanDetector) Detect(w *model.MetricWindow, _ *model.BaselineSet) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, src := range w.ScanActivity {
		var severity, verdict string
		switch {
		case src.SYNCount > scanSYNThreshold && src.UniqueDstPorts > scanPortThreshold:
			severity, verdict = model.SeverityHigh, "Port scan detected from"
		case float64(src.SYNCount) > scanSYNThreshold*0.7 && float64(src.UniqueDstPorts) > scanPortThreshold*0.8:
			severity, verdict = model.SeverityMedium, "Possible port scan from"
		default:
			continue
		}
		hasResponses := src.HasResponses
		out = append(out, model.AnomalyRecord{
			Type:           model.AnomalyPortScan,
			Severity:       severity,
			Metric:         "port_scan_activity",
			Threshold:      scanSYNThreshold,
			CurrentValue:   float64(src.SYNCount),
			SourceIP:       src.SrcIP,
			SYNPacketCount: src.SYNCount,
			UniqueDstPorts: src.UniqueDstPorts,
			ThresholdSYNs:  scanSYNThreshold,
			ThresholdPorts: scanPortThreshold,
			HasResponses:   &hasResponses,
			Message: fmt.Sprintf("%s %s: %d SYN packets to %d unique ports",
				verdict, src.SrcIP, src.SYNCount, src.UniqueDstPorts),
		})
	}
	return out
}
