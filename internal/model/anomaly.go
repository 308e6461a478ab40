package model

// Severity tiers. Rule detectors emit medium/high; the ML scoring path
// additionally emits low.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Anomaly type names emitted by the rule detectors.
const (
	AnomalyTrafficSpike  = "traffic_spike"
	AnomalyPortScan      = "port_scan"
	AnomalyHighLatency   = "high_latency"
	AnomalyPacketLoss    = "packet_loss"
	AnomalyProtocol      = "protocol_anomaly"
	AnomalyLongLivedConn = "long_lived_conn"
)

// AnomalyRecord is one detector finding. Core fields are always set;
// the trailing fields are type-specific and omitted when not applicable.
type AnomalyRecord struct {
	Type         string   `json:"type"`
	Severity     string   `json:"severity"`
	Metric       string   `json:"metric"`
	Threshold    float64  `json:"threshold"`
	CurrentValue float64  `json:"current_value"`
	BaselineMean *float64 `json:"baseline_mean,omitempty"`
	Deviation    string   `json:"deviation,omitempty"`
	Message      string   `json:"message"`

	// traffic_spike
	BaselineStddev *float64 `json:"baseline_stddev,omitempty"`

	// port_scan
	SourceIP       string `json:"source_ip,omitempty"`
	SYNPacketCount int    `json:"syn_packet_count,omitempty"`
	UniqueDstPorts int    `json:"unique_dst_ports,omitempty"`
	ThresholdSYNs  int    `json:"threshold_syns,omitempty"`
	ThresholdPorts int    `json:"threshold_ports,omitempty"`
	HasResponses   *bool  `json:"has_responses,omitempty"`

	// high_latency
	SampleCount int      `json:"sample_count,omitempty"`
	P99         *float64 `json:"p99,omitempty"`

	// packet_loss
	FlowSrc            string `json:"flow_src,omitempty"`
	FlowDst            string `json:"flow_dst,omitempty"`
	RetransmittedCount int    `json:"retransmitted_count,omitempty"`
	SentCount          int    `json:"sent_count,omitempty"`

	// protocol_anomaly
	Protocol        string   `json:"protocol,omitempty"`
	CurrentPercent  *float64 `json:"current_percent,omitempty"`
	BaselinePercent *float64 `json:"baseline_percent,omitempty"`
	Direction       string   `json:"direction,omitempty"`

	// long_lived_conn
	AvgBytesPerConn    *float64 `json:"avg_bytes_per_conn,omitempty"`
	ConnectionAttempts int      `json:"connection_attempts,omitempty"`
	SuspicionReason    string   `json:"suspicion_reason,omitempty"`
}

// SeverityCounts counts anomalies of one type by severity tier.
type SeverityCounts struct {
	Low    int `json:"low,omitempty"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Add increments the counter for the given severity.
func (c *SeverityCounts) Add(severity string) {
	switch severity {
	case SeverityLow:
		c.Low++
	case SeverityMedium:
		c.Medium++
	case SeverityHigh:
		c.High++
	}
}

// DetectionSummary groups one window's anomalies by type and severity.
type DetectionSummary struct {
	ByType     map[string]*SeverityCounts `json:"by_type"`
	BySeverity map[string]int             `json:"by_severity"`
}

// DetectionResult is the outcome of analyzing one MetricWindow.
type DetectionResult struct {
	WindowStart  float64          `json:"window_start"`
	WindowEnd    float64          `json:"window_end"`
	Timestamp    string           `json:"timestamp"`
	AnomalyCount int              `json:"anomaly_count"`
	Anomalies    []AnomalyRecord  `json:"anomalies"`
	Summary      DetectionSummary `json:"summary"`
}

// TypeStatistics aggregates one anomaly type across the whole history.
type TypeStatistics struct {
	Count  int `json:"count"`
	Low    int `json:"low,omitempty"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// EngineStatistics is the read-only aggregate view over detection history.
type EngineStatistics struct {
	TotalWindows         int                        `json:"total_windows"`
	WindowsWithAnomalies int                        `json:"windows_with_anomalies"`
	AnomalyPercentage    float64                    `json:"anomaly_percentage"`
	TotalAnomalies       int                        `json:"total_anomalies"`
	ByType               map[string]*TypeStatistics `json:"by_type"`
	BySeverity           map[string]int             `json:"by_severity"`
}

// Detector is the common contract of all rule-based anomaly detectors.
// Implementations are pure: they never mutate the window or baselines and
// treat missing inputs as "no data, skip".
type Detector interface {
	Name() string
	Detect(window *MetricWindow, baselines *BaselineSet) []AnomalyRecord
}
