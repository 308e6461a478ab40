package model

// Baseline metric type names, also used as artifact keys on disk.
const (
	BaselineBandwidth  = "bandwidth"
	BaselineLatency    = "latency"
	BaselineProtocol   = "protocol"
	BaselineConnection = "connection"
)

// RollingStats summarizes a size-3 sliding average over a historical series.
// Present only when the series had at least three samples.
type RollingStats struct {
	Mean   float64 `json:"rolling_avg_mean"`
	Median float64 `json:"rolling_avg_median"`
	Min    float64 `json:"rolling_avg_min"`
	Max    float64 `json:"rolling_avg_max"`
}

// SeriesStats holds the descriptive statistics of one numeric series
// extracted from historical windows.
type SeriesStats struct {
	Mean    float64       `json:"mean"`
	Median  float64       `json:"median"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	P90     float64       `json:"p90"`
	P99     float64       `json:"p99"`
	Rolling *RollingStats `json:"rolling,omitempty"`
}

// BandwidthBaseline is the learned throughput profile.
type BandwidthBaseline struct {
	MetricType       string       `json:"metric_type"`
	WindowCount      int          `json:"window_count"`
	BytesPerSecond   *SeriesStats `json:"bytes_per_second,omitempty"`
	PacketsPerSecond *SeriesStats `json:"packets_per_second,omitempty"`
	BytesPerWindow   *SeriesStats `json:"bytes_per_window,omitempty"`
	PacketsPerWindow *SeriesStats `json:"packets_per_window,omitempty"`
}

// LatencyBaseline is the learned latency profile. All values are in
// milliseconds regardless of the second-based window metrics.
type LatencyBaseline struct {
	MetricType        string       `json:"metric_type"`
	WindowCount       int          `json:"window_count"`
	TCPRTTMs          *SeriesStats `json:"tcp_rtt_ms,omitempty"`
	RequestResponseMs *SeriesStats `json:"request_response_ms,omitempty"`
}

// ProtocolShareBaseline is one protocol's learned share of total traffic.
type ProtocolShareBaseline struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ProtocolBaseline is the learned protocol mix. Shares are computed over
// raw counts aggregated across all historical windows, not averaged
// per-window percentages.
type ProtocolBaseline struct {
	MetricType   string                           `json:"metric_type"`
	WindowCount  int                              `json:"window_count"`
	Distribution map[string]ProtocolShareBaseline `json:"protocol_distribution,omitempty"`
	TotalPackets int64                            `json:"total_packets_analyzed"`
}

// ConnectionBaseline is the learned connection-behaviour profile.
type ConnectionBaseline struct {
	MetricType        string       `json:"metric_type"`
	WindowCount       int          `json:"window_count"`
	Attempts          *SeriesStats `json:"connection_attempts,omitempty"`
	Successful        *SeriesStats `json:"successful_connections,omitempty"`
	Failed            *SeriesStats `json:"failed_connections,omitempty"`
	DurationS         *SeriesStats `json:"connection_duration_s,omitempty"`
	BytesPerConn      *SeriesStats `json:"bytes_per_connection,omitempty"`
}

// BaselineSet groups the four baseline profiles. Absent members mean the
// corresponding artifact was never generated; detectors must treat a nil
// profile as "cannot evaluate", never as zero.
type BaselineSet struct {
	Bandwidth  *BandwidthBaseline
	Latency    *LatencyBaseline
	Protocol   *ProtocolBaseline
	Connection *ConnectionBaseline
}
