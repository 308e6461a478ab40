package model

import (
	"fmt"
	"strconv"
)

// TCP flag bits as they appear in the canonical record's Flags field.
const (
	TCPFin uint8 = 0x01
	TCPSyn uint8 = 0x02
	TCPRst uint8 = 0x04
	TCPAck uint8 = 0x10
)

// PacketRecord is the canonical, normalized form of a single observed packet.
// It is produced once by the ingest normalizer and immutable afterwards.
// Optional fields use pointers so "absent" is distinguishable from zero.
type PacketRecord struct {
	Timestamp float64 `json:"timestamp"` // epoch seconds
	SrcIP     string  `json:"src_ip,omitempty"`
	DstIP     string  `json:"dst_ip,omitempty"`
	SrcPort   int     `json:"src_port,omitempty"`
	DstPort   int     `json:"dst_port,omitempty"`
	Protocol  string  `json:"protocol,omitempty"`
	Length    int     `json:"length"`
	Flags     *uint8  `json:"flags,omitempty"`
	Seq       *uint32 `json:"seq,omitempty"`
	Ack       *uint32 `json:"ack,omitempty"`
	FrameNum  *uint64 `json:"frame_number,omitempty"`
}

// FlowKey returns the directional 4-tuple key for this record.
func (r *PacketRecord) FlowKey() string {
	return r.SrcIP + "|" + r.DstIP + "|" + strconv.Itoa(r.SrcPort) + "|" + strconv.Itoa(r.DstPort)
}

// ReverseFlowKey returns the 4-tuple key of the opposite direction.
func (r *PacketRecord) ReverseFlowKey() string {
	return r.DstIP + "|" + r.SrcIP + "|" + strconv.Itoa(r.DstPort) + "|" + strconv.Itoa(r.SrcPort)
}

// HasEndpoints reports whether both IPs and both ports are present.
func (r *PacketRecord) HasEndpoints() bool {
	return r.SrcIP != "" && r.DstIP != "" && r.SrcPort != 0 && r.DstPort != 0
}

// HasFlag reports whether the record carries TCP flags and the given bit is set.
func (r *PacketRecord) HasFlag(bit uint8) bool {
	return r.Flags != nil && *r.Flags&bit != 0
}

// HostBytes is one entry of a top-talkers list.
type HostBytes struct {
	Host  string `json:"host"`
	Bytes int64  `json:"bytes"`
}

// PortCount is one entry of a top-ports list.
type PortCount struct {
	Port  int `json:"port"`
	Count int `json:"count"`
}

// BandwidthMetrics holds per-window throughput aggregates.
type BandwidthMetrics struct {
	TotalBytes    int64       `json:"total_bytes"`
	TotalPackets  int         `json:"total_packets"`
	DurationS     float64     `json:"duration_s"`
	AvgBps        *float64    `json:"avg_bps"`
	AvgPps        *float64    `json:"avg_pps"`
	AvgPacketSize float64     `json:"avg_packet_size"`
	TopSrcBytes   []HostBytes `json:"top_src_bytes,omitempty"`
	TopDstBytes   []HostBytes `json:"top_dst_bytes,omitempty"`
}

// LatencyStats summarizes one latency estimator's samples within a window.
// Mean/median/percentiles are nil when no samples were matched.
type LatencyStats struct {
	Count   int       `json:"count"`
	Mean    *float64  `json:"mean"`
	Median  *float64  `json:"median"`
	P50     *float64  `json:"p50"`
	P90     *float64  `json:"p90"`
	P99     *float64  `json:"p99"`
	Samples []float64 `json:"samples,omitempty"` // capped for inspection
}

// LatencyMetrics holds the two independent latency estimators.
type LatencyMetrics struct {
	TCPRTT          LatencyStats `json:"tcp_rtt"`
	RequestResponse LatencyStats `json:"request_response"`
}

// ConnectionMetrics holds the TCP lifecycle counters for one window.
type ConnectionMetrics struct {
	TotalAttempts     int      `json:"total_attempts"`
	Successful        int      `json:"successful"`
	FailedResets      int      `json:"failed_resets"`
	HalfOpen          int      `json:"half_open"`
	ActiveConnections int      `json:"active_connections"`
	AvgDurationS      *float64 `json:"avg_duration_s"`
	AvgBytesPerConn   *float64 `json:"avg_bytes_per_conn"`
}

// ProtocolShare is one entry of the sorted protocol distribution.
type ProtocolShare struct {
	Protocol   string  `json:"protocol"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ProtocolMetrics holds the per-window protocol mix.
type ProtocolMetrics struct {
	Total        int                `json:"total"`
	Counts       map[string]int     `json:"counts"`
	Percentages  map[string]float64 `json:"percentages"`
	TopProtocols []ProtocolShare    `json:"top_protocols,omitempty"`
	TopSrcPorts  []PortCount        `json:"top_src_ports,omitempty"`
	TopDstPorts  []PortCount        `json:"top_dst_ports,omitempty"`
}

// ScanActivity aggregates SYN behaviour of one source IP within a window.
type ScanActivity struct {
	SrcIP          string `json:"src_ip"`
	SYNCount       int    `json:"syn_count"`
	UniqueDstPorts int    `json:"unique_dst_ports"`
	DstPorts       []int  `json:"dst_ports,omitempty"`
	TotalPackets   int    `json:"total_packets"`
	HasResponses   bool   `json:"has_responses"`
}

// FlowRetransmission holds one flow's retransmission rate within a window.
type FlowRetransmission struct {
	SrcIP              string  `json:"src_ip"`
	DstIP              string  `json:"dst_ip"`
	SrcPort            int     `json:"src_port"`
	DstPort            int     `json:"dst_port"`
	Protocol           string  `json:"protocol"`
	PacketCount        int     `json:"packet_count"`
	RetransmissionCount int    `json:"retransmission_count"`
	RetransmissionRate float64 `json:"retransmission_rate"` // percent
}

// PacketSizeStats describes the packet-size distribution of a window.
type PacketSizeStats struct {
	Min    int      `json:"min"`
	Max    int      `json:"max"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	P50    *float64 `json:"p50"`
	P90    *float64 `json:"p90"`
	P99    *float64 `json:"p99"`
}

// MetricWindow is the computed view of one half-open time bucket
// [WindowStart, WindowEnd). It is created once per window by the pipeline
// and never mutated after computation.
type MetricWindow struct {
	WindowStart float64 `json:"window_start"`
	WindowEnd   float64 `json:"window_end"`
	RecordCount int     `json:"record_count"`

	Bandwidth   BandwidthMetrics  `json:"bandwidth"`
	Latency     LatencyMetrics    `json:"latency"`
	Connections ConnectionMetrics `json:"connections"`
	Protocol    ProtocolMetrics   `json:"protocol"`

	PacketSize *PacketSizeStats `json:"pkt_size,omitempty"`
	TCPFlags   map[string]int   `json:"tcp_flags,omitempty"`

	ScanActivity        []ScanActivity       `json:"scan_activity,omitempty"`
	RetransmissionStats []FlowRetransmission `json:"retransmission_stats,omitempty"`
}

// Label returns a short human-readable identifier for logging.
func (w *MetricWindow) Label() string {
	return fmt.Sprintf("[%.3f,%.3f)", w.WindowStart, w.WindowEnd)
}

// Float64 returns a pointer to v. Shorthand for building optional fields.
func Float64(v float64) *float64 { return &v }
