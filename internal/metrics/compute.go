package metrics

import (
	"fmt"

	"NetMetrica/internal/model"
	"NetMetrica/internal/stats"
	"NetMetrica/internal/window"
)

// Options carries the tunables shared by the metric computers.
type Options struct {
	// ConnectionTimeoutS is the half-open connection timeout in seconds.
	ConnectionTimeoutS float64
	// MatchWindowS bounds RTT and request-response pairing in seconds.
	MatchWindowS float64
	// TopN caps the sorted protocol list.
	TopN int
	// Carryover, when non-nil, threads unresolved flow states between
	// consecutive windows. Nil keeps the default per-window tracking.
	Carryover *FlowCarryover
}

// DefaultOptions returns the standard computer tunables.
func DefaultOptions() Options {
	return Options{
		ConnectionTimeoutS: 120,
		MatchWindowS:       5,
		TopN:               10,
	}
}

// Compute runs every metric computer over one bucket and assembles the
// resulting MetricWindow.
func Compute(bucket window.Bucket, opts Options) *model.MetricWindow {
	w := &model.MetricWindow{
		WindowStart: bucket.Start,
		WindowEnd:   bucket.End,
		RecordCount: len(bucket.Records),

		Bandwidth:   ComputeBandwidth(bucket.Records),
		Latency:     ComputeLatency(bucket.Records, opts.MatchWindowS),
		Connections: ComputeConnections(bucket.Records, opts.ConnectionTimeoutS, opts.Carryover),
		Protocol:    ComputeProtocol(bucket.Records, opts.TopN),

		ScanActivity:        ComputeScanActivity(bucket.Records),
		RetransmissionStats: ComputeRetransmissionStats(bucket.Records),
	}
	w.PacketSize = computePacketSize(bucket.Records)
	w.TCPFlags = flagHistogram(bucket.Records)
	return w
}

func computePacketSize(records []model.PacketRecord) *model.PacketSizeStats {
	if len(records) == 0 {
		return nil
	}
	sizes := make([]float64, len(records))
	minSize, maxSize := records[0].Length, records[0].Length
	for i, r := range records {
		sizes[i] = float64(r.Length)
		if r.Length < minSize {
			minSize = r.Length
		}
		if r.Length > maxSize {
			maxSize = r.Length
		}
	}
	ps := stats.Percentiles(sizes, 50, 90, 99)
	return &model.PacketSizeStats{
		Min:    minSize,
		Max:    maxSize,
		Mean:   stats.Mean(sizes),
		Median: stats.Median(sizes),
		P50:    model.Float64(ps[0]),
		P90:    model.Float64(ps[1]),
		P99:    model.Float64(ps[2]),
	}
}

func flagHistogram(records []model.PacketRecord) map[string]int {
	var hist map[string]int
	for _, r := range records {
		if r.Flags == nil {
			continue
		}
		if hist == nil {
			hist = make(map[string]int)
		}
		hist[fmt.Sprintf("0x%02x", *r.Flags)]++
	}
	return hist
}
