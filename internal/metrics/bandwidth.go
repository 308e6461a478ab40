// Package metrics computes per-window traffic metrics. Every computer is a
// pure function over one window's record set, so the pipeline can run them
// in parallel across windows.
package metrics

import (
	"sort"

	"NetMetrica/internal/model"
)

// ComputeBandwidth aggregates throughput metrics over records. Duration is
// the max-min timestamp spread (0 when fewer than two records carry a
// timestamp); rates are nil when the duration is zero.
func ComputeBandwidth(records []model.PacketRecord) model.BandwidthMetrics {
	var m model.BandwidthMetrics
	srcBytes := make(map[string]int64)
	dstBytes := make(map[string]int64)

	var minTS, maxTS float64
	seenTS := 0
	for _, r := range records {
		size := int64(r.Length)
		m.TotalBytes += size
		m.TotalPackets++
		if r.SrcIP != "" {
			srcBytes[r.SrcIP] += size
		}
		if r.DstIP != "" {
			dstBytes[r.DstIP] += size
		}
		if seenTS == 0 || r.Timestamp < minTS {
			minTS = r.Timestamp
		}
		if seenTS == 0 || r.Timestamp > maxTS {
			maxTS = r.Timestamp
		}
		seenTS++
	}

	if seenTS > 1 {
		m.DurationS = maxTS - minTS
	}
	if m.DurationS > 0 {
		m.AvgBps = model.Float64(float64(m.TotalBytes) / m.DurationS)
		m.AvgPps = model.Float64(float64(m.TotalPackets) / m.DurationS)
	}
	if m.TotalPackets > 0 {
		m.AvgPacketSize = float64(m.TotalBytes) / float64(m.TotalPackets)
	}
	m.TopSrcBytes = topHosts(srcBytes, 10)
	m.TopDstBytes = topHosts(dstBytes, 10)
	return m
}

// BandwidthTotals computes the whole-capture bandwidth summary, the
// non-windowed view used for capture-level reporting.
func BandwidthTotals(records []model.PacketRecord) model.BandwidthMetrics {
	return ComputeBandwidth(records)
}

func topHosts(byHost map[string]int64, n int) []model.HostBytes {
	if len(byHost) == 0 {
		return nil
	}
	out := make([]model.HostBytes, 0, len(byHost))
	for host, b := range byHost {
		out = append(out, model.HostBytes{Host: host, Bytes: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Host < out[j].Host
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
