package metrics

import (
	"sort"

	"NetMetrica/internal/model"
)

// ComputeProtocol counts records by protocol tag. Records carrying only port
// information fall back to "transport"; records with nothing identifying
// fall back to "unknown". The top list holds at most topN entries sorted by
// count descending.
func ComputeProtocol(records []model.PacketRecord, topN int) model.ProtocolMetrics {
	m := model.ProtocolMetrics{
		Counts:      make(map[string]int),
		Percentages: make(map[string]float64),
	}
	srcPorts := make(map[int]int)
	dstPorts := make(map[int]int)

	for _, r := range records {
		proto := r.Protocol
		if proto == "" {
			if r.SrcPort != 0 || r.DstPort != 0 {
				proto = "transport"
			} else {
				proto = "unknown"
			}
		}
		m.Counts[proto]++
		m.Total++
		if r.SrcPort != 0 {
			srcPorts[r.SrcPort]++
		}
		if r.DstPort != 0 {
			dstPorts[r.DstPort]++
		}
	}
	if m.Total == 0 {
		return m
	}

	for proto, c := range m.Counts {
		m.Percentages[proto] = float64(c) / float64(m.Total) * 100
	}

	m.TopProtocols = make([]model.ProtocolShare, 0, len(m.Counts))
	for proto, c := range m.Counts {
		m.TopProtocols = append(m.TopProtocols, model.ProtocolShare{
			Protocol:   proto,
			Count:      c,
			Percentage: m.Percentages[proto],
		})
	}
	sort.Slice(m.TopProtocols, func(i, j int) bool {
		if m.TopProtocols[i].Count != m.TopProtocols[j].Count {
			return m.TopProtocols[i].Count > m.TopProtocols[j].Count
		}
		return m.TopProtocols[i].Protocol < m.TopProtocols[j].Protocol
	})
	if topN > 0 && len(m.TopProtocols) > topN {
		m.TopProtocols = m.TopProtocols[:topN]
	}

	m.TopSrcPorts = topPorts(srcPorts, 10)
	m.TopDstPorts = topPorts(dstPorts, 10)
	return m
}

func topPorts(byPort map[int]int, n int) []model.PortCount {
	if len(byPort) == 0 {
		return nil
	}
	out := make([]model.PortCount, 0, len(byPort))
	for p, c := range byPort {
		out = append(out, model.PortCount{Port: p, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Port < out[j].Port
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
