package metrics

import (
	"math"
	"sort"
	"strings"

	"NetMetrica/internal/model"
)

// flowAgg accumulates directional 5-tuple flow counters used by the scan
// and retransmission views.
type flowAgg struct {
	srcIP, dstIP     string
	srcPort, dstPort int
	protocol         string
	packets          int
	synCount         int
	ackCount         int
	retransmissions  int
	lastSeq          *uint32
}

// ComputeScanActivity aggregates per-source-IP SYN behaviour, the port-scan
// detection input. Destination ports are reported sorted; HasResponses is
// set when any flow from the source saw an ACK.
func ComputeScanActivity(records []model.PacketRecord) []model.ScanActivity {
	flows := aggregateFlows(records)

	type srcAgg struct {
		synCount     int
		totalPackets int
		hasResponses bool
		dstPorts     map[int]struct{}
	}
	bySrc := make(map[string]*srcAgg)
	for _, f := range flows {
		agg, ok := bySrc[f.srcIP]
		if !ok {
			agg = &srcAgg{dstPorts: make(map[int]struct{})}
			bySrc[f.srcIP] = agg
		}
		agg.synCount += f.synCount
		agg.totalPackets += f.packets
		agg.dstPorts[f.dstPort] = struct{}{}
		if f.ackCount > 0 {
			agg.hasResponses = true
		}
	}

	out := make([]model.ScanActivity, 0, len(bySrc))
	for src, agg := range bySrc {
		ports := make([]int, 0, len(agg.dstPorts))
		for p := range agg.dstPorts {
			ports = append(ports, p)
		}
		sort.Ints(ports)
		out = append(out, model.ScanActivity{
			SrcIP:          src,
			SYNCount:       agg.synCount,
			UniqueDstPorts: len(ports),
			DstPorts:       ports,
			TotalPackets:   agg.totalPackets,
			HasResponses:   agg.hasResponses,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SYNCount != out[j].SYNCount {
			return out[i].SYNCount > out[j].SYNCount
		}
		return out[i].SrcIP < out[j].SrcIP
	})
	return out
}

// ComputeRetransmissionStats reports per-TCP-flow retransmission rates,
// sorted by rate descending. A retransmission is a repeated sequence number
// within the same flow.
func ComputeRetransmissionStats(records []model.PacketRecord) []model.FlowRetransmission {
	flows := aggregateFlows(records)

	var out []model.FlowRetransmission
	for _, f := range flows {
		if !strings.EqualFold(f.protocol, "tcp") || f.packets == 0 {
			continue
		}
		rate := 100 * float64(f.retransmissions) / float64(f.packets)
		out = append(out, model.FlowRetransmission{
			SrcIP:               f.srcIP,
			DstIP:               f.dstIP,
			SrcPort:             f.srcPort,
			DstPort:             f.dstPort,
			Protocol:            f.protocol,
			PacketCount:         f.packets,
			RetransmissionCount: f.retransmissions,
			RetransmissionRate:  math.Round(rate*100) / 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RetransmissionRate != out[j].RetransmissionRate {
			return out[i].RetransmissionRate > out[j].RetransmissionRate
		}
		return out[i].SrcIP < out[j].SrcIP
	})
	return out
}

func aggregateFlows(records []model.PacketRecord) []*flowAgg {
	byKey := make(map[string]*flowAgg)
	var order []*flowAgg
	for i := range records {
		r := &records[i]
		if r.SrcIP == "" || r.DstIP == "" {
			continue
		}
		key := r.FlowKey() + "|" + r.Protocol
		f, ok := byKey[key]
		if !ok {
			f = &flowAgg{
				srcIP: r.SrcIP, dstIP: r.DstIP,
				srcPort: r.SrcPort, dstPort: r.DstPort,
				protocol: r.Protocol,
			}
			byKey[key] = f
			order = append(order, f)
		}
		f.packets++
		if r.HasFlag(model.TCPSyn) {
			f.synCount++
		}
		if r.HasFlag(model.TCPAck) {
			f.ackCount++
		}
		if r.Seq != nil {
			if f.lastSeq != nil && *f.lastSeq == *r.Seq {
				f.retransmissions++
			}
			f.lastSeq = r.Seq
		}
	}
	return order
}
