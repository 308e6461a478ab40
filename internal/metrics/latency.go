package metrics

import (
	"sort"

	"NetMetrica/internal/model"
	"NetMetrica/internal/stats"
)

// maxRetainedSamples caps the raw samples kept on a LatencyStats for
// inspection; the summary statistics use the full sample set.
const maxRetainedSamples = 100

// ComputeLatency runs both latency estimators over one window's records.
// maxWindowS bounds how far apart a request and its match may be; pairs
// outside [0, maxWindowS] are discarded.
func ComputeLatency(records []model.PacketRecord, maxWindowS float64) model.LatencyMetrics {
	return model.LatencyMetrics{
		TCPRTT:          summarize(estimateTCPRTT(records, maxWindowS)),
		RequestResponse: summarize(estimateRequestResponse(records, maxWindowS)),
	}
}

// estimateTCPRTT measures SYN to SYN-ACK intervals. A pure SYN opens a
// pending entry on its 4-tuple; a SYN+ACK closes the pending entry on the
// reverse tuple, yielding one RTT sample.
func estimateTCPRTT(records []model.PacketRecord, maxWindowS float64) []float64 {
	pending := make(map[string]float64)
	var rtts []float64

	for i := range records {
		r := &records[i]
		if r.Flags == nil || !r.HasEndpoints() {
			continue
		}
		syn := r.HasFlag(model.TCPSyn)
		ack := r.HasFlag(model.TCPAck)

		switch {
		case syn && !ack:
			pending[r.FlowKey()] = r.Timestamp
		case syn && ack:
			if synTS, ok := pending[r.ReverseFlowKey()]; ok {
				delete(pending, r.ReverseFlowKey())
				if d := r.Timestamp - synTS; d >= 0 && d <= maxWindowS {
					rtts = append(rtts, d)
				}
			}
		}
	}
	return rtts
}

// estimateRequestResponse pairs packets with the next reverse-direction
// packet on the same 4-tuple. Records are processed in timestamp order;
// only the earliest pending request per tuple is kept.
func estimateRequestResponse(records []model.PacketRecord, maxWindowS float64) []float64 {
	ordered := make([]*model.PacketRecord, 0, len(records))
	for i := range records {
		if records[i].HasEndpoints() {
			ordered = append(ordered, &records[i])
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	pending := make(map[string]float64)
	var latencies []float64
	for _, r := range ordered {
		rev := r.ReverseFlowKey()
		if reqTS, ok := pending[rev]; ok {
			delete(pending, rev)
			if d := r.Timestamp - reqTS; d >= 0 && d <= maxWindowS {
				latencies = append(latencies, d)
			}
			continue
		}
		key := r.FlowKey()
		if _, ok := pending[key]; !ok {
			pending[key] = r.Timestamp
		}
	}
	return latencies
}

func summarize(samples []float64) model.LatencyStats {
	s := model.LatencyStats{Count: len(samples)}
	if len(samples) == 0 {
		return s
	}
	s.Mean = model.Float64(stats.Mean(samples))
	s.Median = model.Float64(stats.Median(samples))
	ps := stats.Percentiles(samples, 50, 90, 99)
	s.P50 = model.Float64(ps[0])
	s.P90 = model.Float64(ps[1])
	s.P99 = model.Float64(ps[2])
	if len(samples) > maxRetainedSamples {
		samples = samples[:maxRetainedSamples]
	}
	s.Samples = samples
	return s
}
