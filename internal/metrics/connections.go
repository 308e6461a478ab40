package metrics

import (
	"sort"

	"NetMetrica/internal/model"
	"NetMetrica/internal/stats"
)

// flowState tracks one directional 4-tuple's handshake progress within a
// connection-metrics pass.
type flowState struct {
	synTS      float64
	seenSynAck bool
	seenAck    bool
	ackTS      float64
	lastTS     float64
	hasSyn     bool
}

// FlowCarryover threads unresolved flow states between consecutive window
// computations. By default each window rebuilds connection state from its
// own records, which undercounts connections spanning a window edge; pass
// the same FlowCarryover to consecutive ComputeConnections calls to opt in
// to cross-window tracking.
type FlowCarryover struct {
	states map[string]*flowState
}

// NewFlowCarryover returns an empty carry-over store.
func NewFlowCarryover() *FlowCarryover {
	return &FlowCarryover{states: make(map[string]*flowState)}
}

// ComputeConnections runs the simplified TCP lifecycle state machine over
// one window's records. SYN opens a pending flow, a reverse SYN-ACK marks it
// syn-acked, a later plain ACK on the original tuple completes it, RST on
// either direction counts a reset and clears both tuples. Pending flows
// older than timeoutS at the window's last timestamp count as half-open.
// carry may be nil for the default per-window behaviour.
func ComputeConnections(records []model.PacketRecord, timeoutS float64, carry *FlowCarryover) model.ConnectionMetrics {
	ordered := make([]*model.PacketRecord, 0, len(records))
	for i := range records {
		ordered = append(ordered, &records[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	state := make(map[string]*flowState)
	if carry != nil {
		for k, v := range carry.states {
			state[k] = v
		}
	}

	var m model.ConnectionMetrics
	flowBytes := make(map[string]int64)
	var durations []float64

	for _, r := range ordered {
		var flags uint8
		if r.Flags != nil {
			flags = *r.Flags
		}
		syn := flags&model.TCPSyn != 0
		ack := flags&model.TCPAck != 0
		rst := flags&model.TCPRst != 0

		key := r.FlowKey()
		rev := r.ReverseFlowKey()
		ts := r.Timestamp
		flowBytes[key] += int64(r.Length)

		switch {
		case syn && !ack:
			m.TotalAttempts++
			state[key] = &flowState{synTS: ts, lastTS: ts, hasSyn: true}

		case syn && ack:
			if st, ok := state[rev]; ok && st.hasSyn {
				st.seenSynAck = true
				st.lastTS = ts
			}

		case ack && !syn:
			if st, ok := state[key]; ok && st.seenSynAck && !st.seenAck {
				st.seenAck = true
				st.ackTS = ts
				durations = append(durations, ts-st.synTS)
				m.Successful++
			}
			if st, ok := state[key]; ok {
				st.lastTS = ts
			} else {
				state[key] = &flowState{lastTS: ts}
			}

		case rst:
			if _, a := state[key]; a {
				m.FailedResets++
				delete(state, key)
				delete(state, rev)
			} else if _, b := state[rev]; b {
				m.FailedResets++
				delete(state, key)
				delete(state, rev)
			}

		default:
			if st, ok := state[key]; ok {
				st.lastTS = ts
			}
		}
	}

	var now float64
	if len(ordered) > 0 {
		now = ordered[len(ordered)-1].Timestamp
	}
	pending := 0
	for key, st := range state {
		if st.hasSyn && !st.seenAck {
			pending++
			if now-st.synTS >= timeoutS {
				m.HalfOpen++
				delete(state, key)
			}
		}
	}
	m.ActiveConnections = m.Successful + pending - m.HalfOpen

	if len(durations) > 0 {
		m.AvgDurationS = model.Float64(stats.Mean(durations))
	}
	if m.Successful > 0 && len(flowBytes) > 0 {
		var vals []float64
		for _, b := range flowBytes {
			vals = append(vals, float64(b))
		}
		m.AvgBytesPerConn = model.Float64(stats.Mean(vals))
	}

	if carry != nil {
		carry.states = state
	}
	return m
}
