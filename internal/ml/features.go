// Package ml holds the feature extraction, sampling and novelty-scoring
// path for machine-learned anomaly detection.
package ml

import (
	"math"
	"strings"

	"NetMetrica/internal/model"
)

// FeatureNames lists the dimensions of a feature vector in order.
var FeatureNames = []string{
	"bytes_per_second",
	"packets_per_second",
	"avg_latency_ms",
	"latency_p99_ms",
	"tcp_rtt_ms",
	"active_connections",
	"tcp_percent",
	"udp_percent",
	"icmp_percent",
	"avg_packet_size",
}

// NumFeatures is the fixed dimensionality of a feature vector.
const NumFeatures = 10

// FeatureVector is one window's numeric representation. Extraction is
// deterministic: the same window always yields the same vector.
type FeatureVector [NumFeatures]float64

// Valid reports whether the vector is usable for training or scoring:
// every component finite and at least one non-zero.
func (v FeatureVector) Valid() bool {
	nonZero := false
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
		if x != 0 {
			nonZero = true
		}
	}
	return nonZero
}

// Extract derives the feature vector from one metric window. Missing
// statistics contribute zero.
func Extract(w *model.MetricWindow) FeatureVector {
	var v FeatureVector
	if w.Bandwidth.AvgBps != nil {
		v[0] = *w.Bandwidth.AvgBps
	}
	if w.Bandwidth.AvgPps != nil {
		v[1] = *w.Bandwidth.AvgPps
	}
	if w.Latency.RequestResponse.Mean != nil {
		v[2] = *w.Latency.RequestResponse.Mean
	}
	if w.Latency.RequestResponse.P99 != nil {
		v[3] = *w.Latency.RequestResponse.P99
	}
	if w.Latency.TCPRTT.Mean != nil {
		v[4] = *w.Latency.TCPRTT.Mean
	}
	v[5] = float64(w.Connections.ActiveConnections)

	tcp, udp, icmp := protocolShares(w.Protocol.Percentages)
	v[6], v[7], v[8] = tcp, udp, icmp

	v[9] = w.Bandwidth.AvgPacketSize
	return v
}

// protocolShares pulls the tcp/udp/icmp percentages and renormalizes them
// over their own sum so the three dimensions always describe relative mix.
func protocolShares(percentages map[string]float64) (tcp, udp, icmp float64) {
	for proto, pct := range percentages {
		switch strings.ToLower(proto) {
		case "tcp":
			tcp += pct
		case "udp":
			udp += pct
		case "icmp":
			icmp += pct
		}
	}
	total := tcp + udp + icmp
	if total > 0 {
		tcp = tcp / total * 100
		udp = udp / total * 100
		icmp = icmp / total * 100
	}
	return tcp, udp, icmp
}
