// Package ingest normalizes heterogeneous packet-record shapes into the
// canonical schema and removes duplicate observations of the same packet.
package ingest

import (
	"fmt"
	"math"
	"strconv"

	"NetMetrica/internal/model"
)

// Alias groups accepted for each canonical field. Parsers disagree on
// naming, so the first populated alias wins.
var (
	srcIPKeys   = []string{"src_ip", "source_ip", "src"}
	dstIPKeys   = []string{"dst_ip", "dest_ip", "dst"}
	srcPortKeys = []string{"src_port", "sport", "source_port"}
	dstPortKeys = []string{"dst_port", "dport", "dest_port"}
	lengthKeys  = []string{"length", "packet_len", "payload_len"}
	frameKeys   = []string{"frame_number", "frame_no", "frame_idx", "frame_num"}
)

// Normalize maps a raw record with arbitrary known alias field names into a
// canonical PacketRecord. It never fails: missing fields degrade to zero
// values and an unparsable timestamp becomes NaN, which the windower drops.
func Normalize(raw map[string]any) model.PacketRecord {
	rec := model.PacketRecord{
		Timestamp: toFloat(raw["timestamp"]),
		SrcIP:     firstString(raw, srcIPKeys),
		DstIP:     firstString(raw, dstIPKeys),
		SrcPort:   firstInt(raw, srcPortKeys),
		DstPort:   firstInt(raw, dstPortKeys),
	}

	for _, k := range lengthKeys {
		if v, ok := raw[k]; ok && v != nil {
			if n, ok := toInt(v); ok {
				rec.Length = n
				break
			}
		}
	}

	if p, ok := raw["protocol"].(string); ok && p != "" {
		rec.Protocol = p
	} else if et, ok := raw["eth_type"].(string); ok {
		rec.Protocol = et
	}

	if v, ok := lookupAny(raw, "flags", "tcp_flags"); ok {
		if n, ok := toInt(v); ok && n >= 0 && n <= 0xff {
			f := uint8(n)
			rec.Flags = &f
		}
	}
	if v, ok := lookupAny(raw, "seq", "tcp_seq"); ok {
		if n, ok := toInt(v); ok && n >= 0 {
			s := uint32(n)
			rec.Seq = &s
		}
	}
	if v, ok := lookupAny(raw, "ack", "tcp_ack"); ok {
		if n, ok := toInt(v); ok && n >= 0 {
			a := uint32(n)
			rec.Ack = &a
		}
	}
	for _, k := range frameKeys {
		if v, ok := raw[k]; ok && v != nil {
			if n, ok := toInt(v); ok && n >= 0 {
				fn := uint64(n)
				rec.FrameNum = &fn
				break
			}
		}
	}

	return rec
}

// NormalizeBatch applies Normalize to every raw record in order.
func NormalizeBatch(raws []map[string]any) []model.PacketRecord {
	out := make([]model.PacketRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// Deduplicate drops records repeating an earlier record's signature,
// preserving first-seen order. A frame number is a unique identity when
// present; otherwise the signature is the timestamp rounded to toleranceMs
// milliseconds plus the 5-tuple, length and protocol. Idempotent.
func Deduplicate(records []model.PacketRecord, toleranceMs int) []model.PacketRecord {
	if toleranceMs < 1 {
		toleranceMs = 1
	}
	seen := make(map[string]struct{}, len(records))
	out := make([]model.PacketRecord, 0, len(records))
	for _, r := range records {
		sig := signature(&r, toleranceMs)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, r)
	}
	return out
}

func signature(r *model.PacketRecord, toleranceMs int) string {
	if r.FrameNum != nil {
		return fmt.Sprintf("frame|%d", *r.FrameNum)
	}
	var rounded string
	if math.IsNaN(r.Timestamp) || math.IsInf(r.Timestamp, 0) {
		rounded = "?"
	} else {
		rounded = strconv.FormatInt(int64(math.Round(r.Timestamp*1000/float64(toleranceMs))), 10)
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%s",
		rounded, r.SrcIP, r.DstIP, r.SrcPort, r.DstPort, r.Length, r.Protocol)
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstInt(raw map[string]any, keys []string) int {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if n, ok := toInt(v); ok {
				return n
			}
		}
	}
	return 0
}

func lookupAny(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return math.NaN()
		}
		return parsed
	}
	return math.NaN()
}
