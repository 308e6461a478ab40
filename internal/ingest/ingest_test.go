package ingest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

func TestNormalizeAliases(t *testing.T) {
	// 1. alternate alias names resolve into the canonical schema
	raw := map[string]any{
		"timestamp":   1.5,
		"source_ip":   "10.0.0.1",
		"dest_ip":     "10.0.0.2",
		"sport":       float64(443),
		"dport":       "8080",
		"packet_len":  float64(1500),
		"eth_type":    "IPv4",
		"tcp_flags":   float64(0x12),
		"tcp_seq":     float64(1000),
		"frame_no":    float64(7),
	}
	rec := Normalize(raw)
	assert.Equal(t, 1.5, rec.Timestamp)
	assert.Equal(t, "10.0.0.1", rec.SrcIP)
	assert.Equal(t, "10.0.0.2", rec.DstIP)
	assert.Equal(t, 443, rec.SrcPort)
	assert.Equal(t, 8080, rec.DstPort)
	assert.Equal(t, 1500, rec.Length)
	assert.Equal(t, "IPv4", rec.Protocol)
	require.NotNil(t, rec.Flags)
	assert.Equal(t, uint8(0x12), *rec.Flags)
	require.NotNil(t, rec.Seq)
	assert.Equal(t, uint32(1000), *rec.Seq)
	require.NotNil(t, rec.FrameNum)
	assert.Equal(t, uint64(7), *rec.FrameNum)

	// 2. canonical names take precedence over aliases
	rec = Normalize(map[string]any{
		"timestamp": float64(2),
		"src_ip":    "a", "src": "b",
		"protocol": "tcp", "eth_type": "IPv4",
	})
	assert.Equal(t, "a", rec.SrcIP)
	assert.Equal(t, "tcp", rec.Protocol)
}

func TestNormalizeDefaults(t *testing.T) {
	// missing fields degrade to defaults, never an error
	rec := Normalize(map[string]any{})
	assert.True(t, math.IsNaN(rec.Timestamp))
	assert.Equal(t, 0, rec.Length)
	assert.Equal(t, "", rec.Protocol)
	assert.Nil(t, rec.Flags)
	assert.Nil(t, rec.Seq)
	assert.Nil(t, rec.FrameNum)

	rec = Normalize(map[string]any{"timestamp": "not-a-number"})
	assert.True(t, math.IsNaN(rec.Timestamp))
}

func makeRec(ts float64, src string, frame *uint64) model.PacketRecord {
	return model.PacketRecord{
		Timestamp: ts, SrcIP: src, DstIP: "10.0.0.9",
		SrcPort: 1234, DstPort: 80, Protocol: "tcp", Length: 60,
		FrameNum: frame,
	}
}

func TestDeduplicateByFrameNumber(t *testing.T) {
	f1, f2 := uint64(1), uint64(2)
	records := []model.PacketRecord{
		makeRec(1.0, "a", &f1),
		makeRec(9.9, "zzz", &f1), // same frame id, different content
		makeRec(1.0, "a", &f2),
	}
	out := Deduplicate(records, 1)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].SrcIP)
	assert.Equal(t, uint64(2), *out[1].FrameNum)
}

func TestDeduplicateBySignature(t *testing.T) {
	records := []model.PacketRecord{
		makeRec(1.0000, "a", nil),
		makeRec(1.0004, "a", nil), // rounds to the same millisecond
		makeRec(1.0020, "a", nil), // outside 1ms tolerance
		makeRec(1.0000, "b", nil), // different 5-tuple
	}
	out := Deduplicate(records, 1)
	assert.Len(t, out, 3)
	// first occurrence wins
	assert.Equal(t, 1.0, out[0].Timestamp)
}

func TestDeduplicateIdempotent(t *testing.T) {
	records := []model.PacketRecord{
		makeRec(1.0, "a", nil),
		makeRec(1.0, "a", nil),
		makeRec(2.0, "b", nil),
	}
	once := Deduplicate(records, 1)
	twice := Deduplicate(once, 1)
	assert.Equal(t, once, twice)
}
