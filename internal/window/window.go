// Package window tiles a record stream into fixed-duration, half-open
// time buckets.
package window

import (
	"fmt"
	"math"
	"sort"

	"NetMetrica/internal/model"
)

// Bucket is one half-open interval [Start, End) and the records whose
// timestamps fall inside it.
type Bucket struct {
	Start   float64
	End     float64
	Records []model.PacketRecord
}

// Slice buckets records into contiguous windows of sizeS seconds starting at
// the earliest valid timestamp. A record exactly on a boundary joins the
// window starting there. Buckets holding zero records are not emitted.
// Records with non-finite timestamps are dropped; skipped reports how many.
func Slice(records []model.PacketRecord, sizeS float64) (buckets []Bucket, skipped int, err error) {
	if sizeS <= 0 {
		return nil, 0, fmt.Errorf("window size must be positive, got %g", sizeS)
	}

	valid := make([]model.PacketRecord, 0, len(records))
	for _, r := range records {
		if math.IsNaN(r.Timestamp) || math.IsInf(r.Timestamp, 0) {
			skipped++
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return nil, skipped, nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp < valid[j].Timestamp
	})

	t0 := valid[0].Timestamp
	byIndex := make(map[int][]model.PacketRecord)
	for _, r := range valid {
		k := int(math.Floor((r.Timestamp - t0) / sizeS))
		byIndex[k] = append(byIndex[k], r)
	}

	keys := make([]int, 0, len(byIndex))
	for k := range byIndex {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	buckets = make([]Bucket, 0, len(keys))
	for _, k := range keys {
		start := t0 + float64(k)*sizeS
		buckets = append(buckets, Bucket{
			Start:   start,
			End:     start + sizeS,
			Records: byIndex[k],
		})
	}
	return buckets, skipped, nil
}
