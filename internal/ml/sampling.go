package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"NetMetrica/internal/model"
)

// Sampling strategies for training-corpus construction.
const (
	StrategyUniform    = "uniform"
	StrategyStratified = "stratified"
	StrategySystematic = "systematic"
)

// BatchOptions controls the optional sampling stage of ExtractBatch.
type BatchOptions struct {
	// SampleRate is the fraction of valid vectors to keep, in (0, 1].
	// Zero means keep everything.
	SampleRate float64
	// Strategy selects how samples are drawn; defaults to uniform.
	Strategy string
	// Seed drives the random strategies; a fixed seed makes sampling
	// reproducible.
	Seed int64
}

// SampleInfo describes what the sampling stage did.
type SampleInfo struct {
	TotalWindows     int     `json:"total_windows"`
	ValidSamples     int     `json:"valid_samples_found"`
	SelectedSamples  int     `json:"selected_samples"`
	SampleRateActual float64 `json:"sample_rate_actual"`
	Strategy         string  `json:"strategy"`
}

// ExtractBatch extracts feature vectors from windows, dropping invalid
// vectors, then optionally samples them down. Returned indices refer to
// positions in the windows slice.
func ExtractBatch(windows []*model.MetricWindow, opts BatchOptions) ([]FeatureVector, []int, SampleInfo, error) {
	info := SampleInfo{TotalWindows: len(windows), Strategy: opts.Strategy}
	if info.Strategy == "" {
		info.Strategy = StrategyUniform
	}
	if opts.SampleRate < 0 || opts.SampleRate > 1 {
		return nil, nil, info, fmt.Errorf("ml: sample rate must be in (0, 1], got %g", opts.SampleRate)
	}
	switch info.Strategy {
	case StrategyUniform, StrategyStratified, StrategySystematic:
	default:
		return nil, nil, info, fmt.Errorf("ml: unknown sampling strategy %q", opts.Strategy)
	}

	var vectors []FeatureVector
	var indices []int
	for i, w := range windows {
		v := Extract(w)
		if v.Valid() {
			vectors = append(vectors, v)
			indices = append(indices, i)
		}
	}
	info.ValidSamples = len(vectors)
	if len(vectors) == 0 {
		return nil, nil, info, nil
	}

	selected := allIndices(len(vectors))
	if opts.SampleRate > 0 && opts.SampleRate < 1 {
		n := int(float64(len(vectors)) * opts.SampleRate)
		if n < 1 {
			n = 1
		}
		rng := rand.New(rand.NewSource(opts.Seed))
		switch info.Strategy {
		case StrategyUniform:
			selected = sampleUniform(rng, len(vectors), n)
		case StrategyStratified:
			selected = sampleStratified(rng, len(vectors), n, opts.SampleRate)
		case StrategySystematic:
			selected = sampleSystematic(len(vectors), n)
		}
	}

	outVectors := make([]FeatureVector, len(selected))
	outIndices := make([]int, len(selected))
	for i, idx := range selected {
		outVectors[i] = vectors[idx]
		outIndices[i] = indices[idx]
	}
	info.SelectedSamples = len(selected)
	info.SampleRateActual = float64(len(selected)) / float64(len(vectors))
	return outVectors, outIndices, info, nil
}

// RecommendSampleRate picks the sampling rate by corpus size. Novelty
// scorers train well on 500-5000 samples, so larger corpora are thinned.
func RecommendSampleRate(totalSamples int) (rate float64, reason string) {
	switch {
	case totalSamples <= 500:
		return 1.0, "dataset is small, use all samples"
	case totalSamples <= 5000:
		return 1.0, "dataset size is in the optimal training range"
	case totalSamples <= 10000:
		return 0.8, "slightly large, keep 80% to reduce training time"
	case totalSamples <= 50000:
		return 0.5, "keep 50% to approach the optimal range"
	default:
		return 0.25, "very large dataset, keep 25% for efficiency"
	}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func sampleUniform(rng *rand.Rand, total, n int) []int {
	perm := rng.Perm(total)[:n]
	sort.Ints(perm)
	return perm
}

// sampleStratified partitions the sequence into ceil(sqrt(total)) chunks
// and samples proportionally within each, preserving temporal coverage.
func sampleStratified(rng *rand.Rand, total, n int, rate float64) []int {
	chunks := int(math.Sqrt(float64(total)))
	if chunks < 5 {
		chunks = 5
	}
	if chunks > total {
		chunks = total
	}
	chunkSize := total / chunks

	var selected []int
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if c == chunks-1 {
			end = total
		}
		want := int(float64(end-start) * rate)
		if want < 1 {
			want = 1
		}
		if want > end-start {
			want = end - start
		}
		for _, off := range rng.Perm(end - start)[:want] {
			selected = append(selected, start+off)
		}
	}
	sort.Ints(selected)
	if len(selected) > n {
		selected = selected[:n]
	}
	return selected
}

func sampleSystematic(total, n int) []int {
	step := total / n
	if step < 1 {
		step = 1
	}
	var out []int
	for i := 0; i < total && len(out) < n; i += step {
		out = append(out, i)
	}
	return out
}
