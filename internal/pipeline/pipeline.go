// Package pipeline chains ingest, windowing and metric computation into one
// runner: normalize -> deduplicate -> window -> parallel per-window compute.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"NetMetrica/internal/ingest"
	"NetMetrica/internal/metrics"
	"NetMetrica/internal/model"
	"NetMetrica/internal/window"
)

// Config carries the runner's tunables.
type Config struct {
	// WindowSizeS is the bucket duration in seconds.
	WindowSizeS float64
	// RecordCap bounds memory: when more records survive dedup, only the
	// most recent RecordCap are kept. Zero disables the cap.
	RecordCap int
	// DedupToleranceMs is the timestamp rounding tolerance for the dedup
	// signature.
	DedupToleranceMs int
	// NumWorkers sizes the per-window compute pool. Values below 1 fall
	// back to 1.
	NumWorkers int
	// Metrics are the computer tunables passed through to each window.
	Metrics metrics.Options
}

// DefaultConfig returns the standard runner configuration.
func DefaultConfig() Config {
	return Config{
		WindowSizeS:      10,
		RecordCap:        100000,
		DedupToleranceMs: 1,
		NumWorkers:       4,
		Metrics:          metrics.DefaultOptions(),
	}
}

// Runner turns raw record batches into ordered MetricWindows.
type Runner struct {
	cfg Config
	log *logrus.Entry
}

// NewRunner validates cfg and builds a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.WindowSizeS <= 0 {
		return nil, fmt.Errorf("pipeline: window size must be positive, got %g", cfg.WindowSizeS)
	}
	if cfg.RecordCap < 0 {
		return nil, fmt.Errorf("pipeline: record cap must be non-negative, got %d", cfg.RecordCap)
	}
	if cfg.NumWorkers < 1 {
		cfg.NumWorkers = 1
	}
	return &Runner{
		cfg: cfg,
		log: logrus.WithField("component", "pipeline"),
	}, nil
}

// Run normalizes and deduplicates raw records, then computes windows.
func (r *Runner) Run(ctx context.Context, raws []map[string]any) ([]*model.MetricWindow, error) {
	records := ingest.NormalizeBatch(raws)
	return r.RunRecords(ctx, records)
}

// RunRecords deduplicates already-normalized records, windows them and
// computes one MetricWindow per non-empty bucket, returned in window_start
// order. Cancelling ctx stops the computation early.
func (r *Runner) RunRecords(ctx context.Context, records []model.PacketRecord) ([]*model.MetricWindow, error) {
	deduped := ingest.Deduplicate(records, r.cfg.DedupToleranceMs)
	if dropped := len(records) - len(deduped); dropped > 0 {
		r.log.WithField("dropped", dropped).Debug("removed duplicate records")
	}
	if r.cfg.RecordCap > 0 && len(deduped) > r.cfg.RecordCap {
		r.log.WithFields(logrus.Fields{
			"records": len(deduped),
			"cap":     r.cfg.RecordCap,
		}).Warn("record cap exceeded, keeping most recent records")
		deduped = deduped[len(deduped)-r.cfg.RecordCap:]
	}

	buckets, skipped, err := window.Slice(deduped, r.cfg.WindowSizeS)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.log.WithField("skipped", skipped).Warn("dropped records with unparsable timestamps")
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	// Cross-window flow state forces sequential computation.
	if r.cfg.Metrics.Carryover != nil || r.cfg.NumWorkers == 1 {
		return r.computeSequential(ctx, buckets)
	}
	return r.computeParallel(ctx, buckets)
}

func (r *Runner) computeSequential(ctx context.Context, buckets []window.Bucket) ([]*model.MetricWindow, error) {
	out := make([]*model.MetricWindow, 0, len(buckets))
	for _, b := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, metrics.Compute(b, r.cfg.Metrics))
	}
	return out, nil
}

func (r *Runner) computeParallel(ctx context.Context, buckets []window.Bucket) ([]*model.MetricWindow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*model.MetricWindow, len(buckets))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := r.cfg.NumWorkers
	if workers > len(buckets) {
		workers = len(buckets)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = metrics.Compute(buckets[idx], r.cfg.Metrics)
			}
		}()
	}

	var cancelled error
feed:
	for i := range buckets {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	// slots are indexed by bucket, so order already matches window_start
	return out, nil
}
