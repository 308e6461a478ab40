package anomaly

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Engine runs every rule detector over metric windows and retains the
// detection history for the process lifetime. It owns its history: callers
// hold a handle rather than sharing global state.
type Engine struct {
	baselines *model.BaselineSet
	detectors []model.Detector
	workers   int
	log       *logrus.Entry

	mu      sync.Mutex
	history []*model.DetectionResult
}

// NewEngine builds an Engine over the given baselines. A nil set disables
// the baseline-dependent detectors but scan and loss detection still run.
func NewEngine(baselines *model.BaselineSet) *Engine {
	return &Engine{
		baselines: baselines,
		detectors: []model.Detector{
			SpikeDetector{},
			ScanDetector{},
			LatencyDetector{},
			LossDetector{},
			ProtocolDetector{},
			LongConnDetector{},
		},
		workers: 4,
		log:     logrus.WithField("component", "anomaly-engine"),
	}
}

// SetWorkers sizes the BatchAnalyze worker pool. Values below 1 are ignored.
func (e *Engine) SetWorkers(n int) {
	if n >= 1 {
		e.workers = n
	}
}

// SetBaselines swaps the baseline set, e.g. after regeneration. Windows
// analyzed afterwards use the new profiles.
func (e *Engine) SetBaselines(set *model.BaselineSet) {
	e.mu.Lock()
	e.baselines = set
	e.mu.Unlock()
}

func (e *Engine) baselineSet() *model.BaselineSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baselines
}

// Analyze runs all detectors over one window, appends the result to history
// and returns it.
func (e *Engine) Analyze(w *model.MetricWindow) *model.DetectionResult {
	result := e.analyzeOne(w)
	e.mu.Lock()
	e.history = append(e.history, result)
	e.mu.Unlock()

	if result.AnomalyCount > 0 {
		e.log.WithFields(logrus.Fields{
			"window":    w.Label(),
			"anomalies": result.AnomalyCount,
		}).Info("anomalies detected")
	}
	return result
}

// analyzeOne is the pure per-window detection pass; it does not touch
// history and is safe to call concurrently.
func (e *Engine) analyzeOne(w *model.MetricWindow) *model.DetectionResult {
	baselines := e.baselineSet()
	var anomalies []model.AnomalyRecord
	for _, d := range e.detectors {
		anomalies = append(anomalies, d.Detect(w, baselines)...)
	}
	return &model.DetectionResult{
		WindowStart:  w.WindowStart,
		WindowEnd:    w.WindowEnd,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		AnomalyCount: len(anomalies),
		Anomalies:    anomalies,
		Summary:      summarize(anomalies),
	}
}

// BatchAnalyze analyzes windows with a worker pool, appending results to
// history in window_start order. Cancelling ctx stops consuming further
// windows; results already appended stay intact and are returned alongside
// the context error.
func (e *Engine) BatchAnalyze(ctx context.Context, windows []*model.MetricWindow) ([]*model.DetectionResult, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	ordered := append([]*model.MetricWindow(nil), windows...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].WindowStart < ordered[j].WindowStart
	})

	results := make([]*model.DetectionResult, len(ordered))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(ordered) {
		workers = len(ordered)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = e.analyzeOne(ordered[idx])
			}
		}()
	}

	var cancelled error
	if err := ctx.Err(); err != nil {
		cancelled = err
	} else {
	feed:
		for i := range ordered {
			select {
			case <-ctx.Done():
				cancelled = ctx.Err()
				break feed
			case jobs <- i:
			}
		}
	}
	close(jobs)
	wg.Wait()

	// append only the contiguous prefix so history stays chronological
	// even when cancellation leaves gaps
	var done []*model.DetectionResult
	for _, r := range results {
		if r == nil {
			break
		}
		done = append(done, r)
	}
	e.mu.Lock()
	e.history = append(e.history, done...)
	e.mu.Unlock()

	if cancelled != nil {
		return done, cancelled
	}
	return done, nil
}

// History returns a snapshot of the detection history in analysis order.
func (e *Engine) History() []*model.DetectionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*model.DetectionResult(nil), e.history...)
}

// ExportHistory writes the detection history to w, one JSON object per line.
func (e *Engine) ExportHistory(w io.Writer) error {
	for _, result := range e.History() {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal detection result: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write detection result: %w", err)
		}
	}
	return nil
}

// Statistics derives the aggregate view over the detection history.
func (e *Engine) Statistics() model.EngineStatistics {
	history := e.History()
	stats := model.EngineStatistics{
		TotalWindows: len(history),
		ByType:       make(map[string]*model.TypeStatistics),
		BySeverity:   map[string]int{model.SeverityMedium: 0, model.SeverityHigh: 0},
	}
	if len(history) == 0 {
		return stats
	}
	for _, d := range history {
		if d.AnomalyCount > 0 {
			stats.WindowsWithAnomalies++
		}
		stats.TotalAnomalies += d.AnomalyCount
		for _, a := range d.Anomalies {
			ts, ok := stats.ByType[a.Type]
			if !ok {
				ts = &model.TypeStatistics{}
				stats.ByType[a.Type] = ts
			}
			ts.Count++
			switch a.Severity {
			case model.SeverityLow:
				ts.Low++
			case model.SeverityMedium:
				ts.Medium++
			case model.SeverityHigh:
				ts.High++
			}
			stats.BySeverity[a.Severity]++
		}
	}
	pct := 100 * float64(stats.WindowsWithAnomalies) / float64(stats.TotalWindows)
	stats.AnomalyPercentage = math.Round(pct*100) / 100
	return stats
}

// Reset clears the detection history.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

func summarize(anomalies []model.AnomalyRecord) model.DetectionSummary {
	s := model.DetectionSummary{
		ByType:     make(map[string]*model.SeverityCounts),
		BySeverity: map[string]int{model.SeverityMedium: 0, model.SeverityHigh: 0},
	}
	for _, a := range anomalies {
		counts, ok := s.ByType[a.Type]
		if !ok {
			counts = &model.SeverityCounts{}
			s.ByType[a.Type] = counts
		}
		counts.Add(a.Severity)
		s.BySeverity[a.Severity]++
	}
	return s
}
