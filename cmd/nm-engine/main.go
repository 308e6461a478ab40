package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"NetMetrica/internal/anomaly"
	"NetMetrica/internal/baseline"
	"NetMetrica/internal/config"
	"NetMetrica/internal/metrics"
	"NetMetrica/internal/model"
	"NetMetrica/internal/pipeline"
	"NetMetrica/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	inputPath := flag.String("input", "", "path to a JSONL file of raw traffic records (required)")
	flag.Parse()

	log := logrus.WithField("component", "nm-engine")

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Warn("falling back to default configuration")
		cfg = config.Default()
	}

	raws, err := storage.ReadRawRecords(*inputPath)
	if err != nil {
		log.WithError(err).Fatal("failed to read input records")
	}
	log.WithField("records", len(raws)).Info("loaded raw records")

	runner, err := pipeline.NewRunner(pipeline.Config{
		WindowSizeS:      cfg.Engine.WindowSizeS,
		RecordCap:        cfg.Engine.RecordCap,
		DedupToleranceMs: cfg.Engine.DedupToleranceMs,
		NumWorkers:       cfg.Engine.NumWorkers,
		Metrics: metrics.Options{
			ConnectionTimeoutS: cfg.Engine.ConnectionTimeoutS,
			MatchWindowS:       cfg.Engine.MatchWindowS,
			TopN:               cfg.Engine.TopN,
			Carryover:          metrics.NewFlowCarryover(),
		},
	})
	if err != nil {
		log.WithError(err).Fatal("invalid engine configuration")
	}

	ctx := context.Background()
	windows, err := runner.Run(ctx, raws)
	if err != nil {
		log.WithError(err).Fatal("metric computation failed")
	}
	log.WithField("windows", len(windows)).Info("computed metric windows")

	// Baselines are optional; detection degrades to the rules that need none.
	baselines, err := baseline.NewStore(cfg.Baseline.Dir).Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load baselines")
	}
	if baselines == nil || (baselines.Bandwidth == nil && baselines.Latency == nil &&
		baselines.Protocol == nil && baselines.Connection == nil) {
		log.Warn("no baseline profiles found, baseline-dependent detectors are inactive")
	}

	engine := anomaly.NewEngine(baselines)
	engine.SetWorkers(cfg.Engine.NumWorkers)
	results, err := engine.BatchAnalyze(ctx, windows)
	if err != nil {
		log.WithError(err).Fatal("anomaly analysis failed")
	}

	if cfg.Writers.JSONL.Enabled {
		if err := persist(cfg, windows, results); err != nil {
			log.WithError(err).Fatal("failed to persist results")
		}
	}

	stats := engine.Statistics()
	log.WithFields(logrus.Fields{
		"total_windows":   stats.TotalWindows,
		"with_anomalies":  stats.WindowsWithAnomalies,
		"total_anomalies": stats.TotalAnomalies,
	}).Info("analysis complete")
}

func persist(cfg *config.Config, windows []*model.MetricWindow, results []*model.DetectionResult) error {
	writers := []model.Writer{}
	jw, err := storage.NewJSONLWriter(cfg.Writers.JSONL.Dir)
	if err != nil {
		return err
	}
	writers = append(writers, jw)

	if cfg.Writers.ClickHouse.Enabled {
		cw, err := storage.NewClickHouseWriter(cfg.Writers.ClickHouse)
		if err != nil {
			return err
		}
		writers = append(writers, cw)
	}

	for _, w := range writers {
		for _, window := range windows {
			if err := w.WriteWindow(window); err != nil {
				return err
			}
		}
		for _, result := range results {
			if err := w.WriteDetection(result); err != nil {
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
