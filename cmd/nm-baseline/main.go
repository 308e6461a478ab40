package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"NetMetrica/internal/baseline"
	"NetMetrica/internal/config"
	"NetMetrica/internal/metrics"
	"NetMetrica/internal/pipeline"
	"NetMetrica/internal/storage"
)

// nm-baseline turns a capture of known-normal traffic into the baseline
// profiles the anomaly detectors compare against.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	inputPath := flag.String("input", "", "path to a JSONL file of normal traffic records (required)")
	outDir := flag.String("out", "", "baseline output directory (overrides config)")
	flag.Parse()

	log := logrus.WithField("component", "nm-baseline")

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Warn("falling back to default configuration")
		cfg = config.Default()
	}
	dir := cfg.Baseline.Dir
	if *outDir != "" {
		dir = *outDir
	}

	raws, err := storage.ReadRawRecords(*inputPath)
	if err != nil {
		log.WithError(err).Fatal("failed to read input records")
	}

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

	windows, err := runner.Run(context.Background(), raws)
	if err != nil {
		log.WithError(err).Fatal("metric computation failed")
	}
	if len(windows) == 0 {
		log.Fatal("input produced no metric windows, cannot build baselines")
	}

	set := baseline.Generate(windows)
	if err := baseline.NewStore(dir).Save(set); err != nil {
		log.WithError(err).Fatal("failed to save baselines")
	}
	log.WithFields(logrus.Fields{
		"windows": len(windows),
		"dir":     dir,
	}).Info("baseline profiles written")
}
