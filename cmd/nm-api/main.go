package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/alerter"
	"NetMetrica/internal/anomaly"
	"NetMetrica/internal/baseline"
	"NetMetrica/internal/config"
	"NetMetrica/internal/metrics"
	"NetMetrica/internal/ml"
	"NetMetrica/internal/notification"
	"NetMetrica/internal/pipeline"
	"NetMetrica/internal/query"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	log := logrus.WithField("component", "nm-api")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Warn("falling back to default configuration")
		cfg = config.Default()
	}

	store := baseline.NewStore(cfg.Baseline.Dir)
	baselines, err := store.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load baselines")
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
		},
	})
	if err != nil {
		log.WithError(err).Fatal("invalid engine configuration")
	}

	engine := anomaly.NewEngine(baselines)
	engine.SetWorkers(cfg.Engine.NumWorkers)

	var alertLoop *alerter.Alerter
	if cfg.Alerter.Enabled {
		notifier := notification.NewEmailNotifier(cfg.Alerter.SMTP)
		alertLoop, err = alerter.NewAlerter(cfg.Alerter, engine, notifier)
		if err != nil {
			log.WithError(err).Fatal("invalid alerter configuration")
		}
		go alertLoop.Start()
	}

	handler := &APIHandler{
		cfg:      cfg,
		runner:   runner,
		engine:   engine,
		store:    store,
		registry: ml.NewRegistry(cfg.ML.ModelDir),
		log:      log,
	}
	if cfg.Writers.ClickHouse.Enabled {
		querier, err := query.NewClickHouseQuerier(cfg.Writers.ClickHouse)
		if err != nil {
			log.WithError(err).Fatal("failed to create querier")
		}
		handler.querier = querier
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/analyze", handler.analyzeHandler).Methods("POST")
	r.HandleFunc("/api/v1/anomalies", handler.anomaliesHandler).Methods("GET")
	r.HandleFunc("/api/v1/statistics", handler.statisticsHandler).Methods("GET")
	r.HandleFunc("/api/v1/baselines/generate", handler.generateBaselineHandler).Methods("POST")
	r.HandleFunc("/api/v1/baselines/{type}", handler.baselineHandler).Methods("GET")
	r.HandleFunc("/api/v1/ml/train", handler.trainHandler).Methods("POST")
	r.HandleFunc("/api/v1/ml/score", handler.scoreHandler).Methods("POST")
	r.HandleFunc("/api/v1/ml/models", handler.modelsHandler).Methods("GET")
	r.HandleFunc("/api/v1/reset", handler.resetHandler).Methods("POST")
	r.HandleFunc("/api/v1/query/anomalies", handler.queryAnomaliesHandler).Methods("GET")
	r.HandleFunc("/api/v1/query/summary", handler.querySummaryHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("API server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("API server shutting down")

	if alertLoop != nil {
		alertLoop.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("API server exited")
}
