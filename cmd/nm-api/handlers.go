package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/anomaly"
	"NetMetrica/internal/baseline"
	"NetMetrica/internal/config"
	"NetMetrica/internal/ml"
	"NetMetrica/internal/model"
	"NetMetrica/internal/pipeline"
	"NetMetrica/internal/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIHandler holds the dependencies for API handlers. The window history
// accumulated by analyze requests feeds baseline generation and ML training.
type APIHandler struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	engine   *anomaly.Engine
	store    *baseline.Store
	registry *ml.Registry
	querier  query.Querier // nil unless the ClickHouse writer is enabled
	log      *logrus.Entry

	mu      sync.Mutex
	windows []*model.MetricWindow
}

type analyzeRequest struct {
	Records []map[string]any `json:"records"`
}

type analyzeResponse struct {
	Windows   int                      `json:"windows"`
	Anomalies int                      `json:"anomalies"`
	Results   []*model.DetectionResult `json:"results"`
}

// analyzeHandler ingests raw records, computes windows, runs detection and
// appends the windows to the service history.
func (h *APIHandler) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		http.Error(w, "records array is empty", http.StatusBadRequest)
		return
	}

	windows, err := h.runner.Run(r.Context(), req.Records)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to compute metrics: %v", err), http.StatusInternalServerError)
		return
	}
	results, err := h.engine.BatchAnalyze(r.Context(), windows)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to analyze windows: %v", err), http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.windows = append(h.windows, windows...)
	h.mu.Unlock()

	total := 0
	for _, res := range results {
		total += res.AnomalyCount
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Windows:   len(windows),
		Anomalies: total,
		Results:   results,
	})
}

// anomaliesHandler returns the full detection history.
func (h *APIHandler) anomaliesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.History())
}

// statisticsHandler returns the aggregated detection statistics.
func (h *APIHandler) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Statistics())
}

// baselineHandler serves one persisted baseline profile verbatim.
func (h *APIHandler) baselineHandler(w http.ResponseWriter, r *http.Request) {
	metricType := mux.Vars(r)["type"]
	data, err := h.store.LoadRaw(metricType)
	if err != nil {
		if errors.Is(err, baseline.ErrNotAvailable) {
			http.Error(w, fmt.Sprintf("no %s baseline available", metricType), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to load baseline: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// generateBaselineHandler rebuilds baselines from the accumulated window
// history and reloads them into the detection engine.
func (h *APIHandler) generateBaselineHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	history := append([]*model.MetricWindow(nil), h.windows...)
	h.mu.Unlock()

	if len(history) == 0 {
		http.Error(w, "no window history, run analyze first", http.StatusBadRequest)
		return
	}

	set := baseline.Generate(history)
	if err := h.store.Save(set); err != nil {
		http.Error(w, fmt.Sprintf("failed to save baselines: %v", err), http.StatusInternalServerError)
		return
	}
	h.engine.SetBaselines(set)
	h.log.WithField("windows", len(history)).Info("baselines regenerated")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"windows": len(history),
	})
}

type trainRequest struct {
	ModelName     string  `json:"model_name"`
	Contamination float64 `json:"contamination"`
	SampleRate    float64 `json:"sample_rate"`
	Strategy      string  `json:"strategy"`
}

// trainHandler trains a named model on the accumulated window history.
func (h *APIHandler) trainHandler(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ModelName == "" {
		req.ModelName = "default"
	}
	if req.Contamination == 0 {
		req.Contamination = h.cfg.ML.Contamination
	}

	h.mu.Lock()
	history := append([]*model.MetricWindow(nil), h.windows...)
	h.mu.Unlock()

	report, err := h.registry.Train(req.ModelName, history, ml.TrainOptions{
		Contamination: req.Contamination,
		Sampling: ml.BatchOptions{
			SampleRate: req.SampleRate,
			Strategy:   req.Strategy,
		},
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("training failed: %v", err), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type scoreRequest struct {
	ModelName string           `json:"model_name"`
	Records   []map[string]any `json:"records"`
}

// scoreHandler scores records (or, when absent, the window history) with a
// named model.
func (h *APIHandler) scoreHandler(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ModelName == "" {
		req.ModelName = "default"
	}

	var windows []*model.MetricWindow
	if len(req.Records) > 0 {
		computed, err := h.runner.Run(r.Context(), req.Records)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to compute metrics: %v", err), http.StatusInternalServerError)
			return
		}
		windows = computed
	} else {
		h.mu.Lock()
		windows = append([]*model.MetricWindow(nil), h.windows...)
		h.mu.Unlock()
	}
	if len(windows) == 0 {
		http.Error(w, "nothing to score", http.StatusBadRequest)
		return
	}

	scores, err := h.registry.Score(req.ModelName, windows)
	if err != nil {
		if errors.Is(err, ml.ErrModelNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("scoring failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// modelsHandler lists every persisted model.
func (h *APIHandler) modelsHandler(w http.ResponseWriter, r *http.Request) {
	models, err := h.registry.List()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list models: %v", err), http.StatusInternalServerError)
		return
	}
	if models == nil {
		models = []ml.Metadata{}
	}
	writeJSON(w, http.StatusOK, models)
}

// resetHandler clears detection history and accumulated windows.
func (h *APIHandler) resetHandler(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	h.mu.Lock()
	h.windows = nil
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryAnomaliesHandler reads persisted detections back from ClickHouse.
func (h *APIHandler) queryAnomaliesHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "clickhouse writer is not enabled", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.querier.RecentAnomalies(r.Context(), r.URL.Query().Get("severity"), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("query failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// querySummaryHandler aggregates persisted windows over a start-time range.
func (h *APIHandler) querySummaryHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "clickhouse writer is not enabled", http.StatusServiceUnavailable)
		return
	}
	from, _ := strconv.ParseFloat(r.URL.Query().Get("from"), 64)
	to, _ := strconv.ParseFloat(r.URL.Query().Get("to"), 64)
	summary, err := h.querier.SummarizeWindows(r.Context(), from, to)
	if err != nil {
		http.Error(w, fmt.Sprintf("query failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
