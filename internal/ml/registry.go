package ml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/model"
)

// ErrModelNotFound reports a lookup of a model that was never trained or
// persisted. Callers proceed with reduced detection coverage.
var ErrModelNotFound = errors.New("model not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Metadata describes one trained model artifact.
type Metadata struct {
	ID              string   `json:"id"`
	ModelName       string   `json:"model_name"`
	TrainingSamples int      `json:"training_samples"`
	Contamination   float64  `json:"contamination"`
	FeatureNames    []string `json:"feature_names"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// TrainReport summarizes one training run.
type TrainReport struct {
	ModelName        string     `json:"model_name"`
	TrainingSamples  int        `json:"training_samples"`
	AnomaliesInTrain int        `json:"anomalies_detected"`
	AnomalyRate      float64    `json:"anomaly_rate"`
	Contamination    float64    `json:"contamination"`
	Sampling         SampleInfo `json:"sampling"`
	Timestamp        string     `json:"timestamp"`
}

// WindowScore is one scored window with its severity verdict.
type WindowScore struct {
	Index       int     `json:"index"`
	IsAnomaly   bool    `json:"is_anomaly"`
	Raw         float64 `json:"anomaly_score"`
	Probability float64 `json:"anomaly_probability"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
}

// TrainOptions tunes one training run.
type TrainOptions struct {
	// Contamination is the expected outlier fraction; defaults to 0.1.
	Contamination float64
	// Sampling controls the corpus-construction stage. A zero SampleRate
	// auto-selects by corpus size.
	Sampling BatchOptions
}

// trainedModel pairs a scorer with the normalizer fitted alongside it.
type trainedModel struct {
	Metadata   Metadata    `json:"metadata"`
	Normalizer Normalizer  `json:"normalizer"`
	Scorer     *StatScorer `json:"scorer"`
}

// Registry holds named trained models and persists them under a directory,
// one state file per model. Training one name is single-writer; distinct
// names may train concurrently.
type Registry struct {
	dir string
	log *logrus.Entry

	mu       sync.Mutex
	models   map[string]*trainedModel
	training map[string]*sync.Mutex
}

// NewRegistry returns a Registry persisting under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:      dir,
		log:      logrus.WithField("component", "ml-registry"),
		models:   make(map[string]*trainedModel),
		training: make(map[string]*sync.Mutex),
	}
}

// Train builds a model from history and persists it under name. Concurrent
// Train calls for the same name serialize; the corpus needs at least 10
// valid feature vectors after sampling.
func (r *Registry) Train(name string, history []*model.MetricWindow, opts TrainOptions) (*TrainReport, error) {
	lock := r.trainingLock(name)
	lock.Lock()
	defer lock.Unlock()

	if opts.Contamination == 0 {
		opts.Contamination = 0.1
	}
	if opts.Sampling.SampleRate == 0 {
		rate, reason := RecommendSampleRate(len(history))
		opts.Sampling.SampleRate = rate
		r.log.WithFields(logrus.Fields{
			"model":  name,
			"rate":   rate,
			"reason": reason,
		}).Debug("auto-selected sample rate")
	}

	vectors, _, info, err := ExtractBatch(history, opts.Sampling)
	if err != nil {
		return nil, err
	}

	var norm Normalizer
	normalized := norm.FitTransform(vectors)

	scorer := NewStatScorer(opts.Contamination)
	if err := scorer.Train(normalized); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	tm := &trainedModel{
		Metadata: Metadata{
			ID:              uuid.NewString(),
			ModelName:       name,
			TrainingSamples: len(normalized),
			Contamination:   opts.Contamination,
			FeatureNames:    append([]string(nil), FeatureNames...),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		Normalizer: norm,
		Scorer:     scorer,
	}
	if err := r.persist(tm); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.models[name] = tm
	r.mu.Unlock()

	scores, err := scorer.ScoreBatch(normalized)
	if err != nil {
		return nil, err
	}
	outliers := 0
	for _, s := range scores {
		if s.IsOutlier {
			outliers++
		}
	}
	r.log.WithFields(logrus.Fields{
		"model":   name,
		"samples": len(normalized),
	}).Info("model trained")
	return &TrainReport{
		ModelName:        name,
		TrainingSamples:  len(normalized),
		AnomaliesInTrain: outliers,
		AnomalyRate:      float64(outliers) / float64(len(normalized)),
		Contamination:    opts.Contamination,
		Sampling:         info,
		Timestamp:        now,
	}, nil
}

// Score runs the named model over windows. Results carry indices into the
// windows slice; windows with invalid feature vectors are skipped.
func (r *Registry) Score(name string, windows []*model.MetricWindow) ([]WindowScore, error) {
	tm, err := r.get(name)
	if err != nil {
		return nil, err
	}
	vectors, indices, _, err := ExtractBatch(windows, BatchOptions{})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	scores, err := tm.Scorer.ScoreBatch(tm.Normalizer.Transform(vectors))
	if err != nil {
		return nil, err
	}
	out := make([]WindowScore, len(scores))
	for i, s := range scores {
		severity := SeverityFromProbability(s.Probability)
		msg := "Normal traffic pattern detected"
		if s.IsOutlier {
			msg = fmt.Sprintf("%s anomaly detected (confidence: %.1f%%)",
				capitalize(severity), s.Probability*100)
		}
		out[i] = WindowScore{
			Index:       indices[i],
			IsAnomaly:   s.IsOutlier,
			Raw:         s.Raw,
			Probability: s.Probability,
			Severity:    severity,
			Message:     msg,
		}
	}
	return out, nil
}

// List returns the metadata of every persisted model.
func (r *Registry) List() ([]Metadata, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list models: %w", err)
	}
	var out []Metadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var tm trainedModel
		data, err := os.ReadFile(filepath.Join(r.dir, e.Name()))
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &tm); err != nil {
			r.log.WithField("file", e.Name()).Warn("skipping unreadable model state")
			continue
		}
		out = append(out, tm.Metadata)
	}
	return out, nil
}

// Get returns the metadata of one model.
func (r *Registry) Get(name string) (*Metadata, error) {
	tm, err := r.get(name)
	if err != nil {
		return nil, err
	}
	meta := tm.Metadata
	return &meta, nil
}

func (r *Registry) get(name string) (*trainedModel, error) {
	r.mu.Lock()
	tm, ok := r.models[name]
	r.mu.Unlock()
	if ok {
		return tm, nil
	}

	data, err := os.ReadFile(r.statePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model %q: %w", name, ErrModelNotFound)
		}
		return nil, fmt.Errorf("read model %q: %w", name, err)
	}
	var loaded trainedModel
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("decode model %q: %w", name, err)
	}
	if loaded.Scorer == nil || !loaded.Scorer.Trained {
		return nil, fmt.Errorf("model %q: %w", name, ErrNotTrained)
	}

	r.mu.Lock()
	r.models[name] = &loaded
	r.mu.Unlock()
	return &loaded, nil
}

func (r *Registry) persist(tm *trainedModel) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model %q: %w", tm.Metadata.ModelName, err)
	}
	tmp, err := os.CreateTemp(r.dir, "model_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write model %q: %w", tm.Metadata.ModelName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close model %q: %w", tm.Metadata.ModelName, err)
	}
	if err := os.Rename(tmp.Name(), r.statePath(tm.Metadata.ModelName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish model %q: %w", tm.Metadata.ModelName, err)
	}
	return nil
}

func (r *Registry) statePath(name string) string {
	return filepath.Join(r.dir, name+".json")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *Registry) trainingLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.training[name]
	if !ok {
		lock = &sync.Mutex{}
		r.training[name] = lock
	}
	return lock
}
