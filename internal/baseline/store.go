package baseline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/model"
)

// ErrNotAvailable reports that no baseline artifact exists for the requested
// metric type. Callers proceed with reduced detection coverage.
var ErrNotAvailable = errors.New("baseline not available")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store reads and writes baseline artifacts, one JSON file per metric type.
// Writes go through a temp file and an atomic rename so a concurrent reader
// never observes a partial baseline.
type Store struct {
	dir string
	log *logrus.Entry
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir: dir,
		log: logrus.WithField("component", "baseline-store"),
	}
}

// Save persists every non-nil profile of set.
func (s *Store) Save(set *model.BaselineSet) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	if set.Bandwidth != nil {
		if err := s.writeProfile(model.BaselineBandwidth, set.Bandwidth); err != nil {
			return err
		}
	}
	if set.Latency != nil {
		if err := s.writeProfile(model.BaselineLatency, set.Latency); err != nil {
			return err
		}
	}
	if set.Protocol != nil {
		if err := s.writeProfile(model.BaselineProtocol, set.Protocol); err != nil {
			return err
		}
	}
	if set.Connection != nil {
		if err := s.writeProfile(model.BaselineConnection, set.Connection); err != nil {
			return err
		}
	}
	return nil
}

// Load reads every available profile. Missing artifacts leave the
// corresponding member nil rather than failing the whole set.
func (s *Store) Load() (*model.BaselineSet, error) {
	set := &model.BaselineSet{}

	var bw model.BandwidthBaseline
	switch err := s.readProfile(model.BaselineBandwidth, &bw); {
	case err == nil:
		set.Bandwidth = &bw
	case !errors.Is(err, ErrNotAvailable):
		return nil, err
	}

	var lat model.LatencyBaseline
	switch err := s.readProfile(model.BaselineLatency, &lat); {
	case err == nil:
		set.Latency = &lat
	case !errors.Is(err, ErrNotAvailable):
		return nil, err
	}

	var proto model.ProtocolBaseline
	switch err := s.readProfile(model.BaselineProtocol, &proto); {
	case err == nil:
		set.Protocol = &proto
	case !errors.Is(err, ErrNotAvailable):
		return nil, err
	}

	var conn model.ConnectionBaseline
	switch err := s.readProfile(model.BaselineConnection, &conn); {
	case err == nil:
		set.Connection = &conn
	case !errors.Is(err, ErrNotAvailable):
		return nil, err
	}

	return set, nil
}

// LoadRaw reads one baseline artifact by type name and returns its raw JSON.
// Returns ErrNotAvailable when the artifact does not exist.
func (s *Store) LoadRaw(metricType string) ([]byte, error) {
	data, err := os.ReadFile(s.path(metricType))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("baseline %q: %w", metricType, ErrNotAvailable)
		}
		return nil, fmt.Errorf("read baseline %q: %w", metricType, err)
	}
	return data, nil
}

func (s *Store) writeProfile(metricType string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline %q: %w", metricType, err)
	}
	tmp, err := os.CreateTemp(s.dir, "baseline_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp baseline: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write baseline %q: %w", metricType, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close baseline %q: %w", metricType, err)
	}
	if err := os.Rename(tmp.Name(), s.path(metricType)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish baseline %q: %w", metricType, err)
	}
	s.log.WithField("type", metricType).Info("baseline saved")
	return nil
}

func (s *Store) readProfile(metricType string, v any) error {
	data, err := s.LoadRaw(metricType)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode baseline %q: %w", metricType, err)
	}
	return nil
}

func (s *Store) path(metricType string) string {
	return filepath.Join(s.dir, "baseline_"+metricType+".json")
}
