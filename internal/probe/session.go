package probe

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"NetMetrica/internal/model"
)

// CaptureSession accumulates records received from a subscriber until
// stopped, then hands them to analysis. Safe for concurrent appends.
type CaptureSession struct {
	ID        string
	StartedAt time.Time

	mu      sync.Mutex
	records []model.PacketRecord
	stopped bool
}

// NewCaptureSession starts an empty session with a fresh identifier.
func NewCaptureSession() *CaptureSession {
	return &CaptureSession{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Append adds one record. Records arriving after Stop are discarded.
func (s *CaptureSession) Append(record model.PacketRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.records = append(s.records, record)
}

// Stop freezes the session. Subsequent appends are no-ops.
func (s *CaptureSession) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Records returns a snapshot of everything captured so far.
func (s *CaptureSession) Records() []model.PacketRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PacketRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports the number of captured records.
func (s *CaptureSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
