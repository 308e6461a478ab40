package probe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetMetrica/internal/model"
)

func TestCaptureSessionAccumulates(t *testing.T) {
	s := NewCaptureSession()
	require.NotEmpty(t, s.ID)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(ts float64) {
			defer wg.Done()
			s.Append(model.PacketRecord{Timestamp: ts})
		}(float64(i))
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
	assert.Len(t, s.Records(), 10)
}

func TestCaptureSessionStopDiscardsLateRecords(t *testing.T) {
	s := NewCaptureSession()
	s.Append(model.PacketRecord{Timestamp: 1})
	s.Stop()
	s.Append(model.PacketRecord{Timestamp: 2})

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].Timestamp)
}

func TestCaptureSessionRecordsSnapshot(t *testing.T) {
	s := NewCaptureSession()
	s.Append(model.PacketRecord{Timestamp: 1})

	snap := s.Records()
	snap[0].Timestamp = 99

	assert.Equal(t, 1.0, s.Records()[0].Timestamp)
}

func TestCaptureSessionsHaveDistinctIDs(t *testing.T) {
	assert.NotEqual(t, NewCaptureSession().ID, NewCaptureSession().ID)
}
