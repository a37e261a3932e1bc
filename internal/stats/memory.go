package stats

import (
	"context"
	"sync"
)

// MemoryBackend keeps the last N samples per station in process memory.
// This is the default backend (`performanceStorage.type == "memory"`).
type MemoryBackend struct {
	mu      sync.Mutex
	perSize int
	samples map[string][]Sample
}

// NewMemoryBackend builds a MemoryBackend retaining up to perStationCap
// samples per station (oldest dropped first).
func NewMemoryBackend(perStationCap int) *MemoryBackend {
	if perStationCap <= 0 {
		perStationCap = 1000
	}
	return &MemoryBackend{perSize: perStationCap, samples: make(map[string][]Sample)}
}

func (m *MemoryBackend) Record(ctx context.Context, s Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.samples[s.StationHashID], s)
	if len(list) > m.perSize {
		list = list[len(list)-m.perSize:]
	}
	m.samples[s.StationHashID] = list
	return nil
}

func (m *MemoryBackend) Recent(ctx context.Context, stationHashID string, limit int) ([]Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.samples[stationHashID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Sample, limit)
	copy(out, list[len(list)-limit:])
	return out, nil
}

func (m *MemoryBackend) Close() error { return nil }
