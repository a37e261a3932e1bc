package stats

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sink is the component other packages record command outcomes through: it
// assigns a sortable storage key, forwards the sample to the configured
// Backend, and observes the Prometheus metrics in the same call.
type Sink struct {
	backend Backend
	log     *slog.Logger
}

// NewSink wraps backend. A nil backend is replaced by NewMemoryBackend(0).
func NewSink(backend Backend, log *slog.Logger) *Sink {
	if backend == nil {
		backend = NewMemoryBackend(0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{backend: backend, log: log}
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Record stores one command outcome and updates the Prometheus counters/
// histogram for it. Backend failures are logged, not returned, so a stats
// sink outage never fails the OCPP exchange it is observing.
func (s *Sink) Record(ctx context.Context, stationHashID, command string, success bool, duration time.Duration) {
	sample := Sample{
		ID:            newULID(),
		StationHashID: stationHashID,
		Command:       command,
		Success:       success,
		DurationMs:    duration.Milliseconds(),
		Timestamp:     time.Now(),
	}
	observe(command, success, duration.Seconds())
	if err := s.backend.Record(ctx, sample); err != nil {
		s.log.Warn("stats: record sample failed", "station", stationHashID, "command", command, "err", err)
	}
}

// Recent returns the last limit samples recorded for a station, oldest
// first.
func (s *Sink) Recent(ctx context.Context, stationHashID string, limit int) ([]Sample, error) {
	return s.backend.Recent(ctx, stationHashID, limit)
}

// Close releases the underlying backend's resources.
func (s *Sink) Close() error {
	return s.backend.Close()
}
