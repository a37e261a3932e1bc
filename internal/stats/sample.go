// Package stats implements component L, the performance/statistics sink:
// a pluggable backend (memory/redis/postgres) recording per-command
// samples, backed by Prometheus counters/histograms for the diagnostics
// surface.
package stats

import (
	"context"
	"time"
)

// Sample is one recorded command outcome. ID is a ULID so the sink's own
// record keys sort monotonically by creation time even when two samples
// share a timestamp — message correlation itself still uses UUIDs per the
// wire spec; ULIDs are only used for this sink's storage keys.
type Sample struct {
	ID            string
	StationHashID string
	Command       string
	Success       bool
	DurationMs    int64
	Timestamp     time.Time
}

// Backend persists and retrieves Samples. Concrete backends: Memory,
// Redis, Postgres.
type Backend interface {
	Record(ctx context.Context, s Sample) error
	Recent(ctx context.Context, stationHashID string, limit int) ([]Sample, error)
	Close() error
}
