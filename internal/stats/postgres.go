package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend is the durable statistics backend
// (`performanceStorage.type == "postgres"`), grounded on the teacher's
// repository pattern: an interface-shaped backend wrapping a
// *pgxpool.Pool, with schema setup delegated to golang-migrate at
// startup (see Migrate).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an existing pool. Callers run Migrate
// separately (see migrations.go) before first use.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (p *PostgresBackend) Record(ctx context.Context, s Sample) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO station_stat_samples (id, station_hash_id, command, success, duration_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.StationHashID, s.Command, s.Success, s.DurationMs, s.Timestamp)
	if err != nil {
		return fmt.Errorf("stats: insert sample: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Recent(ctx context.Context, stationHashID string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, station_hash_id, command, success, duration_ms, recorded_at
		FROM station_stat_samples
		WHERE station_hash_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, stationHashID, limit)
	if err != nil {
		return nil, fmt.Errorf("stats: query recent: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var recordedAt time.Time
		if err := rows.Scan(&s.ID, &s.StationHashID, &s.Command, &s.Success, &s.DurationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("stats: scan sample: %w", err)
		}
		s.Timestamp = recordedAt
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
