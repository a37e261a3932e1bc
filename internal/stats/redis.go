package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores samples in a per-station capped list
// (`LPUSH`+`LTRIM`), grounded on the teacher's `Redis.IncrWithExpire`
// sliding-window counter pattern generalized to a capped sample log.
type RedisBackend struct {
	client *redis.Client
	cap    int64
	ttl    time.Duration
}

// NewRedisBackend wraps an existing *redis.Client. cap bounds the
// per-station list length via LTRIM after each push.
func NewRedisBackend(client *redis.Client, perStationCap int64, ttl time.Duration) *RedisBackend {
	if perStationCap <= 0 {
		perStationCap = 1000
	}
	return &RedisBackend{client: client, cap: perStationCap, ttl: ttl}
}

func key(stationHashID string) string {
	return fmt.Sprintf("stationsim:stats:%s", stationHashID)
}

func (r *RedisBackend) Record(ctx context.Context, s Sample) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("stats: marshal sample: %w", err)
	}
	k := key(s.StationHashID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, k, raw)
	pipe.LTrim(ctx, k, 0, r.cap-1)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisBackend) Recent(ctx context.Context, stationHashID string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = int(r.cap)
	}
	raws, err := r.client.LRange(ctx, key(stationHashID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("stats: lrange: %w", err)
	}
	out := make([]Sample, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- { // LPUSH stores newest-first; return oldest-first
		var s Sample
		if err := json.Unmarshal([]byte(raws[i]), &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
