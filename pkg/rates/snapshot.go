package rates

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/json"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "brianbot:rates:"

// Snapshots is a shared store of inverted tables, letting restarts and
// multiple processes reuse one fetch per day.
type Snapshots interface {
	Load(ctx context.Context, endpoint string) (Table, bool)
	Save(ctx context.Context, endpoint string, table Table, ttl time.Duration)
}

type RedisSnapshots struct {
	client *redis.Client
}

// NewRedisSnapshots connects to the redis instance at redisURL.
func NewRedisSnapshots(ctx context.Context, redisURL string) (*RedisSnapshots, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &RedisSnapshots{client: client}, nil
}

func (s *RedisSnapshots) Load(ctx context.Context, endpoint string) (Table, bool) {
	b, err := s.client.Get(ctx, snapshotKey(endpoint)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("rates: error while loading a snapshot", slog.String("rates.endpoint", endpoint), tint.Err(err))
		}
		return nil, false
	}
	var table Table
	if err := json.Unmarshal(b, &table); err != nil {
		slog.Error("rates: error while decoding a snapshot", slog.String("rates.endpoint", endpoint), tint.Err(err))
		return nil, false
	}
	return table, true
}

func (s *RedisSnapshots) Save(ctx context.Context, endpoint string, table Table, ttl time.Duration) {
	b, err := json.Marshal(table)
	if err != nil {
		slog.Error("rates: error while encoding a snapshot", slog.String("rates.endpoint", endpoint), tint.Err(err))
		return
	}
	if err := s.client.Set(ctx, snapshotKey(endpoint), b, ttl).Err(); err != nil {
		slog.Error("rates: error while saving a snapshot", slog.String("rates.endpoint", endpoint), tint.Err(err))
	}
}

func (s *RedisSnapshots) Close() error {
	return s.client.Close()
}

func snapshotKey(endpoint string) string {
	return snapshotKeyPrefix + endpoint
}
