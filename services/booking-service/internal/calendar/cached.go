package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Cached is a read-through cache in front of a slow source. Cache failures
// fall back to the source; source failures are never cached.
type Cached struct {
	source Source
	cache  Cache
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCached(source Source, cache Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{source: source, cache: cache, ttl: ttl, prefix: "meetbook:busy", logger: logger}
}

func (c *Cached) Name() string { return c.source.Name() }

type cachedInterval struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Busy    bool      `json:"busy"`
	Summary string    `json:"summary,omitempty"`
	Source  string    `json:"source,omitempty"`
}

func (c *Cached) key(start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%d", c.prefix, c.source.Name(), start.Unix(), end.Unix())
}

func (c *Cached) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	key := c.key(start, end)
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var rows []cachedInterval
		if jerr := json.Unmarshal(raw, &rows); jerr == nil {
			out := make([]availability.BusyInterval, 0, len(rows))
			for _, r := range rows {
				out = append(out, availability.BusyInterval(r))
			}
			return out, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("busy cache read failed", "key", key, "err", err)
	}

	busy, err := c.source.Busy(ctx, start, end)
	if err != nil {
		return nil, err
	}
	rows := make([]cachedInterval, 0, len(busy))
	for _, b := range busy {
		rows = append(rows, cachedInterval(b))
	}
	if payload, jerr := json.Marshal(rows); jerr == nil {
		if serr := c.cache.Set(ctx, key, payload, c.ttl); serr != nil {
			c.logger.Warn("busy cache write failed", "key", key, "err", serr)
		}
	}
	return busy, nil
}
