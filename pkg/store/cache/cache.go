package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultPrefix = "lakespend:dataset"

// DatasetCache holds query results for a bounded time.
type DatasetCache interface {
	// Get reports false when key is absent or expired.
	Get(ctx context.Context, key string) (*store.Dataset, bool, error)
	Set(ctx context.Context, key string, ds *store.Dataset, ttl time.Duration) error
}

type redisCache struct {
	client redis.Cmdable
	prefix string
}

func NewRedisCache(client redis.Cmdable, prefix string) DatasetCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &redisCache{client: client, prefix: prefix}
}

// NewRedisClient parses a redis:// url.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *redisCache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

func (c *redisCache) Get(ctx context.Context, key string) (*store.Dataset, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached dataset %s: %w", key, err)
	}

	var ds store.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		return nil, false, nil
	}
	return &ds, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, ds *store.Dataset, ttl time.Duration) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache dataset %s: %w", key, err)
	}
	return nil
}

type entry struct {
	ds      *store.Dataset
	expires time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache is the in-process fallback used when no redis url is configured.
func NewMemoryCache() DatasetCache {
	return &memoryCache{entries: map[string]entry{}, now: time.Now}
}

func (c *memoryCache) Get(_ context.Context, key string) (*store.Dataset, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.ds, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, ds *store.Dataset, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{ds: ds, expires: c.now().Add(ttl)}
	return nil
}
