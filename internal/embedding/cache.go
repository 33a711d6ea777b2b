package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/observability"
)

// QueryCache stores query vectors by key. Implementations must be safe for
// concurrent use. Lookups that fail behave as misses.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, v []float32)
}

// CacheKey derives the cache key for text embedded with model and inputType.
// Case and whitespace differences in text map to the same key.
func CacheKey(model string, inputType InputType, text string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(model + "\x00" + string(inputType) + "\x00" + norm))
	return "emb:q:" + hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process cache bounded by bytes.
type MemoryCache struct {
	c   *freecache.Cache
	ttl int // seconds
}

// NewMemoryCache allocates a cache of size bytes (freecache enforces a
// 512KiB minimum).
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: freecache.NewCache(size), ttl: int(ttl / time.Second)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	b, err := m.c.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return domain.DecodeVector(b, -1), true
}

func (m *MemoryCache) Set(_ context.Context, key string, v []float32) {
	if err := m.c.Set([]byte(key), domain.EncodeVector(v), m.ttl); err != nil {
		log.Debug().Err(err).Msg("query cache: memory set failed")
	}
}

// RedisCache shares query vectors between replicas.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.QueryCacheRequests.WithLabelValues("error").Inc()
			log.Debug().Err(err).Msg("query cache: redis get failed")
		}
		return nil, false
	}
	return domain.DecodeVector(b, -1), true
}

func (r *RedisCache) Set(ctx context.Context, key string, v []float32) {
	if err := r.client.Set(ctx, key, domain.EncodeVector(v), r.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("query cache: redis set failed")
	}
}

// Tiered checks caches in order and back-fills the earlier tiers on a hit
// in a later one.
type Tiered []QueryCache

func (t Tiered) Get(ctx context.Context, key string) ([]float32, bool) {
	for i, c := range t {
		if v, ok := c.Get(ctx, key); ok {
			for j := 0; j < i; j++ {
				t[j].Set(ctx, key, v)
			}
			return v, true
		}
	}
	return nil, false
}

func (t Tiered) Set(ctx context.Context, key string, v []float32) {
	for _, c := range t {
		c.Set(ctx, key, v)
	}
}

// Provider is what CachedClient decorates.
type Provider interface {
	Embed(ctx context.Context, text string, inputType InputType) Outcome
	Model() string
}

// CachedClient serves query embeddings from a QueryCache. Document
// embeddings are persisted by the store and pass straight through.
// Unavailable outcomes are never cached.
type CachedClient struct {
	Next  Provider
	Cache QueryCache
}

func (c *CachedClient) Model() string { return c.Next.Model() }

func (c *CachedClient) Embed(ctx context.Context, text string, inputType InputType) Outcome {
	if c.Cache == nil || inputType != InputQuery {
		return c.Next.Embed(ctx, text, inputType)
	}
	key := CacheKey(c.Next.Model(), inputType, text)
	if v, ok := c.Cache.Get(ctx, key); ok && len(v) > 0 {
		observability.QueryCacheRequests.WithLabelValues("hit").Inc()
		return Available(v)
	}
	observability.QueryCacheRequests.WithLabelValues("miss").Inc()

	out := c.Next.Embed(ctx, text, inputType)
	if v, ok := out.Vector(); ok {
		c.Cache.Set(ctx, key, v)
	}
	return out
}
