package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/models"
)

const (
	cacheTTL         = 10 * time.Minute
	cacheScanPattern = "listing:*"
	cacheScanCount   = 100
)

// CachedIndex is the listing index result set kept in Redis between
// mutations.
type CachedIndex struct {
	Listings   []models.Listing `json:"listings"`
	Pagination Pagination       `json:"pagination"`
}

// ListingCache keeps listing index query results in Redis. Every cache
// failure is logged and swallowed; the database is always the fallback.
type ListingCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewListingCache(client *redis.Client, logger *zap.Logger) *ListingCache {
	return &ListingCache{client: client, logger: logger}
}

// Key derives a stable cache key from the request's query parameters.
func (c *ListingCache) Key(queryParams url.Values) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		values := queryParams[key]
		sort.Strings(values)
		for _, val := range values {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(val)
			sb.WriteString("&")
		}
	}
	rawKey := strings.TrimSuffix(sb.String(), "&")

	sum := sha256.Sum256([]byte(rawKey))
	return "listing:" + hex.EncodeToString(sum[:])
}

func (c *ListingCache) Get(ctx context.Context, key string) (*CachedIndex, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis GET failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var cached CachedIndex
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		c.logger.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &cached, true
}

func (c *ListingCache) Set(ctx context.Context, key string, index *CachedIndex) {
	raw, err := json.Marshal(index)
	if err != nil {
		c.logger.Warn("failed to serialize cache entry", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.logger.Warn("failed to cache listing index", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached index page. Called after any listing
// mutation, typically from a goroutine.
func (c *ListingCache) Invalidate() {
	ctx := context.Background()

	var keysToDelete []string
	var cursor uint64
	var err error

	for {
		var currentKeys []string
		currentKeys, cursor, err = c.client.Scan(ctx, cursor, cacheScanPattern, cacheScanCount).Result()
		if err != nil {
			c.logger.Warn("redis SCAN failed during cache invalidation", zap.Error(err))
			return
		}
		keysToDelete = append(keysToDelete, currentKeys...)
		if cursor == 0 {
			break
		}
	}

	if len(keysToDelete) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, key := range keysToDelete {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to delete listing cache keys", zap.Error(err))
		return
	}
	c.logger.Debug("listing cache invalidated", zap.Int("keys", len(keysToDelete)))
}
