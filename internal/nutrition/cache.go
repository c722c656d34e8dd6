package nutrition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

const DefaultCacheTTL = 24 * time.Hour

// Cache stores extraction results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CacheKey identifies a recipe by servings and normalized ingredient list,
// so renamed or reordered copies of a recipe share an entry.
func CacheKey(recipe model.Recipe) string {
	lines := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		lines = append(lines, strings.Join([]string{
			grocery.Normalize(ing.Ingredient),
			strings.ToLower(strings.TrimSpace(ing.Quantity)),
			strings.ToLower(strings.TrimSpace(ing.Unit)),
		}, "|"))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\n%s", recipe.Servings, strings.Join(lines, "\n"))))
	return "nutrition:" + hex.EncodeToString(sum[:])
}

// CachedExtractor consults cache before calling the wrapped extractor. Cache
// failures are logged and bypassed.
type CachedExtractor struct {
	inner  Extractor
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedExtractor(inner Extractor, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedExtractor {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedExtractor{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedExtractor) Extract(ctx context.Context, recipe model.Recipe) (*model.NutritionData, error) {
	key := CacheKey(recipe)

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("nutrition cache get", "key", key, "error", err)
	}
	if ok {
		var n model.NutritionData
		if err := json.Unmarshal(data, &n); err == nil {
			n.RecipeID = recipe.ID
			return &n, nil
		}
		c.logger.Warn("nutrition cache entry unreadable", "key", key)
	}

	n, err := c.inner.Extract(ctx, recipe)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(n)
	if err != nil {
		return n, nil
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("nutrition cache set", "key", key, "error", err)
	}
	return n, nil
}
