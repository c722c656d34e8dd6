package nutrition

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	c.lastTTL = ttl
	return nil
}

type countingExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *countingExtractor) Extract(_ context.Context, r model.Recipe) (*model.NutritionData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &model.NutritionData{RecipeID: r.ID, Calories: 200, Source: "fake"}, nil
}

func soupRecipe(id int64) model.Recipe {
	return model.Recipe{
		ID:       id,
		Title:    "Soup",
		Servings: 4,
		Ingredients: []model.RecipeIngredient{
			{Ingredient: "Carrots", Quantity: "2", Unit: "cups"},
			{Ingredient: "celery", Quantity: "1", Unit: "cup"},
		},
	}
}

func TestCacheKey(t *testing.T) {
	a := soupRecipe(1)
	b := soupRecipe(2)
	b.Title = "Vegetable Soup"
	b.Ingredients = []model.RecipeIngredient{
		{Ingredient: "Celery", Quantity: "1", Unit: "Cup"},
		{Ingredient: "carrot", Quantity: "2", Unit: "cups"},
	}
	if CacheKey(a) != CacheKey(b) {
		t.Error("equivalent recipes should share a cache key")
	}

	c := soupRecipe(3)
	c.Servings = 2
	if CacheKey(a) == CacheKey(c) {
		t.Error("different servings should change the key")
	}
}

func TestCachedExtractor(t *testing.T) {
	cache := newMemCache()
	inner := &countingExtractor{}
	ce := NewCachedExtractor(inner, cache, 0, slog.Default())

	first, err := ce.Extract(context.Background(), soupRecipe(1))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, err := ce.Extract(context.Background(), soupRecipe(2))
	if err != nil {
		t.Fatalf("extract cached: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if first.Calories != second.Calories {
		t.Errorf("cached calories = %v, want %v", second.Calories, first.Calories)
	}
	if second.RecipeID != 2 {
		t.Errorf("cached result recipe id = %d, want 2", second.RecipeID)
	}
	if cache.lastTTL != DefaultCacheTTL {
		t.Errorf("ttl = %v, want %v", cache.lastTTL, DefaultCacheTTL)
	}
}

func TestCachedExtractorBypassesBrokenCache(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	inner := &countingExtractor{}
	ce := NewCachedExtractor(inner, cache, time.Hour, slog.Default())

	n, err := ce.Extract(context.Background(), soupRecipe(1))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if n.Calories != 200 {
		t.Errorf("calories = %v, want 200", n.Calories)
	}
}

func TestCachedExtractorDoesNotCacheErrors(t *testing.T) {
	cache := newMemCache()
	inner := &countingExtractor{err: errors.New("quota exceeded")}
	ce := NewCachedExtractor(inner, cache, time.Hour, slog.Default())

	if _, err := ce.Extract(context.Background(), soupRecipe(1)); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.data) != 0 {
		t.Error("failed extraction was cached")
	}
}
