package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-pos/internal/posapi"
)

// Search results are cached per generation. Adding an item bumps the
// generation, so stale result sets are never read again and just expire.
const (
	searchGenKey    = "pos:catalog:search:gen"
	searchKeyPrefix = "pos:catalog:search:"
)

// Cache keeps recent search results in Redis. A nil *Cache, or one without a
// client, never hits and never stores.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *Cache) key(ctx context.Context, query string, limit int) (string, error) {
	gen, err := c.client.Get(ctx, searchGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return searchKeyPrefix + strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit) + ":" + query, nil
}

// Lookup returns the cached result for a normalised query, if any.
func (c *Cache) Lookup(ctx context.Context, query string, limit int) ([]posapi.Item, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	key, err := c.key(ctx, query, limit)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	var items []posapi.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// Store caches items as the result for query under the current generation.
func (c *Cache) Store(ctx context.Context, query string, limit int, items []posapi.Item) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx, query, limit)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// InvalidateSearch starts a new generation.
func (c *Cache) InvalidateSearch(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, searchGenKey).Err()
}
