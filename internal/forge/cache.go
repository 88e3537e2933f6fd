/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package forge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is Tcache from §4.2.
const DefaultCacheTTL = 600 * time.Second

// cacheEntry is the envelope written under req_cache:<endpoint>.
type cacheEntry struct {
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	Body         []byte    `json:"body"`
	CachedAt     time.Time `json:"cachedAt"`
}

// Cache wraps a Redis client for the ETag/body cache.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache builds a Cache over rdb with the given TTL (defaults to
// DefaultCacheTTL when ttl is zero).
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached entry for key, or nil if absent.
func (c *Cache) Get(ctx context.Context, key string) (*cacheEntry, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Set writes entry under key with the cache's TTL, stamping CachedAt.
func (c *Cache) Set(ctx context.Context, key string, entry *cacheEntry) error {
	entry.CachedAt = time.Now()
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Refresh re-extends key's TTL without rewriting its value, used on a 304
// hit so a still-valid cache entry doesn't expire from inactivity alone.
func (c *Cache) Refresh(ctx context.Context, key string) error {
	return c.rdb.Expire(ctx, key, c.ttl).Err()
}
