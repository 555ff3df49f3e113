/*
 * Copyright 2026 Lumenwall Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package querycache memoizes externally sourced data across refresh
// cycles. Expired entries are evicted lazily on access rather than by a
// background sweep, which keeps the cache allocation-cheap when key
// cardinality is high.
package querycache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a key that is absent or expired.
type ComputeFunc func(ctx context.Context) (interface{}, error)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a TTL cache with at-most-one in-flight computation per key.
// Concurrent callers of GetOrCompute for the same cold key share a single
// compute; everyone receives the same value.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time
}

// New creates an empty cache. nowFn is injectable for tests; nil uses
// time.Now.
func New(nowFn func() time.Time) *Cache {
	if nowFn == nil {
		nowFn = time.Now
	}

	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     nowFn,
	}
}

// Get returns the cached value for key if present and unexpired. An expired
// entry is removed on the way out.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

// GetOrCompute returns the cached value for key, computing and storing it
// when absent or expired. Later callers that arrive while the compute is in
// flight wait for it instead of launching their own.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A racing caller may have finished the compute between our Get
		// and the flight starting.
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{
			value:     v,
			expiresAt: c.now().Add(ttl),
		}
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		return nil, err
	}

	return v, nil
}

// Invalidate removes key so the next access recomputes.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
