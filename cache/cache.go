// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the process-wide row cache and the load
// coordinator that deduplicates concurrent fetches per cache key.
package cache

import (
	"sync"
	"time"

	"github.com/glowdash/quarry/model"
)

type entry struct {
	records    []model.Record
	expiration time.Time
}

// RowCache is a mutex-guarded in-memory store of fetched record sets with
// per-entry TTL. Expired entries are evicted lazily on read; expiry always
// wins over a racing read.
type RowCache struct {
	data map[string]entry
	lock sync.Mutex
	now  func() time.Time
}

// NewRowCache creates an empty cache.
func NewRowCache() *RowCache {
	return &RowCache{
		data: map[string]entry{},
		now:  time.Now,
	}
}

// Get returns the live records stored under key, or false on a miss.
func (c *RowCache) Get(key string) ([]model.Record, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if !e.expiration.After(c.now()) {
		delete(c.data, key)
		return nil, false
	}
	return e.records, true
}

// Set stores records under key for ttl. A non-positive ttl is a no-op so a
// misconfigured policy can never pin an entry forever.
func (c *RowCache) Set(key string, records []model.Record, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.data[key] = entry{
		records:    records,
		expiration: c.now().Add(ttl),
	}
}

// Delete removes the entry stored under key, if any.
func (c *RowCache) Delete(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.data, key)
}

// Len reports the number of entries, including any not yet lazily evicted.
func (c *RowCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.data)
}
