// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"time"

	"github.com/glowdash/quarry/model"
	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the record set for a cache key when no live entry
// exists. It is invoked at most once per cache-miss episode.
type LoadFunc func(ctx context.Context) ([]model.Record, error)

// Coordinator serializes loads per cache key: concurrent callers for the
// same uncached key attach to a single in-flight fetch and all receive the
// identical result or error. Failed loads never populate the cache, so the
// next caller after a failure starts a fresh attempt.
type Coordinator struct {
	cache    *RowCache
	group    singleflight.Group
	measures *Measures
}

// NewCoordinator wires a coordinator around the shared row cache. The
// measures may be nil in tests.
func NewCoordinator(cache *RowCache, measures *Measures) *Coordinator {
	return &Coordinator{
		cache:    cache,
		measures: measures,
	}
}

// Load resolves key against the cache and falls back to load on a miss.
// With forceRefresh the existing entry is deleted first, so the call always
// proceeds as a miss. The in-flight marker is removed on every exit path;
// a failed or canceled fetch can never wedge future attempts for its key.
func (c *Coordinator) Load(ctx context.Context, key string, ttl time.Duration, forceRefresh bool, load LoadFunc) ([]model.Record, error) {
	if forceRefresh {
		c.cache.Delete(key)
	} else if records, ok := c.cache.Get(key); ok {
		c.measures.read(HitOutcome)
		return records, nil
	}
	c.measures.read(MissOutcome)

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		// A flight that finished between our miss and this call may have
		// already populated the entry.
		if !forceRefresh {
			if records, ok := c.cache.Get(key); ok {
				return records, nil
			}
		}
		records, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, records, ttl)
		return records, nil
	})
	if shared {
		c.measures.flight(WaiterRole)
	} else {
		c.measures.flight(LeaderRole)
	}
	if err != nil {
		return nil, err
	}
	return result.([]model.Record), nil
}
