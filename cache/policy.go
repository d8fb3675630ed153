// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"strings"
	"time"
)

// TTL tiers. Narrow time-windowed queries are assumed interactive and
// volatile; full pulls of a timestamped source change more slowly; sources
// without a timestamp column are effectively static.
const (
	WindowedTTL     = 60 * time.Second
	TimestampedTTL  = 30 * time.Minute
	StaticTTL       = time.Hour
	absentBoundPart = "null"
)

// Key derives the cache key for a (source, window) pair. Without a window
// the key is the source ID alone; with one, the normalized bounds join it
// so equal windows share an entry.
func Key(sourceID string, windowed bool, from, to string) string {
	if !windowed {
		return sourceID
	}
	return strings.Join([]string{sourceID, orNull(from), orNull(to)}, ":")
}

func orNull(bound string) string {
	if bound == "" {
		return absentBoundPart
	}
	return bound
}

// TTL picks the freshness tier for a cache entry.
func TTL(timestamped bool, from, to string) time.Duration {
	switch {
	case timestamped && from != "" && to != "":
		return WindowedTTL
	case timestamped:
		return TimestampedTTL
	default:
		return StaticTTL
	}
}
