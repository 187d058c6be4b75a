// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache provides the small in-memory caches used by the gateway:
// a TTL cache for adapter fee quotes and a bounded FIFO record of recently
// dispatched payload hashes.
package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type ttlEntry[V any] struct {
	value     V
	fetchedAt time.Time
}

// TTLCache caches values with a per-key freshness window and deduplicates
// concurrent fetches for the same key.
type TTLCache[K comparable, V any] struct {
	lock    sync.RWMutex
	data    map[K]ttlEntry[V]
	ttl     time.Duration
	sfGroup singleflight.Group
}

// NewTTLCache creates a TTL cache whose entries stay fresh for ttl
func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]ttlEntry[V]),
		ttl:  ttl,
	}
}

// Get returns the cached value for key while it is fresh, otherwise fetches
// it with fetchFunc. Concurrent fetches for the same key are collapsed into
// one call. If invalidate is true the entry is dropped before fetching, so
// no caller can observe the stale value while the fetch is in flight.
func (c *TTLCache[K, V]) Get(key K, fetchFunc func(K) (V, error), invalidate bool) (V, error) {
	if invalidate {
		c.lock.Lock()
		delete(c.data, key)
		c.lock.Unlock()
	} else {
		c.lock.RLock()
		entry, exists := c.data[key]
		c.lock.RUnlock()
		if exists && time.Since(entry.fetchedAt) < c.ttl {
			return entry.value, nil
		}
	}

	v, err, _ := c.sfGroup.Do(keyToString(key), func() (interface{}, error) {
		value, fetchErr := fetchFunc(key)
		if fetchErr != nil {
			return *new(V), fetchErr
		}

		c.lock.Lock()
		c.data[key] = ttlEntry[V]{
			value:     value,
			fetchedAt: time.Now(),
		}
		c.lock.Unlock()

		return value, nil
	})
	if err != nil {
		return *new(V), err
	}
	return v.(V), nil
}

// keyToString supports both fmt.Stringer keys and primitive key types
func keyToString[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}
