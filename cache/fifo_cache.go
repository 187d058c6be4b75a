// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"sync"
)

// FIFO is a thread-safe bounded map with insertion-order eviction. The
// gateway uses it to remember recently dispatched payload hashes so that
// late duplicate deliveries are observable (logged and counted) without
// retaining every hash the gateway has ever processed. The record does not
// block redelivery: a late delivery still opens a fresh confirmation record
// for its hash, it is merely flagged on the way in.
type FIFO[K comparable, V any] struct {
	lock     sync.RWMutex
	entries  map[K]V
	queue    []K
	capacity int
}

// NewFIFO creates a FIFO record holding at most capacity entries
func NewFIFO[K comparable, V any](capacity int) *FIFO[K, V] {
	return &FIFO[K, V]{
		entries:  make(map[K]V, capacity),
		queue:    make([]K, 0, capacity),
		capacity: capacity,
	}
}

// Put records key with value, evicting the oldest entry at capacity.
// Re-putting an existing key updates its value without re-queueing it.
func (c *FIFO[K, V]) Put(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return
	}

	if len(c.queue) >= c.capacity {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = value
	c.queue = append(c.queue, key)
}

// Get returns the recorded value for key
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	value, exists := c.entries[key]
	return value, exists
}

// Len returns the number of recorded entries
func (c *FIFO[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return len(c.entries)
}
