// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheFreshness(t *testing.T) {
	cache := NewTTLCache[string, int](50 * time.Millisecond)
	fetchCount := 0
	fetchFunc := func(string) (int, error) {
		fetchCount++
		return 42, nil
	}

	val, err := cache.Get("quote", fetchFunc, false)
	require.NoError(t, err)
	require.Equal(t, 42, val)
	require.Equal(t, 1, fetchCount)

	// Fresh entry, no fetch
	_, err = cache.Get("quote", fetchFunc, false)
	require.NoError(t, err)
	require.Equal(t, 1, fetchCount)

	// Invalidate forces a fetch
	_, err = cache.Get("quote", fetchFunc, true)
	require.NoError(t, err)
	require.Equal(t, 2, fetchCount)

	// Expired entry fetches again
	time.Sleep(60 * time.Millisecond)
	_, err = cache.Get("quote", fetchFunc, false)
	require.NoError(t, err)
	require.Equal(t, 3, fetchCount)
}

func TestTTLCacheFetchError(t *testing.T) {
	cache := NewTTLCache[string, int](time.Minute)
	fetchErr := errors.New("estimate failed")

	_, err := cache.Get("quote", func(string) (int, error) {
		return 0, fetchErr
	}, false)
	require.ErrorIs(t, err, fetchErr)

	// Errors are not cached
	val, err := cache.Get("quote", func(string) (int, error) {
		return 7, nil
	}, false)
	require.NoError(t, err)
	require.Equal(t, 7, val)
}

func TestTTLCacheSingleFlight(t *testing.T) {
	cache := NewTTLCache[string, int](time.Minute)

	var (
		mu         sync.Mutex
		fetchCount int
	)
	gate := make(chan struct{})
	fetchFunc := func(string) (int, error) {
		mu.Lock()
		fetchCount++
		mu.Unlock()
		<-gate
		return 1, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := cache.Get("quote", fetchFunc, false)
			require.NoError(t, err)
			require.Equal(t, 1, val)
		}()
	}

	// Let the goroutines pile onto the in-flight fetch before releasing it
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, fetchCount)
}
