// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFIFOPutGet(t *testing.T) {
	record := NewFIFO[string, int](4)

	_, ok := record.Get("a")
	require.False(t, ok)

	record.Put("a", 1)
	val, ok := record.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, val)
	require.Equal(t, 1, record.Len())
}

func TestFIFOEvictsOldest(t *testing.T) {
	record := NewFIFO[string, int](2)

	record.Put("a", 1)
	record.Put("b", 2)
	record.Put("c", 3)

	_, ok := record.Get("a")
	require.False(t, ok)

	for key, want := range map[string]int{"b": 2, "c": 3} {
		val, ok := record.Get(key)
		require.True(t, ok)
		require.Equal(t, want, val)
	}
	require.Equal(t, 2, record.Len())
}

func TestFIFORePutDoesNotRequeue(t *testing.T) {
	record := NewFIFO[string, int](2)

	record.Put("a", 1)
	record.Put("b", 2)
	record.Put("a", 10)
	record.Put("c", 3)

	// "a" was not re-queued, so it is still the oldest and gets evicted
	_, ok := record.Get("a")
	require.False(t, ok)

	val, ok := record.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, val)
}
