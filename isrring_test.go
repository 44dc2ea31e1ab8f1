// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISRRing_CapacityIsOneLessThanSlots(t *testing.T) {
	r := newISRRing(4)
	assert.Equal(t, 4, r.capacity())
	assert.Equal(t, uint32(5), r.cap())
}

func TestISRRing_FullAfterCapacityPushes(t *testing.T) {
	r := newISRRing(2)
	require.True(t, r.push(isrEntry{id: 1}))
	require.True(t, r.push(isrEntry{id: 2}))
	assert.True(t, r.full())
	assert.False(t, r.push(isrEntry{id: 3}), "push must fail outright when full, not spill")
}

func TestISRRing_PopOrdersFIFO(t *testing.T) {
	r := newISRRing(4)
	for i := 0; i < 4; i++ {
		require.True(t, r.push(isrEntry{id: i}))
	}
	for i := 0; i < 4; i++ {
		e, ok := r.pop()
		require.True(t, ok)
		assert.Equal(t, i, e.id)
	}
	_, ok := r.pop()
	assert.False(t, ok)
}

func TestISRRing_OccupancyTracksPushPop(t *testing.T) {
	r := newISRRing(4)
	assert.Equal(t, 0, r.occupancy())
	r.push(isrEntry{id: 1})
	r.push(isrEntry{id: 2})
	assert.Equal(t, 2, r.occupancy())
	r.pop()
	assert.Equal(t, 1, r.occupancy())
}

func TestISRRing_ConcurrentProducerConsumer(t *testing.T) {
	r := newISRRing(16)
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.push(isrEntry{id: i}) {
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if e, ok := r.pop(); ok {
				received = append(received, e.id)
			}
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, v := range received {
		assert.Equal(t, i, v)
	}
}
