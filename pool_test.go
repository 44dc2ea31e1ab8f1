// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-utask/internal/diag"
)

func TestPool_BackingSizeSumsEveryEnabledClass(t *testing.T) {
	p := newPool([]PoolClass{
		{Size: 16, Count: 2},
		{Size: 64, Count: 3},
	}, false, nil)

	// 16*2 + 64*3 = 224; the bug this corrects would drop one class from
	// the sum and under-allocate the arena.
	assert.Equal(t, 224, len(p.arena))
}

func TestPool_ClassesSortedAscendingRegardlessOfInputOrder(t *testing.T) {
	p := newPool([]PoolClass{
		{Size: 64, Count: 1},
		{Size: 16, Count: 1},
		{Size: 32, Count: 1},
	}, false, nil)

	require.Len(t, p.classes, 3)
	assert.Equal(t, 16, p.classes[0].size)
	assert.Equal(t, 32, p.classes[1].size)
	assert.Equal(t, 64, p.classes[2].size)
}

func TestPool_AllocPicksSmallestFittingClass(t *testing.T) {
	p := newPool([]PoolClass{
		{Size: 16, Count: 1},
		{Size: 64, Count: 1},
	}, false, nil)

	b := p.alloc(10)
	require.NotNil(t, b)
	assert.Len(t, b, 10)
	assert.Equal(t, 0, p.classes[0].free, "the 16-byte class should have been used")
	assert.Equal(t, 1, p.classes[1].free)
}

func TestPool_ExhaustionReturnsNil(t *testing.T) {
	p := newPool([]PoolClass{{Size: 16, Count: 1}}, false, nil)
	require.NotNil(t, p.alloc(16))
	assert.Nil(t, p.alloc(16))
}

func TestPool_NoClassFitsReturnsNil(t *testing.T) {
	p := newPool([]PoolClass{{Size: 16, Count: 1}}, false, nil)
	assert.Nil(t, p.alloc(17))
}

func TestPool_FreeReturnsBlockToClass(t *testing.T) {
	p := newPool([]PoolClass{{Size: 16, Count: 1}}, false, nil)
	b := p.alloc(16)
	require.NotNil(t, b)
	assert.Equal(t, 0, p.classes[0].free)

	p.free(b)
	assert.Equal(t, 1, p.classes[0].free)

	b2 := p.alloc(16)
	require.NotNil(t, b2)
}

func TestPool_FreeForeignPointerIsNoop(t *testing.T) {
	p := newPool([]PoolClass{{Size: 16, Count: 1}}, false, nil)
	foreign := make([]byte, 16)
	p.free(foreign) // must not panic, and must not corrupt the free list
	assert.Equal(t, 1, p.classes[0].free)
}

func TestPool_FreeNilIsNoop(t *testing.T) {
	p := newPool([]PoolClass{{Size: 16, Count: 1}}, false, nil)
	p.free(nil)
	assert.Equal(t, 1, p.classes[0].free)
}

func TestPool_DebugModeFramesAndFillsBlock(t *testing.T) {
	p := newPool([]PoolClass{{Size: 8, Count: 1}}, true, nil)
	b := p.alloc(4)
	require.Len(t, b, 4)
	for _, c := range b {
		assert.Equal(t, byte(debugFillByte), c)
	}

	p.free(b)
	assert.Equal(t, 1, p.classes[0].free)
}

func TestPool_DebugModeDetectsOverrun(t *testing.T) {
	var buf bytes.Buffer
	p := newPool([]PoolClass{{Size: 8, Count: 1}}, true, diag.New(&buf, logiface.LevelWarning))

	b := p.alloc(4)
	require.Len(t, b, 4)
	// Simulate a buffer overrun by writing past the requested length,
	// into the end sentinel.
	full := b[:cap(b)]
	full[4] = 0x00

	p.free(b)
	assert.True(t, strings.Contains(buf.String(), "pool.sentinel_mismatch"))
}

func TestPool_EmptyPoolAllocReturnsNil(t *testing.T) {
	p := newPool(nil, false, nil)
	assert.Nil(t, p.alloc(1))
}

func TestPool_MoreThanMaxClassesTruncated(t *testing.T) {
	classes := make([]PoolClass, 0, 6)
	for i := 1; i <= 6; i++ {
		classes = append(classes, PoolClass{Size: i * 8, Count: 1})
	}
	p := newPool(classes, false, nil)
	assert.Len(t, p.classes, MaxPoolClasses)
}
