// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-utask/internal/diag"
)

// TestScenario_Blinky re-arms a single task forever on a fixed period,
// the minimal end-to-end loop: one task, Send, Tick, Run.
func TestScenario_Blinky(t *testing.T) {
	k, err := New(WithTCBSlots(2))
	require.NoError(t, err)

	var blinks atomic.Int64
	var blink *Task
	blink = &Task{Handler: func(t *Task, id int, payload []byte) {
		blinks.Add(1)
		_ = k.Send(t, id, nil, 1)
	}}
	require.NoError(t, k.Send(blink, 0, nil, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(200 * time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				k.Tick()
			}
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- k.Run(ctx) }()

	for blinks.Load() < 5 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-runErr
	assert.GreaterOrEqual(t, blinks.Load(), int64(5))
}

// TestScenario_FIFOAmongEqualExpiries posts a burst of same-delay
// messages from the same task and confirms delivery preserves post
// order.
func TestScenario_FIFOAmongEqualExpiries(t *testing.T) {
	k, err := New(WithTCBSlots(64))
	require.NoError(t, err)

	const n = 30
	var mu sync.Mutex
	var order []int
	task := &Task{Handler: func(t *Task, id int, payload []byte) {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
	}}

	for i := 0; i < n; i++ {
		require.NoError(t, k.Send(task, i, nil, 3))
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- k.Run(ctx) }()

	for i := 0; i < 3; i++ {
		k.Tick()
	}

	for k.Stats().MessagesDelivered < n {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-runErr

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i := range order {
		assert.Equal(t, i, order[i])
	}
}

// TestScenario_CancelMiddleOfDelayQueue posts three messages, cancels
// the middle one before it matures, and confirms only the other two are
// delivered, with the cancelled payload returned to the caller.
func TestScenario_CancelMiddleOfDelayQueue(t *testing.T) {
	k, err := New()
	require.NoError(t, err)

	var mu sync.Mutex
	var delivered []int
	task := &Task{Handler: func(t *Task, id int, payload []byte) {
		mu.Lock()
		delivered = append(delivered, id)
		mu.Unlock()
	}}

	require.NoError(t, k.Send(task, 1, []byte("first"), 10))
	require.NoError(t, k.Send(task, 2, []byte("second"), 10))
	require.NoError(t, k.Send(task, 3, []byte("third"), 10))

	freed := k.Cancel(task, 2)
	require.Len(t, freed, 1)
	assert.Equal(t, "second", string(freed[0]))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- k.Run(ctx) }()

	for i := 0; i < 10; i++ {
		k.Tick()
	}
	for k.Stats().MessagesDelivered < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-runErr

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{1, 3}, delivered)
}

// TestScenario_ISRFastPath posts from a goroutine other than the
// dispatch loop's own, concurrently with Tick and Run, and confirms
// every accepted post is eventually delivered.
func TestScenario_ISRFastPath(t *testing.T) {
	k, err := New(WithISRQueueSize(8), WithTCBSlots(64))
	require.NoError(t, err)

	var delivered atomic.Int64
	task := &Task{Handler: func(t *Task, id int, payload []byte) {
		delivered.Add(1)
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(100 * time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				k.Tick()
			}
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- k.Run(ctx) }()

	var posted atomic.Int64
	const target = 200
	for posted.Load() < target {
		if k.SendISR(task, 0, nil) == nil {
			posted.Add(1)
		}
	}

	for delivered.Load() < target {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-runErr
	assert.Equal(t, target, int(delivered.Load()))
}

// TestScenario_PoolExhaustion confirms Alloc fails outright, without
// blocking, once every block in the only fitting class is taken.
func TestScenario_PoolExhaustion(t *testing.T) {
	k, err := New(WithPool(PoolClass{Size: 32, Count: 2}))
	require.NoError(t, err)

	a := k.Alloc(32)
	b := k.Alloc(32)
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Nil(t, k.Alloc(32))

	k.Free(a)
	assert.NotNil(t, k.Alloc(32))
}

// TestScenario_PoolOverrunDebugDetection confirms debug-mode framing
// detects a write past a block's requested size and reports it via
// diagnostics, without crashing the allocator.
func TestScenario_PoolOverrunDebugDetection(t *testing.T) {
	var buf bytes.Buffer
	k, err := New(
		WithPool(PoolClass{Size: 8, Count: 1}),
		WithPoolDebug(true),
		WithDiagnostics(diag.New(&buf, logiface.LevelWarning)),
	)
	require.NoError(t, err)

	b := k.Alloc(4)
	require.Len(t, b, 4)

	overrun := b[:cap(b)]
	overrun[len(b)] = 0xFF // stomps the end sentinel

	k.Free(b)
	assert.True(t, strings.Contains(buf.String(), "pool.sentinel_mismatch"))

	// The block is still returned to the free list despite the
	// corruption, so allocation capacity is not permanently lost.
	assert.NotNil(t, k.Alloc(4))
}
