// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import "sync/atomic"

// isrEntry is the lightweight TCB snapshot an ISR stages; it carries no
// expiry (ISR-posted messages fire at the promotion tick) and
// no list links, since it never lives in the delay queue directly.
type isrEntry struct {
	task    *Task
	id      int
	payload []byte
}

// isrRing is the bounded SPSC ring buffer, capacity
// ISRQueueSize+1 slots (one reserved, the classic single-producer/
// single-consumer ring buffer trick for distinguishing full from empty
// without a separate counter). It is the same algorithm family as this
// codebase's MicrotaskRing (single ring, head/tail indices, atomic
// release/acquire on the slot), simplified to the true single-producer
// case and without an overflow spill list: SendISR fails outright when
// the ring is full, rather than degrading to an unbounded slice.
//
// Concurrency model: exactly one producer goroutine (whichever goroutine
// calls SendISR; only one ISR caller is permitted at a time per queue) and one consumer (the dispatch loop, Kernel.Run). tail is
// producer-owned, head is consumer-owned; each side only ever writes its
// own index and reads the other's via atomic load, which is sufficient
// acquire/release ordering for the single-writer-per-field case.
type isrRing struct {
	slots []isrEntry
	head  atomic.Uint32 // consumer-owned
	tail  atomic.Uint32 // producer-owned
}

func newISRRing(n int) *isrRing {
	return &isrRing{slots: make([]isrEntry, n+1)}
}

func (r *isrRing) cap() uint32 {
	return uint32(len(r.slots))
}

// full reports whether the ring has no free slot for a producer.
func (r *isrRing) full() bool {
	tail := r.tail.Load()
	head := r.head.Load()
	next := (tail + 1) % r.cap()
	return next == head
}

// empty reports whether the ring has nothing for the consumer to
// promote.
func (r *isrRing) empty() bool {
	return r.head.Load() == r.tail.Load()
}

// push stages e. Returns false if the ring is full; the caller (SendISR)
// translates that into ErrISRQueueFull. Safe to call concurrently with
// pop, from the single producer goroutine.
func (r *isrRing) push(e isrEntry) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	cap := r.cap()
	next := (tail + 1) % cap
	if next == head {
		return false
	}
	r.slots[tail] = e
	r.tail.Store(next)
	return true
}

// pop removes and returns the oldest staged entry. Safe to call
// concurrently with push, from the single consumer goroutine (the
// dispatch loop).
func (r *isrRing) pop() (isrEntry, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return isrEntry{}, false
	}
	e := r.slots[head]
	r.slots[head] = isrEntry{}
	r.head.Store((head + 1) % r.cap())
	return e, true
}

// occupancy returns the current number of staged entries, for Stats.
func (r *isrRing) occupancy() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((tail - head + r.cap()) % r.cap())
}

// capacity returns the usable capacity (ISRQueueSize), i.e. slots minus
// the one reserved slot.
func (r *isrRing) capacity() int {
	return len(r.slots) - 1
}
