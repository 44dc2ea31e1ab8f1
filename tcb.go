// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

const tcbNil tcbIndex = -1

// tcbIndex addresses a tcb within a Kernel's fixed tcb arena. Using an
// index rather than a pointer is an arena realization: the delay queue's doubly-linked structure
// becomes acyclic data with index cross-references instead of raw
// self-referential pointers, and the whole arena is one contiguous,
// no-heap allocation sized once at construction.
type tcbIndex int32

// origin records which API path produced a TCB, per the TCB entity's
// "origin flag {APP, ISR}" attribute.
type origin uint8

const (
	originApp origin = iota
	originISR
)

// tcb is one scheduling record for a pending message delivery. At most
// one of {free list, delay queue} holds a given tcb at a time (or it is
// in flight to a handler, owned solely by the dispatch loop).
type tcb struct {
	task    *Task
	id      int
	payload []byte
	expiry  uint32
	from    origin

	next tcbIndex // free-list link, or delay-queue forward link
	prev tcbIndex // delay-queue backward link; unused on the free list
}

// tcbArena is the fixed-capacity TCB pool: an array threaded as a
// singly linked free list via the next field. alloc and release
// are not internally locked; callers must already hold the kernel's
// critical section, since the free list is shared with whatever else
// is mutating the arena (the delay queue lives in the same slice).
type tcbArena struct {
	slots    []tcb
	freeHead tcbIndex
	free     int // count, for Stats and invariant checking
}

func newTCBArena(n int) *tcbArena {
	a := &tcbArena{
		slots: make([]tcb, n),
	}
	for i := range a.slots {
		a.slots[i].next = tcbIndex(i + 1)
	}
	if n > 0 {
		a.slots[n-1].next = tcbNil
		a.freeHead = 0
	} else {
		a.freeHead = tcbNil
	}
	a.free = n
	return a
}

// alloc pops the free-list head, returning tcbNil if the pool is
// exhausted.
func (a *tcbArena) alloc() tcbIndex {
	idx := a.freeHead
	if idx == tcbNil {
		return tcbNil
	}
	a.freeHead = a.slots[idx].next
	a.free--
	a.slots[idx].next = tcbNil
	a.slots[idx].prev = tcbNil
	return idx
}

// release pushes idx back onto the free list.
func (a *tcbArena) release(idx tcbIndex) {
	t := &a.slots[idx]
	t.task = nil
	t.payload = nil
	t.next = a.freeHead
	t.prev = tcbNil
	a.freeHead = idx
	a.free++
}

func (a *tcbArena) get(idx tcbIndex) *tcb {
	return &a.slots[idx]
}

func (a *tcbArena) cap() int {
	return len(a.slots)
}
