// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import "github.com/joeycumines/go-utask/internal/critsec"

// PoolClassStat reports one size class's occupancy.
type PoolClassStat struct {
	Size  int
	Count int
	Free  int
}

// Stats is a point-in-time snapshot of kernel occupancy and throughput,
// the kind of counters an
// operator actually reaches for when diagnosing a deployed controller.
type Stats struct {
	TCBCapacity  int
	FreeTCBs     int
	DelayedCount int

	ISRQueueCapacity  int
	ISRQueueOccupancy int
	ISRHighWaterMark  int

	PoolClasses []PoolClassStat

	TicksProcessed    uint64
	MessagesDelivered uint64
	MessagesPromoted  uint64

	// MaxObservedLateness is the largest (now - expiry) seen across every
	// delivery so far: zero means every delivery has happened on or before
	// its scheduled tick.
	MaxObservedLateness uint32
}

// Stats returns a snapshot of the kernel's current occupancy and
// cumulative counters. Safe to call from any goroutine, concurrently
// with Run.
func (k *Kernel) Stats() Stats {
	release := critsec.Enter(&k.mu)
	free := k.tcbs.free
	delayed := k.delay.length
	classes := k.pool.classOccupancy()
	release()

	return Stats{
		TCBCapacity:  k.tcbCapacity,
		FreeTCBs:     free,
		DelayedCount: delayed,

		ISRQueueCapacity:  k.isrQueueCapacity,
		ISRQueueOccupancy: k.isr.occupancy(),
		ISRHighWaterMark:  int(k.isrHighWater.Load()),

		PoolClasses: classes,

		TicksProcessed:    k.ticksProcessed.Load(),
		MessagesDelivered: k.messagesDelivered.Load(),
		MessagesPromoted:  k.messagesPromoted.Load(),

		MaxObservedLateness: k.maxLateness.Load(),
	}
}
