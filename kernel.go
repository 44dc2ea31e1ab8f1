// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-utask/internal/critsec"
	"github.com/joeycumines/go-utask/internal/diag"
)

// Payload is a message body. The kernel never interprets it; it only
// moves ownership from post to delivery-or-cancel (Cancel returns
// any pending payloads to the caller rather than leaking them).
type Payload = []byte

// Kernel is the cooperative, single-threaded task dispatcher. A Kernel has exactly one dispatch-loop goroutine at a
// time (Run). Tick, SendISR, Alloc, Free, GetTick and Stats may be called
// from any goroutine; Send and Cancel are task-context-only (the loop's
// own goroutine, or a handler running on it). Send/Cancel/Alloc/Free take
// the critical section; SendISR uses the lock-free ISR ring instead.
type Kernel struct {
	state *fastState

	mu    sync.Mutex // guards tcbs, delay, pool, tick, stats below
	tcbs  *tcbArena
	delay *delayQueue
	pool  *pool
	tick  uint32

	isr *isrRing

	ticksPerSec uint32
	idleFunc    func()

	diag *logiface.Logger[*diag.Event]

	ticksProcessed    atomic.Uint64
	messagesDelivered atomic.Uint64
	messagesPromoted  atomic.Uint64
	maxLateness       atomic.Uint32
	isrHighWater      atomic.Uint32

	tcbCapacity      int
	isrQueueCapacity int
}

// New constructs a fully-initialized Kernel. Construction always
// succeeds unless an option combination is invalid; callers therefore
// never observe a partially-built Kernel ("construct before loop"
// is structurally enforced by New itself, not by a separate init call).
func New(opts ...Option) (*Kernel, error) {
	cfg := resolveOptions(opts)

	if cfg.tcbSlots <= 0 {
		return nil, ErrInvalidArgument
	}

	diagLogger := cfg.diagLogger
	if diagLogger == nil {
		diagLogger = diag.Disabled()
	}

	tcbs := newTCBArena(cfg.tcbSlots)

	k := &Kernel{
		state:       newFastState(stateConstructed),
		tcbs:        tcbs,
		delay:       newDelayQueue(tcbs),
		pool:        newPool(cfg.poolClasses, cfg.poolDebug, diagLogger),
		isr:         newISRRing(cfg.isrQueueSize),
		ticksPerSec: cfg.ticksPerSec,
		diag:        diagLogger,
	}
	k.tcbCapacity = cfg.tcbSlots
	k.isrQueueCapacity = k.isr.capacity()
	return k, nil
}

// IdleFunc installs a hook the dispatch loop calls whenever a Run
// iteration finds nothing ready to promote or deliver, the realization of a bare-metal
// kernel's idle/WFI hook. Must be set before Run starts; not safe to
// change concurrently with Run.
func (k *Kernel) IdleFunc(fn func()) {
	k.idleFunc = fn
}

// Sec converts n seconds to a tick delay using the configured tick rate.
func (k *Kernel) Sec(n uint32) uint32 { return n * k.ticksPerSec }

// Min converts n minutes to a tick delay.
func (k *Kernel) Min(n uint32) uint32 { return n * 60 * k.ticksPerSec }

// Hour converts n hours to a tick delay.
func (k *Kernel) Hour(n uint32) uint32 { return n * 3600 * k.ticksPerSec }

// GetTick returns the current tick count.
func (k *Kernel) GetTick() uint32 {
	release := critsec.Enter(&k.mu)
	defer release()
	return k.tick
}

// Send schedules payload for delivery to task, tagged with id, after
// delay ticks (0 meaning due at once: delivered on the dispatch loop's
// next iteration, without waiting for a Tick). Send must not be called
// from ISR context; use SendISR there. Returns ErrTCBExhausted if the
// TCB pool has no free slot, ErrInvalidArgument if task or its Handler
// is nil.
func (k *Kernel) Send(task *Task, id int, payload Payload, delay uint32) error {
	if task == nil || task.Handler == nil {
		return ErrInvalidArgument
	}

	release := critsec.Enter(&k.mu)
	defer release()

	idx := k.tcbs.alloc()
	if idx == tcbNil {
		return ErrTCBExhausted
	}

	t := k.tcbs.get(idx)
	t.task = task
	t.id = id
	t.payload = payload
	t.expiry = k.tick + delay
	t.from = originApp

	k.delay.enqueue(idx)
	return nil
}

// SendISR stages payload for promotion to the delay queue on the dispatch
// loop's next iteration, failing outright (ErrISRQueueFull) rather than
// blocking or spilling, if the bounded staging ring has no free slot.
// Unlike Send, SendISR is safe to call concurrently with Tick and Run from
// a goroutine other than the dispatch loop's own.
func (k *Kernel) SendISR(task *Task, id int, payload Payload) error {
	if task == nil || task.Handler == nil {
		return ErrInvalidArgument
	}
	if !k.isr.push(isrEntry{task: task, id: id, payload: payload}) {
		if k.diag != nil {
			logDiag(k.diag, logiface.LevelWarning, "isr.queue_full", "isr staging queue full")
		}
		return ErrISRQueueFull
	}
	bumpMax(&k.isrHighWater, uint32(k.isr.occupancy()))
	return nil
}

// bumpMax atomically maintains a running maximum.
func bumpMax(a *atomic.Uint32, v uint32) {
	for {
		cur := a.Load()
		if v <= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Cancel removes every pending message addressed to (task, id),
// returning their payloads to the caller (the kernel never leaks a
// payload it owns). Cancel must not be called from ISR context; an
// ISR-originated message may only be cancelled after it is promoted off
// the staging ring.
func (k *Kernel) Cancel(task *Task, id int) []Payload {
	release := critsec.Enter(&k.mu)
	defer release()

	indices := k.delay.cancel(task, id)
	if len(indices) == 0 {
		return nil
	}

	freed := make([]Payload, 0, len(indices))
	for _, idx := range indices {
		t := k.tcbs.get(idx)
		freed = append(freed, t.payload)
		k.tcbs.release(idx)
	}
	return freed
}

// Alloc requests size bytes from the fixed-block memory pool, returning
// nil if no configured class can satisfy it or the pool is exhausted
//. Safe to call from any goroutine, including ISR context.
func (k *Kernel) Alloc(size int) []byte {
	release := critsec.Enter(&k.mu)
	defer release()
	return k.pool.alloc(size)
}

// Free returns buf to the memory pool. A nil or foreign buf (one that
// did not originate from this Kernel's Alloc) is a silent no-op.
func (k *Kernel) Free(buf []byte) {
	release := critsec.Enter(&k.mu)
	defer release()
	k.pool.free(buf)
}

// promoteISR drains every entry currently staged on the ISR ring into
// the delay queue, at the current tick (i.e. delay zero). If the TCB
// pool runs out, it stops and leaves the remaining entries staged, to be
// promoted by a later iteration. Called once per Run iteration, from the
// dispatch loop only -- it is the loop's consumer side of the ISR ring,
// not Tick's. Returns the number promoted.
func (k *Kernel) promoteISR() int {
	release := critsec.Enter(&k.mu)
	defer release()

	n := 0
	for {
		if k.isr.empty() {
			return n
		}
		idx := k.tcbs.alloc()
		if idx == tcbNil {
			if k.diag != nil {
				logDiag(k.diag, logiface.LevelError, "dispatch.tcb_exhausted", "tcb pool exhausted promoting isr entry")
			}
			return n
		}
		// Single consumer: the ring was non-empty above, so pop succeeds.
		e, _ := k.isr.pop()
		t := k.tcbs.get(idx)
		t.task = e.task
		t.id = e.id
		t.payload = e.payload
		t.expiry = k.tick
		t.from = originISR
		k.delay.enqueue(idx)
		n++
	}
}

// Tick advances the tick counter by one. It is the kernel's ISR-context
// primitive: cheap, and safe to call from a goroutine other than
// the one running [Kernel.Run] -- typically a ticker goroutine standing
// in for a hardware timer interrupt. It does not touch the ISR ring or
// deliver any messages itself; draining the ring into the delay queue
// and delivering matured messages are both [Kernel.Run]'s job, done
// once per loop iteration.
func (k *Kernel) Tick() {
	release := critsec.Enter(&k.mu)
	k.tick++
	release()

	k.ticksProcessed.Add(1)
}

// collectDue pops every TCB whose expiry is not after the current tick,
// in ascending-expiry (FIFO-among-equals) order, and reports the
// largest observed (now - expiry).
func (k *Kernel) collectDue() ([]tcbIndex, uint32) {
	release := critsec.Enter(&k.mu)
	defer release()

	now := k.tick
	var due []tcbIndex
	var lateness uint32
	for {
		idx := k.delay.front()
		if idx == tcbNil {
			break
		}
		t := k.tcbs.get(idx)
		if tickAfter(t.expiry, now) {
			break
		}
		if d := now - t.expiry; d > lateness {
			lateness = d
		}
		k.delay.dequeue()
		due = append(due, idx)
	}
	return due, lateness
}

// dispatch invokes one due TCB's handler outside the critical section,
// then frees the payload via the pool (a no-op for a payload that did not
// come from Alloc) and releases the TCB back to the arena.
func (k *Kernel) dispatch(idx tcbIndex) {
	release := critsec.Enter(&k.mu)
	t := k.tcbs.get(idx)
	task, id, payload := t.task, t.id, t.payload
	release()

	func() {
		defer func() {
			if r := recover(); r != nil {
				if k.diag != nil {
					logDiag(k.diag, logiface.LevelError, "dispatch.handler_panic", "task handler panicked", kv{"recovered", r})
				}
			}
		}()
		task.Handler(task, id, payload)
	}()

	release = critsec.Enter(&k.mu)
	k.pool.free(payload)
	k.tcbs.release(idx)
	release()
}

// Run is the cooperative dispatch loop. Each iteration: it drains the
// ISR staging ring into the delay queue (the ring's consumer side),
// then collects every message due at the current tick and delivers it,
// in ascending-expiry order. It runs until ctx is cancelled or Shutdown
// is called. It never advances the tick counter itself -- that is
// [Kernel.Tick]'s job, typically driven by a separate goroutine. When an
// iteration promotes nothing and delivers nothing, Run idles via
// IdleFunc (or runtime.Gosched, absent one) rather than busy-looping
// unboundedly. Run returns nil on orderly shutdown, or ctx.Err() if
// ctx's cancellation caused the return. Only one goroutine may call Run
// at a time; a second concurrent call returns ErrAlreadyRunning.
func (k *Kernel) Run(ctx context.Context) error {
	if k.state == nil || k.state.Load() == stateUnconstructed {
		return ErrNotConstructed
	}
	if !k.state.TryTransition(stateConstructed, stateRunning) {
		return ErrAlreadyRunning
	}
	defer k.state.Store(stateTerminated)

	for {
		select {
		case <-ctx.Done():
			k.state.Store(stateShutdown)
			return ctx.Err()
		default:
		}

		if k.state.Load() == stateShutdown {
			return nil
		}

		promoted := k.promoteISR()
		if promoted > 0 {
			k.messagesPromoted.Add(uint64(promoted))
		}

		due, lateness := k.collectDue()
		if len(due) == 0 {
			if promoted == 0 {
				if k.idleFunc != nil {
					k.idleFunc()
				} else {
					runtime.Gosched()
				}
			}
			continue
		}

		for _, idx := range due {
			k.dispatch(idx)
		}
		k.messagesDelivered.Add(uint64(len(due)))
		bumpMax(&k.maxLateness, lateness)
		if lateness > 0 && k.diag != nil {
			logDiag(k.diag, logiface.LevelWarning, "dispatch.late", "messages delivered late", kv{"lateness", lateness})
		}
	}
}

// Shutdown requests an orderly stop of the dispatch loop; Run returns
// nil the next time it observes the transition. Safe to call from any
// goroutine, any number of times.
func (k *Kernel) Shutdown() {
	k.state.TryTransition(stateRunning, stateShutdown)
	k.state.TryTransition(stateConstructed, stateTerminated)
}
