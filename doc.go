// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package utask implements a minimal cooperative, message-driven task
// kernel for deeply embedded controllers.
//
// # Architecture
//
// A [Kernel] is built around five cooperating components: a monotonic,
// wrapping tick counter; a fixed-capacity [Task] control block pool; a
// doubly-linked delay queue ordered by expiry; a bounded single-producer/
// single-consumer ring buffer used to stage messages posted from "ISR"
// context; and a fixed-block memory pool for message payloads. A single
// cooperative dispatch loop ([Kernel.Run]) drains the ISR ring into the
// delay queue, then delivers whatever has matured at the head of the
// delay queue.
//
// # ISR Model
//
// This is a hosted Go port of a bare-metal design; there is no real
// interrupt controller. "ISR context" means any goroutine other than the
// one running [Kernel.Run], calling [Kernel.Tick], [Kernel.SendISR],
// [Kernel.Alloc], or [Kernel.Free]. [Kernel.Send] and [Kernel.Cancel] are
// task-context-only: call them only from the dispatch loop's own
// goroutine, or from within a task [Handler] running on it. The kernel
// does not police this at runtime; it trusts the caller's ISR/task split.
//
// # Thread Safety
//
// [Kernel.Tick], [Kernel.SendISR], [Kernel.Alloc], and [Kernel.Free] are
// safe to call concurrently with [Kernel.Run] from any goroutine.
// [Kernel.Send] and [Kernel.Cancel] are not; see the ISR Model section.
// [Kernel.GetTick] and [Kernel.Stats] are safe from any goroutine at any
// time.
//
// # Usage
//
//	k, err := utask.New(utask.WithTCBSlots(32), utask.WithISRQueueSize(16))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	blink := &utask.Task{Handler: func(t *utask.Task, id int, payload []byte) {
//	    fmt.Println("tick", k.GetTick(), "id", id)
//	    k.Send(t, id, nil, k.Sec(1))
//	}}
//
//	go func() {
//	    for range time.Tick(time.Millisecond) {
//	        k.Tick()
//	    }
//	}()
//
//	k.Send(blink, 0, nil, 0)
//	if err := k.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// Fallible operations return sentinel errors checkable with [errors.Is]:
// [ErrTCBExhausted], [ErrISRQueueFull], [ErrInvalidArgument],
// [ErrNotConstructed], and [ErrAlreadyRunning]. [Kernel.Alloc] reports
// pool exhaustion by returning nil rather than [ErrPoolExhausted].
package utask
