// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import "errors"

// Sentinel errors returned by Kernel operations. All are checkable with
// errors.Is.
var (
	// ErrTCBExhausted is returned by Send when the TCB pool's free list is
	// empty.
	ErrTCBExhausted = errors.New("utask: tcb pool exhausted")

	// ErrISRQueueFull is returned by SendISR when the ISR staging ring has
	// no free slots.
	ErrISRQueueFull = errors.New("utask: isr staging queue full")

	// ErrPoolExhausted names the condition in which no pool class can
	// satisfy an allocation. Alloc reports that condition by returning nil
	// (and emitting a "pool.exhausted" diagnostic), not by returning this
	// error; no Kernel operation currently returns it.
	ErrPoolExhausted = errors.New("utask: memory pool exhausted")

	// ErrInvalidArgument is returned by Send and SendISR when task or its
	// Handler is nil.
	ErrInvalidArgument = errors.New("utask: invalid argument")

	// ErrNotConstructed is returned by Run if called on a Kernel that was
	// not produced by New.
	ErrNotConstructed = errors.New("utask: kernel not constructed")

	// ErrAlreadyRunning is returned by Run if the kernel is already
	// dispatching on another goroutine.
	ErrAlreadyRunning = errors.New("utask: kernel already running")
)
