// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package critsec provides a scoped stand-in for a bare-metal kernel's
// interrupt_disable/interrupt_restore pair.
//
// A bare-metal target masks interrupts (or, on a single core, acquires a
// system-wide lock) around any section that mutates state shared with
// an ISR, then restores the prior state on every exit path, including
// early returns. This package models that with an ordinary mutex and a
// release closure, so callers can use Go's defer instead of manual
// save/restore pairs:
//
//	release := critsec.Enter(&k.mu)
//	defer release()
package critsec

import "sync"

// Enter acquires mu and returns a function that releases it. Call the
// returned function (typically via defer) on every exit path.
func Enter(mu *sync.Mutex) (release func()) {
	mu.Lock()
	return mu.Unlock
}
