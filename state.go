// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import "sync/atomic"

// lifecycleState represents the Kernel's construction/run/shutdown state.
//
// State Machine:
//
//	stateUnconstructed (0) → stateConstructed (1)  [New]
//	stateConstructed (1)   → stateRunning (2)      [Run]
//	stateConstructed (1)   → stateTerminated (4)   [Shutdown before Run]
//	stateRunning (2)       → stateShutdown (3)     [Shutdown, or ctx done]
//	stateShutdown (3)      → stateTerminated (4)   [Run returns]
//
// State Transition Rules:
//   - Use TryTransition (CAS) for the stateRunning transition and for
//     Shutdown's transitions
//   - Use Store for Run's own one-way stateShutdown/stateTerminated
//     transitions (ctx done, and Run returning)
type lifecycleState uint32

const (
	stateUnconstructed lifecycleState = iota
	stateConstructed
	stateRunning
	stateShutdown
	stateTerminated
)

func (s lifecycleState) String() string {
	switch s {
	case stateUnconstructed:
		return "Unconstructed"
	case stateConstructed:
		return "Constructed"
	case stateRunning:
		return "Running"
	case stateShutdown:
		return "Shutdown"
	case stateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state holder: pure atomic load/CAS/store, no
// validation of transitions beyond what the CAS itself enforces.
type fastState struct {
	v atomic.Uint32
}

func newFastState(initial lifecycleState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

// Load returns the current state atomically.
func (s *fastState) Load() lifecycleState {
	return lifecycleState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation.
func (s *fastState) Store(state lifecycleState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically move from one state to another.
func (s *fastState) TryTransition(from, to lifecycleState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
