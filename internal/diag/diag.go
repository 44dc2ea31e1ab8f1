// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package diag implements the kernel's diagnostics channel on top of
// github.com/joeycumines/logiface, rather than a bespoke logger type: a
// minimal logiface.Event carrying the small, fixed field set diagnostics
// need, and a Writer that formats each event as a single line.
//
// Diagnostics never affect dispatch; they exist purely so an operator can
// observe pool sentinel corruption, late delivery, and similar non-fatal
// conditions.
package diag

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
)

// Event is the logiface.Event implementation used for kernel diagnostics.
// It is deliberately narrow: diagnostics have a fixed, small vocabulary of
// fields (see Kind constants below), so there is no need for the general
// nested object/array support other Event implementations provide.
type Event struct {
	logiface.UnimplementedEvent

	level   logiface.Level
	kind    string
	message string
	fields  [4]field
	nFields int
}

type field struct {
	key string
	val any
}

// Level implements logiface.Event.
func (e *Event) Level() logiface.Level { return e.level }

// AddField implements logiface.Event, recording up to 4 extra fields.
// Additional fields beyond the fixed set are silently dropped: this is a
// diagnostics channel, not a general logger.
func (e *Event) AddField(key string, val any) {
	if e.nFields < len(e.fields) {
		e.fields[e.nFields] = field{key: key, val: val}
		e.nFields++
	}
}

// AddMessage implements logiface.Event.
func (e *Event) AddMessage(msg string) bool {
	e.message = msg
	return true
}

// AddString implements logiface.Event.
func (e *Event) AddString(key, val string) bool {
	e.AddField(key, val)
	return true
}

// AddInt implements logiface.Event.
func (e *Event) AddInt(key string, val int) bool {
	e.AddField(key, val)
	return true
}

// AddUint64 implements logiface.Event.
func (e *Event) AddUint64(key string, val uint64) bool {
	e.AddField(key, val)
	return true
}

// AddBool implements logiface.Event.
func (e *Event) AddBool(key string, val bool) bool {
	e.AddField(key, val)
	return true
}

// Kind sets the diagnostic's classification (e.g. "pool.sentinel_mismatch")
// and returns the event, for convenient chaining from Kernel call sites.
func (e *Event) Kind(kind string) *Event {
	e.kind = kind
	return e
}

func (e *Event) reset() {
	e.level = logiface.LevelDisabled
	e.kind = ""
	e.message = ""
	e.nFields = 0
}

var eventPool = sync.Pool{New: func() any { return new(Event) }}

type eventFactory struct{}

func (eventFactory) NewEvent(level logiface.Level) *Event {
	e := eventPool.Get().(*Event)
	e.reset()
	e.level = level
	return e
}

type eventReleaser struct{}

func (eventReleaser) ReleaseEvent(e *Event) {
	eventPool.Put(e)
}

// lineWriter formats each event as a single
// "<RFC3339 time> level=... kind=... msg=\"...\" k=v ..." line, a low-overhead default well suited to a disabled-by-default
// diagnostics channel.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lineWriter) Write(e *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s level=%s kind=%s msg=%q", time.Now().Format(time.RFC3339Nano), e.level, e.kind, e.message)
	for i := 0; i < e.nFields; i++ {
		fmt.Fprintf(w.out, " %s=%v", e.fields[i].key, e.fields[i].val)
	}
	fmt.Fprintln(w.out)
	return nil
}

// New constructs a diagnostics logger that writes human-readable lines to
// w at or above level.
func New(w io.Writer, level logiface.Level) *logiface.Logger[*Event] {
	return logiface.New[*Event](
		logiface.WithLevel[*Event](level),
		logiface.WithEventFactory[*Event](eventFactory{}),
		logiface.WithEventReleaser[*Event](eventReleaser{}),
		logiface.WithWriter[*Event](&lineWriter{out: w}),
	)
}

// Disabled returns a diagnostics logger that discards everything, the
// default when WithDiagnostics is not supplied to New.
func Disabled() *logiface.Logger[*Event] {
	return logiface.New[*Event](logiface.WithLevel[*Event](logiface.LevelDisabled))
}
