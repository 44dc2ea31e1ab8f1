// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

// Handler is a task's message handler. id is the discriminator a task
// uses for its own internal dispatch ("Task handlers
// are bare function references plus an opaque context; variants on the
// handler type are unnecessary"); payload is the message body, valid
// only for the duration of the call.
type Handler func(t *Task, id int, payload []byte)

// Task is a named message handler. A Task is immutable after it starts being used with a Kernel
// and has process lifetime; the kernel never allocates or frees it.
//
// Context is opaque application state the Handler may use; the kernel
// never reads or writes it.
type Task struct {
	Handler Handler
	Context any
}
