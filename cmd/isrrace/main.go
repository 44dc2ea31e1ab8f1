// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command isrrace demonstrates the ISR fast path: one goroutine stands
// in for an interrupt handler, posting messages via SendISR while the
// dispatch loop and the tick source run concurrently on other
// goroutines.
package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	utask "github.com/joeycumines/go-utask"
)

func main() {
	k, err := utask.New(
		utask.WithTCBSlots(256),
		utask.WithISRQueueSize(32),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "construct:", err)
		os.Exit(1)
	}

	var delivered atomic.Int64
	task := &utask.Task{Handler: func(t *utask.Task, id int, payload []byte) {
		delivered.Add(1)
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				k.Tick()
			}
		}
	}()

	var posted, rejected atomic.Int64
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := k.SendISR(task, 0, nil); err != nil {
				rejected.Add(1)
			} else {
				posted.Add(1)
			}
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- k.Run(ctx) }()
	<-runErr

	fmt.Println("posted:", posted.Load(), "rejected:", rejected.Load(), "delivered:", delivered.Load())
	fmt.Println("isr high-water mark:", k.Stats().ISRHighWaterMark)
}
