// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command blinky is the kernel's hello-world: a single task that
// re-arms itself on a fixed period, the Go realization of the classic
// embedded "blink an LED" demo.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	utask "github.com/joeycumines/go-utask"
)

func main() {
	k, err := utask.New(
		utask.WithTCBSlots(4),
		utask.WithTicksPerSec(1000),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "construct:", err)
		os.Exit(1)
	}

	var blink *utask.Task
	blink = &utask.Task{Handler: func(t *utask.Task, id int, payload []byte) {
		fmt.Println("blink at tick", k.GetTick())
		if err := k.Send(t, id, nil, k.Sec(1)); err != nil {
			fmt.Fprintln(os.Stderr, "re-arm:", err)
		}
	}}

	if err := k.Send(blink, 0, nil, 0); err != nil {
		fmt.Fprintln(os.Stderr, "initial send:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

	if err := k.Run(ctx); err != nil && err != context.DeadlineExceeded {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}
}
