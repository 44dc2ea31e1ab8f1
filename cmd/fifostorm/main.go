// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command fifostorm posts a burst of messages at the same expiry and
// confirms they are delivered in post order.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	utask "github.com/joeycumines/go-utask"
)

func main() {
	k, err := utask.New(utask.WithTCBSlots(64))
	if err != nil {
		fmt.Fprintln(os.Stderr, "construct:", err)
		os.Exit(1)
	}

	const n = 20
	var order []int
	task := &utask.Task{Handler: func(t *utask.Task, id int, payload []byte) {
		order = append(order, id)
	}}

	for i := 0; i < n; i++ {
		if err := k.Send(task, i, nil, 5); err != nil {
			fmt.Fprintln(os.Stderr, "send", i, ":", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- k.Run(ctx) }()

	for i := 0; i < 5; i++ {
		k.Tick()
	}

	for k.Stats().MessagesDelivered < n {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-runErr

	fmt.Println("order:", order)
	for i := 1; i < len(order); i++ {
		if order[i] != order[i-1]+1 {
			fmt.Fprintln(os.Stderr, "FIFO violated at", i)
			os.Exit(1)
		}
	}
	fmt.Println("FIFO preserved across", n, "equal-expiry messages")
}
