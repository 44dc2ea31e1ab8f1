// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command poolpressure exhausts a small memory pool and, separately,
// runs with debug framing enabled to show corruption detection.
package main

import (
	"fmt"
	"os"

	"github.com/joeycumines/logiface"

	utask "github.com/joeycumines/go-utask"
	"github.com/joeycumines/go-utask/internal/diag"
)

func main() {
	exhaustion()
	overrun()
}

func exhaustion() {
	k, err := utask.New(utask.WithPool(
		utask.PoolClass{Size: 16, Count: 2},
		utask.PoolClass{Size: 64, Count: 1},
	))
	if err != nil {
		fmt.Fprintln(os.Stderr, "construct:", err)
		os.Exit(1)
	}

	var bufs [][]byte
	for i := 0; i < 3; i++ {
		b := k.Alloc(16)
		fmt.Println("alloc", i, "->", b != nil)
		bufs = append(bufs, b)
	}

	big := k.Alloc(64)
	fmt.Println("alloc 64 (last class) ->", big != nil)
	if big2 := k.Alloc(64); big2 != nil {
		fmt.Fprintln(os.Stderr, "expected exhaustion on second 64-byte alloc")
		os.Exit(1)
	} else {
		fmt.Println("second 64-byte alloc correctly failed: pool exhausted")
	}

	for _, b := range bufs {
		k.Free(b)
	}
	k.Free(big)
}

func overrun() {
	k, err := utask.New(
		utask.WithPool(utask.PoolClass{Size: 8, Count: 1}),
		utask.WithPoolDebug(true),
		utask.WithDiagnostics(diag.New(os.Stdout, logiface.LevelWarning)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "construct:", err)
		os.Exit(1)
	}

	b := k.Alloc(8)
	if b == nil {
		fmt.Fprintln(os.Stderr, "expected a successful debug-mode alloc")
		os.Exit(1)
	}
	// Deliberately write one byte past the requested size, to trigger
	// the debug build's end-sentinel check on Free. In production code
	// this out-of-bounds write would itself panic (Go slice bounds are
	// checked); this demo extends the slice via its capacity instead, to
	// exercise the same corruption path a C buffer overrun would hit.
	if cap(b) > len(b) {
		overrun := b[:len(b)+1]
		overrun[len(overrun)-1] = 0xFF
	}
	k.Free(b)
	fmt.Println("debug-mode alloc/free completed; check diagnostics output for sentinel mismatches")
}
