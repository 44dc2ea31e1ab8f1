// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import (
	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-utask/internal/diag"
)

// kernelOptions holds configuration resolved at construction time. It is
// the Go-native stand-in for compile-time configuration
// constants a bare-metal build would set via preprocessor defines:
// POOL_DEBUG, POOL_COUNTn/POOL_SIZEn.
type kernelOptions struct {
	tcbSlots     int
	isrQueueSize int
	ticksPerSec  uint32
	poolClasses  []PoolClass
	poolDebug    bool
	diagLogger   *logiface.Logger[*diag.Event]
}

const (
	defaultTCBSlots     = 32
	defaultISRQueueSize = 16
	defaultTicksPerSec  = 1000
)

func defaultKernelOptions() *kernelOptions {
	return &kernelOptions{
		tcbSlots:     defaultTCBSlots,
		isrQueueSize: defaultISRQueueSize,
		ticksPerSec:  defaultTicksPerSec,
	}
}

// Option configures a Kernel instance.
type Option interface {
	applyKernel(*kernelOptions)
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*kernelOptions)
}

func (o *optionImpl) applyKernel(opts *kernelOptions) {
	o.applyFunc(opts)
}

// WithTCBSlots sets the size of the TCB pool, i.e. the maximum number of
// delayed-or-promoted messages outstanding at once. Defaults to 32.
func WithTCBSlots(n int) Option {
	return &optionImpl{func(opts *kernelOptions) {
		if n > 0 {
			opts.tcbSlots = n
		}
	}}
}

// WithISRQueueSize sets the capacity of the ISR staging ring. Defaults to
// 16.
func WithISRQueueSize(n int) Option {
	return &optionImpl{func(opts *kernelOptions) {
		if n > 0 {
			opts.isrQueueSize = n
		}
	}}
}

// WithTicksPerSec sets the nominal tick rate, the basis for Sec, Min, and
// Hour. Defaults to 1000 (1ms ticks).
func WithTicksPerSec(n uint32) Option {
	return &optionImpl{func(opts *kernelOptions) {
		if n > 0 {
			opts.ticksPerSec = n
		}
	}}
}

// PoolClass configures one size class of the fixed-block memory pool: a
// block Size in bytes and a Count of blocks in that class.
type PoolClass struct {
	Size  int
	Count int
}

// WithPool configures the fixed-block memory pool with up to 4 size
// classes. Omitting this option elides the pool entirely: Alloc always
// returns nil and Free is always a no-op, matching POOL_USE=0.
func WithPool(classes ...PoolClass) Option {
	return &optionImpl{func(opts *kernelOptions) {
		opts.poolClasses = append([]PoolClass(nil), classes...)
	}}
}

// WithPoolDebug enables sentinel framing, recorded-size validation, and
// overrun reporting via the diagnostics channel.
func WithPoolDebug(enabled bool) Option {
	return &optionImpl{func(opts *kernelOptions) {
		opts.poolDebug = enabled
	}}
}

// WithDiagnostics wires the kernel's diagnostics channel to logger. Without this option, diagnostics are
// discarded.
func WithDiagnostics(logger *logiface.Logger[*diag.Event]) Option {
	return &optionImpl{func(opts *kernelOptions) {
		opts.diagLogger = logger
	}}
}

// resolveOptions applies Option values over the defaults.
func resolveOptions(opts []Option) *kernelOptions {
	cfg := defaultKernelOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyKernel(cfg)
	}
	return cfg
}
