// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

import (
	"encoding/binary"
	"unsafe"

	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-utask/internal/diag"
)

// MaxPoolClasses is the maximum number of size classes the fixed-block
// memory pool supports (up to 4 size classes).
const MaxPoolClasses = 4

const (
	debugHeaderSize = 6 // 4-byte recorded size + 2-byte begin sentinel
	debugFooterSize = 2 // 2-byte end sentinel
	debugFillByte   = 0xCD
)

var (
	sentinelBegin = [2]byte{0xBE, 0xEF}
	sentinelEnd   = [2]byte{0xFA, 0xCE}
)

// poolClassRT is one runtime size class: element size, block count, and
// its region's offset and stride within the shared backing arena.
type poolClassRT struct {
	size   int
	count  int
	base   int // byte offset of this class's region in the arena
	stride int // bytes per block, including debug framing if enabled

	// freeNext threads this class's free list by block index (not raw
	// byte pointers): freeNext[i] is the next free block index, or -1.
	// This avoids threading an intrusive pointer-linked free list through
	// the raw bytes themselves, which would alias payload data with list
	// bookkeeping.
	freeNext []int32
	freeHead int32
	free     int
}

// pool is the fixed-block, no-heap slab allocator. Alloc and
// Free are not internally locked; the Kernel wraps both in its critical
// section, since both the ISR-side and task-side APIs call into it.
type pool struct {
	arena   []byte
	classes []poolClassRT // sorted ascending by size
	debug   bool
	diag    *logiface.Logger[*diag.Event]
}

// newPool builds the backing arena and per-class free lists. The
// backing size is the sum of count*stride over every class with
// Count > 0 -- no class is silently omitted.
func newPool(classSpecs []PoolClass, debug bool, diagLogger *logiface.Logger[*diag.Event]) *pool {
	specs := make([]PoolClass, 0, MaxPoolClasses)
	for _, c := range classSpecs {
		if c.Count > 0 && c.Size > 0 {
			specs = append(specs, c)
		}
	}
	if len(specs) > MaxPoolClasses {
		specs = specs[:MaxPoolClasses]
	}

	// Insertion sort ascending by size; n<=4, so this is the same
	// an insertion sort is simple enough for at most 4 classes.
	for i := 1; i < len(specs); i++ {
		for j := i; j > 0 && specs[j].Size < specs[j-1].Size; j-- {
			specs[j], specs[j-1] = specs[j-1], specs[j]
		}
	}

	headerFooter := 0
	if debug {
		headerFooter = debugHeaderSize + debugFooterSize
	}

	classes := make([]poolClassRT, len(specs))
	backing := 0
	for i, spec := range specs {
		stride := spec.Size + headerFooter
		classes[i] = poolClassRT{
			size:     spec.Size,
			count:    spec.Count,
			base:     backing,
			stride:   stride,
			freeNext: make([]int32, spec.Count),
			freeHead: 0,
			free:     spec.Count,
		}
		for j := 0; j < spec.Count; j++ {
			if j == spec.Count-1 {
				classes[i].freeNext[j] = -1
			} else {
				classes[i].freeNext[j] = int32(j + 1)
			}
		}
		if spec.Count == 0 {
			classes[i].freeHead = -1
		}
		backing += stride * spec.Count // every enabled class counted, unconditionally
	}

	if diagLogger == nil {
		diagLogger = diag.Disabled()
	}

	return &pool{
		arena:   make([]byte, backing),
		classes: classes,
		debug:   debug,
		diag:    diagLogger,
	}
}

// alloc scans classes ascending by size, satisfying the request with the
// first class whose block size is >= size and whose free list is
// non-empty. Returns nil on exhaustion or if no class fits.
func (p *pool) alloc(size int) []byte {
	if size < 0 {
		return nil
	}
	for ci := range p.classes {
		c := &p.classes[ci]
		if c.size < size || c.freeHead == -1 {
			continue
		}
		idx := c.freeHead
		c.freeHead = c.freeNext[idx]
		c.free--

		blockOff := c.base + int(idx)*c.stride
		if p.debug {
			binary.LittleEndian.PutUint32(p.arena[blockOff:], uint32(size))
			copy(p.arena[blockOff+4:blockOff+6], sentinelBegin[:])
			payload := p.arena[blockOff+debugHeaderSize : blockOff+debugHeaderSize+size]
			for i := range payload {
				payload[i] = debugFillByte
			}
			copy(p.arena[blockOff+debugHeaderSize+size:blockOff+debugHeaderSize+size+debugFooterSize], sentinelEnd[:])
			return payload
		}
		return p.arena[blockOff : blockOff+size]
	}
	if p.diag != nil {
		logDiag(p.diag, logiface.LevelWarning, "pool.exhausted", "pool exhausted", kv{"requested_size", size})
	}
	return nil
}

// free returns buf's block to its class free list. If buf doesn't fall
// inside the arena, free is a silent no-op -- the property the ISR send
// path relies on when a payload didn't originate from this pool.
func (p *pool) free(buf []byte) {
	data := unsafe.SliceData(buf)
	if data == nil || len(p.arena) == 0 {
		return
	}
	arenaData := unsafe.SliceData(p.arena)
	base := uintptr(unsafe.Pointer(arenaData))
	top := base + uintptr(len(p.arena))
	addr := uintptr(unsafe.Pointer(data))
	if addr < base || addr >= top {
		return
	}
	offset := int(addr - base)

	headerFooter := 0
	if p.debug {
		headerFooter = debugHeaderSize
	}
	blockStart := offset - headerFooter

	for ci := range p.classes {
		c := &p.classes[ci]
		regionLen := c.stride * c.count
		if blockStart < c.base || blockStart >= c.base+regionLen {
			continue
		}
		rel := blockStart - c.base
		idx := int32(rel / c.stride)

		if p.debug {
			p.checkSentinels(c, blockStart)
		}

		c.freeNext[idx] = c.freeHead
		c.freeHead = idx
		c.free++
		return
	}
}

type kv struct {
	key string
	val any
}

func logDiag(l *logiface.Logger[*diag.Event], level logiface.Level, kind, msg string, fields ...kv) {
	_ = l.Log(level, logiface.ModifierFunc[*diag.Event](func(e *diag.Event) error {
		e.Kind(kind)
		e.AddMessage(msg)
		for _, f := range fields {
			e.AddField(f.key, f.val)
		}
		return nil
	}))
}

// classOccupancy reports each class's size, capacity, and current free
// count, ascending by size, for Stats.
func (p *pool) classOccupancy() []PoolClassStat {
	if len(p.classes) == 0 {
		return nil
	}
	out := make([]PoolClassStat, len(p.classes))
	for i, c := range p.classes {
		out[i] = PoolClassStat{Size: c.size, Count: c.count, Free: c.free}
	}
	return out
}

// checkSentinels validates a debug-framed block's recorded size and
// sentinel bytes, reporting any mismatch via the diagnostics channel.
// The block is returned to the free list regardless of the outcome.
func (p *pool) checkSentinels(c *poolClassRT, blockStart int) {
	recorded := binary.LittleEndian.Uint32(p.arena[blockStart:])
	begin := p.arena[blockStart+4 : blockStart+6]
	if begin[0] != sentinelBegin[0] || begin[1] != sentinelBegin[1] {
		logDiag(p.diag, logiface.LevelError, "pool.sentinel_mismatch", "begin sentinel corrupted", kv{"class_size", c.size})
	}
	if recorded > uint32(c.size) {
		logDiag(p.diag, logiface.LevelError, "pool.size_out_of_range", "recorded size exceeds class size", kv{"recorded", recorded}, kv{"class_size", c.size})
		recorded = uint32(c.size)
	}
	endOff := blockStart + debugHeaderSize + int(recorded)
	if endOff+debugFooterSize <= blockStart+c.stride {
		end := p.arena[endOff : endOff+debugFooterSize]
		if end[0] != sentinelEnd[0] || end[1] != sentinelEnd[1] {
			logDiag(p.diag, logiface.LevelError, "pool.sentinel_mismatch", "end sentinel corrupted", kv{"class_size", c.size})
		}
	}
}
