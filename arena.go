package bstable

import (
	"sync/atomic"
	"unsafe"
)

const (
	arenaChunkSize = 4096

	// Natural pointer alignment, with a minimum of 8 bytes.
	arenaAlign = 8
)

var ptrSize = int64(unsafe.Sizeof(uintptr(0)))

// Arena is a bump-pointer allocator: it hands out byte slices carved
// from large chunks and never reclaims them individually. All memory
// is released at once when the arena itself becomes unreachable. It is
// intended for many small allocations with a shared lifetime, e.g. the
// nodes of an in-memory sorted structure.
//
// Allocation requires external synchronization when an arena is shared
// between goroutines; only MemoryUsage is safe to call concurrently
// with ongoing allocation.
type Arena struct {
	cur    []byte   // remaining space in the current chunk
	chunks [][]byte // every chunk ever allocated
	usage  int64    // updated atomically
}

// NewArena inits an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Allocate returns a slice of exactly n bytes from the arena. The
// slice stays valid for the lifetime of the arena. n must be positive.
func (a *Arena) Allocate(n int) []byte {
	if n <= 0 {
		panic("bstable: arena allocation size must be positive")
	}
	if n <= len(a.cur) {
		b := a.cur[:n:n]
		a.cur = a.cur[n:]
		return b
	}
	return a.allocateFallback(n)
}

// AllocateAligned is like Allocate but the returned slice starts at an
// address aligned to arenaAlign bytes.
func (a *Arena) AllocateAligned(n int) []byte {
	if n <= 0 {
		panic("bstable: arena allocation size must be positive")
	}

	slop := 0
	if len(a.cur) > 0 {
		if mod := int(uintptr(unsafe.Pointer(&a.cur[0])) & (arenaAlign - 1)); mod != 0 {
			slop = arenaAlign - mod
		}
	}
	if n+slop <= len(a.cur) {
		b := a.cur[slop : slop+n : slop+n]
		a.cur = a.cur[slop+n:]
		return b
	}

	// Fresh chunks are aligned at their start.
	return a.allocateFallback(n)
}

// MemoryUsage returns the total bytes claimed by the arena, including
// one pointer-sized bookkeeping word per chunk. The counter is
// advisory: it may be read concurrently with allocation from another
// goroutine, but it does not synchronize the allocation path itself.
func (a *Arena) MemoryUsage() int64 {
	return atomic.LoadInt64(&a.usage)
}

func (a *Arena) allocateFallback(n int) []byte {
	if n > arenaChunkSize/4 {
		// More than a quarter of the standard chunk size: allocate a
		// dedicated chunk to avoid wasting the remainder of a shared
		// one on a single large object.
		return a.newChunk(n)
	}

	// Waste the remaining space in the current chunk.
	chunk := a.newChunk(arenaChunkSize)
	a.cur = chunk[n:]
	return chunk[:n:n]
}

func (a *Arena) newChunk(n int) []byte {
	chunk := make([]byte, n)
	a.chunks = append(a.chunks, chunk)
	atomic.AddInt64(&a.usage, int64(n)+ptrSize)
	return chunk
}
