// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import "unsafe"

// Options configures queue creation and algorithm selection.
type Options struct {
	// Goroutine constraint (determines MP or UP)
	singleThreaded bool

	// Index range for BuildIndirect (rounds up to next power of 2)
	capacity int
}

// Builder creates queues with fluent configuration.
//
// The builder selects the algorithm from the declared constraint: a queue
// used by one goroutine only gets the CAS-free UP variant, everything else
// gets MP.
//
// Example:
//
//	// Shared between goroutines (default)
//	q := lfq.Build[Conn](lfq.New())
//
//	// Confined to one goroutine
//	q := lfq.BuildUP[Conn](lfq.New().SingleThreaded())
//
//	// Index stack over [0, 4096)
//	q := lfq.New().Capacity(4096).BuildIndirect()
type Builder struct {
	opts Options
}

// New creates a queue builder.
func New() *Builder {
	return &Builder{}
}

// SingleThreaded declares that only one goroutine will ever touch the queue.
// Enables the CAS-free UP algorithm.
func (b *Builder) SingleThreaded() *Builder {
	b.opts.singleThreaded = true
	return b
}

// Capacity sets the index range for BuildIndirect.
// Capacity rounds up to the next power of 2.
//
// Panics if capacity < 2.
func (b *Builder) Capacity(capacity int) *Builder {
	if capacity < 2 {
		panic("lfq: capacity must be >= 2")
	}
	b.opts.capacity = capacity
	return b
}

// Build creates a Queue[T, P] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleThreaded → UP (plain head, no CAS)
//	default        → MP (generation-tagged CAS head)
//
// For type-safe returns with concrete types, use:
//   - BuildMP[T](b) → *MP[T, P]
//   - BuildUP[T](b) → *UP[T, P]
func Build[T any, P Node[T]](b *Builder) Queue[T, P] {
	if b.opts.singleThreaded {
		return NewUP[T, P]()
	}
	return NewMP[T, P]()
}

// BuildMP creates an MP queue with compile-time type safety.
// Panics if builder is configured with SingleThreaded().
func BuildMP[T any, P Node[T]](b *Builder) *MP[T, P] {
	if b.opts.singleThreaded {
		panic("lfq: BuildMP requires no SingleThreaded()")
	}
	return NewMP[T, P]()
}

// BuildUP creates a UP queue with compile-time type safety.
// Panics if builder is not configured with SingleThreaded().
func BuildUP[T any, P Node[T]](b *Builder) *UP[T, P] {
	if !b.opts.singleThreaded {
		panic("lfq: BuildUP requires SingleThreaded()")
	}
	return NewUP[T, P]()
}

// BuildIndirect creates a QueueIndirect for indices in [0, capacity).
// Panics if Capacity() was not set.
func (b *Builder) BuildIndirect() QueueIndirect {
	if b.opts.capacity == 0 {
		panic("lfq: BuildIndirect requires Capacity()")
	}
	return NewIndirect(b.opts.capacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
