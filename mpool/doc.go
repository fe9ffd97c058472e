// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mpool provides a page-based memory pool allocator.
//
// A [Pool] obtains memory from the operating system in runs of pages
// (anonymous mmap on unix, the Go heap elsewhere or with [FlagHeapPages])
// and carves user allocations out of them. Freed chunks go onto free lists
// segregated by size class, the bit length of the chunk size, and are
// merged with adjacent free space on the way in.
//
// # Quick Start
//
//	p, err := mpool.Open(0, 0, 0)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	b, err := p.Alloc(128)
//	...
//	b, err = p.Resize(b, 4096)
//	...
//	err = p.Free(b)
//
// # Fences
//
// Unless [FlagNoFree] is set, every allocation is bracketed by fence bytes.
// Free and Resize check them first and report [ErrFenceCorrupt] when user
// code wrote past either end of its slice.
//
// # Sizes
//
// The pool tracks the size of every live allocation, so Free and Resize
// take only the slice. The slice returned by Alloc has len == cap == size;
// pass back a slice that starts at the same address (reslicing the end is
// fine, reslicing the start is not).
//
// # Nil Pool
//
// A nil *Pool is a valid [Allocator] backed by the Go heap: Alloc is make,
// Resize is allocate and copy, Free is a no-op left to the garbage
// collector. [Heap] is that allocator.
//
// # Thread Safety
//
// All methods are safe for concurrent use. A per-pool spinlock is held for
// every structural mutation; user callbacks run after it is released.
package mpool
