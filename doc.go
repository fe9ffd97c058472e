// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ntrt provides concurrency-safe runtime building blocks for
// long-running servers.
//
// The building blocks live in subpackages:
//
//   - atomics: acquire/release atomic cells
//   - spinlock: CAS spinlock (no-op under the ntrt_up build tag)
//   - mpool: page-based memory pool allocator
//   - freelist: lock-free cache of fixed-size chunks
//   - lfq: intrusive lock-free LIFO queues
//   - obj: reference-counted objects, slots and handles
//   - buffer: allocator-backed growable byte buffer
//
// This package ties them together in a [Context]: the allocator, the
// per-size chunk caches and the logger a process hands down to its
// components. There is no process-wide default; create one Context at start
// up and pass it along.
//
//	ctx, err := ntrt.NewContext(ntrt.WithPool(mpool.FlagBestFit, 0))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	b, err := ctx.Alloc(512)
//	...
//	err = ctx.Free(b)
package ntrt
