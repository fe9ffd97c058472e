// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package atomics is the atomic operations layer the rest of ntrt is built on.
//
// Every operation is a full acquire+release operation. No relaxed variants
// are exported: a cell shared between goroutines is mutated only through
// CompareAndSwap, Set, Swap or the add/sub family, and read only through Load.
//
// Int32 wraps [atomix.Int32] and uses its AcqRel/Acquire forms. Pointer wraps
// [atomic.Pointer] so that the stored value stays visible to the garbage
// collector.
package atomics

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Int32 is a 32-bit atomic cell.
//
// The zero value is a cell holding 0. Int32 must not be copied after first use.
type Int32 struct {
	v atomix.Int32
}

// CompareAndSwap stores new if the cell holds old and reports whether it did.
func (c *Int32) CompareAndSwap(old, new int32) bool {
	return c.v.CompareAndSwapAcqRel(old, new)
}

// Load returns the current value.
func (c *Int32) Load() int32 {
	return c.v.LoadAcquire()
}

// Set stores v using a compare-and-swap retry loop.
func (c *Int32) Set(v int32) {
	sw := spin.Wait{}
	for !c.v.CompareAndSwapAcqRel(c.v.LoadAcquire(), v) {
		sw.Once()
	}
}

// Swap stores v and returns the previous value.
func (c *Int32) Swap(v int32) int32 {
	sw := spin.Wait{}
	for {
		old := c.v.LoadAcquire()
		if c.v.CompareAndSwapAcqRel(old, v) {
			return old
		}
		sw.Once()
	}
}

// FetchAdd adds n and returns the value before the addition.
func (c *Int32) FetchAdd(n int32) int32 {
	return c.v.AddAcqRel(n) - n
}

// FetchSub subtracts n and returns the value before the subtraction.
func (c *Int32) FetchSub(n int32) int32 {
	return c.v.AddAcqRel(-n) + n
}

// AddFetch adds n and returns the resulting value.
func (c *Int32) AddFetch(n int32) int32 {
	return c.v.AddAcqRel(n)
}

// SubFetch subtracts n and returns the resulting value.
func (c *Int32) SubFetch(n int32) int32 {
	return c.v.AddAcqRel(-n)
}

// Pointer is an atomic cell holding a *T.
//
// The zero value holds nil. Pointer must not be copied after first use.
type Pointer[T any] struct {
	p atomic.Pointer[T]
}

// CompareAndSwap stores new if the cell holds old and reports whether it did.
func (c *Pointer[T]) CompareAndSwap(old, new *T) bool {
	return c.p.CompareAndSwap(old, new)
}

// Load returns the current pointer.
func (c *Pointer[T]) Load() *T {
	return c.p.Load()
}

// Set stores p using a compare-and-swap retry loop.
func (c *Pointer[T]) Set(p *T) {
	sw := spin.Wait{}
	for !c.p.CompareAndSwap(c.p.Load(), p) {
		sw.Once()
	}
}

// Swap stores p and returns the previous pointer (fetch-and-set).
func (c *Pointer[T]) Swap(p *T) *T {
	return c.p.Swap(p)
}
