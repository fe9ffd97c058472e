// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package obj

import (
	"github.com/pkg/errors"

	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/ntrt/mpool"
	"code.hybscloud.com/spin"
)

// ErrReleased is the panic value for use of a released Handle.
var ErrReleased = errors.New("obj: handle already released")

type box[T any] struct {
	Header
	value T
}

// Handle is one owned reference to a counted value.
//
// Each Handle is released exactly once; Clone makes another owner. Using or
// releasing a Handle after its Release panics with ErrReleased, so a stray
// second release cannot take a reference that belongs to another owner.
type Handle[T any] struct {
	box      *box[T]
	released atomics.Int32
}

// New wraps v with a count of 1. dealloc, if not nil, runs with v when the
// last handle is released.
func New[T any](v T, dealloc func(T)) *Handle[T] {
	b := &box[T]{value: v}
	b.Init(func() {
		if dealloc != nil {
			dealloc(b.value)
		}
	})
	return &Handle[T]{box: b}
}

// NewBytes allocates size bytes from alloc and wraps them in a Handle that
// frees them back to alloc when the last reference goes away.
func NewBytes(alloc mpool.Allocator, size int) (*Handle[[]byte], error) {
	if alloc == nil {
		alloc = mpool.Heap
	}
	b, err := alloc.Alloc(size)
	if err != nil {
		return nil, errors.Wrap(err, "obj: allocate bytes")
	}
	return New(b, func(b []byte) {
		if err := alloc.Free(b); err != nil {
			log.WithError(err).Error("free bytes")
		}
	}), nil
}

func (h *Handle[T]) live() *box[T] {
	if h.released.Load() != 0 {
		panic(ErrReleased)
	}
	return h.box
}

// Value returns the wrapped value.
func (h *Handle[T]) Value() T {
	return h.live().value
}

// Refcount returns the number of live handles sharing the value.
func (h *Handle[T]) Refcount() int32 {
	return h.live().Refcount()
}

// Clone returns a new owning handle to the same value.
func (h *Handle[T]) Clone() *Handle[T] {
	b := h.live()
	b.Retain()
	return &Handle[T]{box: b}
}

// Release gives up this handle's reference and reports whether it was the
// last one.
func (h *Handle[T]) Release() bool {
	if !h.released.CompareAndSwap(0, 1) {
		panic(ErrReleased)
	}
	return h.box.Release()
}

// Cell is an atomic cell owning one Handle, or holding nil.
// The zero value is an empty cell.
type Cell[T any] struct {
	p atomics.Pointer[Handle[T]]
}

// Load returns a new handle to the current value, or nil. The caller owns
// the result.
func (c *Cell[T]) Load() *Handle[T] {
	sw := spin.Wait{}
	for {
		cur := c.p.Load()
		if cur == nil {
			return nil
		}
		if cur.box.TryRetain() {
			if c.p.Load() == cur {
				return &Handle[T]{box: cur.box}
			}
			cur.box.Release()
		}
		sw.Once()
	}
}

// Swap installs h, taking ownership of it, and returns the previous handle
// with ownership passed to the caller.
func (c *Cell[T]) Swap(h *Handle[T]) *Handle[T] {
	if h != nil {
		h.live()
	}
	return c.p.Swap(h)
}

// Store installs h, taking ownership of it, and releases the previous handle.
func (c *Cell[T]) Store(h *Handle[T]) {
	if old := c.Swap(h); old != nil {
		old.Release()
	}
}
