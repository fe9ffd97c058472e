// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Indirect is a multi-producer multi-consumer LIFO of indices.
//
// Uses a 128-bit atomic head to pack the generation counter and the top
// index into a single CAS. Indices are reused freely by callers, so the
// generation is what makes a stalled pop fail after an A-B-A cycle.
//
// Head format: [lo=generation | hi=top index + 1], hi == 0 means empty.
//
// Memory: 16 bytes of link and membership per index
type Indirect struct {
	_        pad
	head     atomix.Uint128 // lo=generation, hi=top+1
	_        pad
	next     []atomix.Uint64 // next[i] = index below i, plus one
	queued   []atomix.Uint64 // 1 while the index is in the queue
	capacity uint64
}

// NewIndirect creates an index queue for indices in [0, capacity).
// Capacity rounds up to the next power of 2.
func NewIndirect(capacity int) *Indirect {
	if capacity < 2 {
		panic("lfq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	q := &Indirect{
		next:     make([]atomix.Uint64, n),
		queued:   make([]atomix.Uint64, n),
		capacity: n,
	}
	q.head.StoreRelaxed(0, 0)
	return q
}

// Enqueue pushes index onto the top of the queue.
// Panics if index is out of range or already queued.
func (q *Indirect) Enqueue(index uintptr) {
	i := uint64(index)
	if i >= q.capacity {
		panic("lfq: index out of range")
	}
	if !q.queued[i].CompareAndSwapAcqRel(0, 1) {
		panic("lfq: index is already queued")
	}

	sw := spin.Wait{}
	for {
		gen, top := q.head.LoadAcquire()
		q.next[i].StoreRelease(top)
		if q.head.CompareAndSwapAcqRel(gen, top, gen+1, i+1) {
			return
		}
		sw.Once()
	}
}

// Dequeue pops the top index.
// Returns (0, ErrWouldBlock) if the queue is empty.
func (q *Indirect) Dequeue() (uintptr, error) {
	sw := spin.Wait{}
	for {
		gen, top := q.head.LoadAcquire()
		if top == 0 {
			return 0, ErrWouldBlock
		}
		next := q.next[top-1].LoadAcquire()
		if q.head.CompareAndSwapAcqRel(gen, top, gen+1, next) {
			q.queued[top-1].StoreRelease(0)
			return uintptr(top - 1), nil
		}
		sw.Once()
	}
}

// DequeueIf pops the top index only if it equals expected.
// Returns (0, ErrWouldBlock) without modifying the queue otherwise.
func (q *Indirect) DequeueIf(expected uintptr) (uintptr, error) {
	sw := spin.Wait{}
	for {
		gen, top := q.head.LoadAcquire()
		if top == 0 || top-1 != uint64(expected) {
			return 0, ErrWouldBlock
		}
		next := q.next[top-1].LoadAcquire()
		if q.head.CompareAndSwapAcqRel(gen, top, gen+1, next) {
			q.queued[top-1].StoreRelease(0)
			return uintptr(top - 1), nil
		}
		sw.Once()
	}
}

// Generation returns the number of successful head updates so far.
func (q *Indirect) Generation() uint64 {
	gen, _ := q.head.LoadAcquire()
	return gen
}

// Cap returns the number of distinct indices.
func (q *Indirect) Cap() int {
	return int(q.capacity)
}
