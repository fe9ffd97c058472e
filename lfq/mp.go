// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// MP is a multi-producer multi-consumer intrusive LIFO.
//
// The head is the double-word {top, generation}. Each head value is an
// immutable snapshot and the whole pair is replaced with a single pointer
// CAS, so top and generation always change together. A snapshot is never
// reused while any goroutine still holds it, and the generation grows by one
// on every successful CAS (push or pop): a stalled Dequeue whose top was
// popped, freed, reused and pushed back fails its CAS instead of installing
// a stale link.
//
// The zero value is an empty queue ready for use.
type MP[T any, P Node[T]] struct {
	_    pad
	head atomic.Pointer[snapshot[T]]
	_    padPtr
}

type snapshot[T any] struct {
	top *T
	gen uint64
}

func (s *snapshot[T]) unpack() (*T, uint64) {
	if s == nil {
		return nil, 0
	}
	return s.top, s.gen
}

// NewMP creates an empty multi-producer multi-consumer queue.
func NewMP[T any, P Node[T]]() *MP[T, P] {
	q := &MP[T, P]{}
	q.head.Store(&snapshot[T]{})
	return q
}

// Enqueue pushes node onto the top of the queue.
// Panics if node is already in a queue.
func (q *MP[T, P]) Enqueue(node P) {
	link := node.QueueLink()
	link.acquire()

	sw := spin.Wait{}
	for {
		old := q.head.Load()
		top, gen := old.unpack()
		link.next.Store(top)
		if q.head.CompareAndSwap(old, &snapshot[T]{top: (*T)(node), gen: gen + 1}) {
			return
		}
		sw.Once()
	}
}

// Dequeue pops and returns the top node.
// Returns (nil, ErrWouldBlock) if the queue is empty.
func (q *MP[T, P]) Dequeue() (P, error) {
	sw := spin.Wait{}
	for {
		old := q.head.Load()
		top, gen := old.unpack()
		if top == nil {
			var zero P
			return zero, ErrWouldBlock
		}

		// top may already be popped by someone else; its link is still
		// readable and the CAS below fails on the moved generation.
		next := P(top).QueueLink().next.Load()
		if q.head.CompareAndSwap(old, &snapshot[T]{top: next, gen: gen + 1}) {
			P(top).QueueLink().detach()
			return P(top), nil
		}
		sw.Once()
	}
}

// DequeueIf pops the top node only if it is expected.
// Returns (nil, ErrWouldBlock) without modifying the queue if the queue is
// empty or its top is a different node.
func (q *MP[T, P]) DequeueIf(expected P) (P, error) {
	sw := spin.Wait{}
	for {
		old := q.head.Load()
		top, gen := old.unpack()
		if top == nil || top != (*T)(expected) {
			var zero P
			return zero, ErrWouldBlock
		}

		next := P(top).QueueLink().next.Load()
		if q.head.CompareAndSwap(old, &snapshot[T]{top: next, gen: gen + 1}) {
			P(top).QueueLink().detach()
			return P(top), nil
		}
		sw.Once()
	}
}

// Top returns the current top node without removing it, or nil.
// The result is a snapshot and may be stale by the time it is used.
func (q *MP[T, P]) Top() P {
	top, _ := q.head.Load().unpack()
	return P(top)
}

// Generation returns the number of successful head updates so far.
func (q *MP[T, P]) Generation() uint64 {
	_, gen := q.head.Load().unpack()
	return gen
}
