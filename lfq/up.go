// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

// UP is an intrusive LIFO for strictly single-goroutine use.
//
// UP elides every CAS: the head is a plain {top, generation} pair. It keeps
// the same node discipline and generation counting as MP so that code can
// switch between the two through the Queue interface.
//
// The zero value is an empty queue ready for use.
type UP[T any, P Node[T]] struct {
	top *T
	gen uint64
}

// NewUP creates an empty single-goroutine queue.
func NewUP[T any, P Node[T]]() *UP[T, P] {
	return &UP[T, P]{}
}

// Enqueue pushes node onto the top of the queue.
// Panics if node is already in a queue.
func (q *UP[T, P]) Enqueue(node P) {
	link := node.QueueLink()
	link.acquire()
	link.next.Store(q.top)
	q.top = (*T)(node)
	q.gen++
}

// Dequeue pops and returns the top node.
// Returns (nil, ErrWouldBlock) if the queue is empty.
func (q *UP[T, P]) Dequeue() (P, error) {
	if q.top == nil {
		var zero P
		return zero, ErrWouldBlock
	}
	return q.pop(), nil
}

// DequeueIf pops the top node only if it is expected.
func (q *UP[T, P]) DequeueIf(expected P) (P, error) {
	if q.top == nil || q.top != (*T)(expected) {
		var zero P
		return zero, ErrWouldBlock
	}
	return q.pop(), nil
}

func (q *UP[T, P]) pop() P {
	top := P(q.top)
	link := top.QueueLink()
	q.top = link.next.Load()
	q.gen++
	link.detach()
	return top
}

// Top returns the current top node without removing it, or nil.
func (q *UP[T, P]) Top() P {
	return P(q.top)
}

// Generation returns the number of head updates so far.
func (q *UP[T, P]) Generation() uint64 {
	return q.gen
}
