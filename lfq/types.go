// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"sync/atomic"

	"code.hybscloud.com/ntrt/atomics"
)

// Link is the intrusive link field a queue node embeds.
//
// The queue never allocates per-node storage: the "next" pointer lives inside
// the caller's own value. A node can be a member of at most one queue at a
// time; enqueueing a node that is still queued panics.
//
// Example:
//
//	type Conn struct {
//	    fd   int
//	    link lfq.Link[Conn]
//	}
//
//	func (c *Conn) QueueLink() *lfq.Link[Conn] { return &c.link }
type Link[T any] struct {
	next   atomic.Pointer[T]
	queued atomics.Int32
}

// Queued reports whether the node owning this link is currently in a queue.
func (l *Link[T]) Queued() bool {
	return l.queued.Load() != 0
}

func (l *Link[T]) acquire() {
	if !l.queued.CompareAndSwap(0, 1) {
		panic("lfq: node is already queued")
	}
}

func (l *Link[T]) detach() {
	l.next.Store(nil)
	l.queued.Set(0)
}

// Node is the constraint satisfied by pointers to queueable values.
//
// P is always *T; the constraint lets the queue reach the link field through
// a method instead of a byte offset into the caller's layout.
type Node[T any] interface {
	*T
	QueueLink() *Link[T]
}

// Queue is the combined producer-consumer interface for an intrusive LIFO.
//
// Queue is unbounded: Enqueue never fails. Dequeue and DequeueIf return
// ErrWouldBlock when there is nothing to pop.
//
// The discipline is last-in first-out. There is no ordering guarantee among
// racing producers beyond "exactly one wins any given CAS attempt". Callers
// needing FIFO must layer it themselves.
//
// Example:
//
//	q := lfq.NewMP[Conn]()
//	q.Enqueue(c1)
//	q.Enqueue(c2)
//	c, _ := q.Dequeue() // c == c2
type Queue[T any, P Node[T]] interface {
	Producer[T, P]
	Consumer[T, P]
}

// Producer is the interface for pushing nodes.
type Producer[T any, P Node[T]] interface {
	// Enqueue pushes node onto the top of the queue.
	// Panics if node is already in a queue.
	Enqueue(node P)
}

// Consumer is the interface for popping nodes.
type Consumer[T any, P Node[T]] interface {
	// Dequeue pops and returns the top node.
	// Returns (nil, ErrWouldBlock) if the queue is empty.
	Dequeue() (P, error)

	// DequeueIf pops the top node only if it is expected.
	// Returns (nil, ErrWouldBlock) without modifying the queue otherwise.
	DequeueIf(expected P) (P, error)
}

// QueueIndirect is the interface for index-based queues.
//
// Nodes are small integers in [0, Cap()). The queue keeps the links itself,
// which makes it suitable for slot tables, handle pools and free-index
// stacks where the payload lives elsewhere.
type QueueIndirect interface {
	// Enqueue pushes index onto the top of the queue.
	// Panics if index is out of range.
	Enqueue(index uintptr)

	// Dequeue pops the top index.
	// Returns (0, ErrWouldBlock) if the queue is empty.
	Dequeue() (uintptr, error)

	// DequeueIf pops the top index only if it equals expected.
	DequeueIf(expected uintptr) (uintptr, error)

	// Cap returns the number of distinct indices.
	Cap() int
}
