// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides unbounded intrusive LIFO queue implementations.
//
// The queue stores no per-node memory of its own. Each queued value embeds a
// [Link] and exposes it through a QueueLink method; the queue threads its
// "next" pointers through those links. Enqueue therefore never allocates and
// never fails.
//
// The package offers three variants:
//
//   - MP: multi-producer multi-consumer, generation-tagged CAS head
//   - UP: single goroutine, plain head without CAS
//   - Indirect: multi-producer multi-consumer stack of small integer indices
//
// # Quick Start
//
// Declare a node type:
//
//	type Conn struct {
//	    fd   int
//	    link lfq.Link[Conn]
//	}
//
//	func (c *Conn) QueueLink() *lfq.Link[Conn] { return &c.link }
//
// Direct constructors:
//
//	q := lfq.NewMP[Conn]()
//	q := lfq.NewUP[Conn]()
//	q := lfq.NewIndirect(4096)
//
// Builder API selects the algorithm from the declared constraint:
//
//	q := lfq.Build[Conn](lfq.New())                   // → MP
//	q := lfq.Build[Conn](lfq.New().SingleThreaded())  // → UP
//
// # Basic Usage
//
//	q := lfq.NewMP[Conn]()
//
//	// Enqueue (never fails, panics on a node that is already queued)
//	q.Enqueue(c1)
//	q.Enqueue(c2)
//
//	// Dequeue (non-blocking, last in first out)
//	c, err := q.Dequeue() // c == c2
//	if lfq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
//	// Conditional dequeue: pop only if c1 is on top
//	c, err = q.DequeueIf(c1)
//
// # Ordering
//
// The discipline is strictly last-in first-out for a single goroutine. Among
// racing producers the only guarantee is that exactly one wins any given CAS
// attempt; the losers retry against the new top.
//
// # The Head and ABA
//
// A naive CAS on the top pointer is unsafe: a consumer reads top=A and
// next=B, stalls, other goroutines pop A, pop B, push A again, and the
// stalled CAS succeeds and installs B, which is no longer in the queue.
//
// MP and Indirect pair the top with a generation counter and replace both in
// one CAS. Every successful Enqueue, Dequeue and DequeueIf increments the
// generation, so the stalled CAS above fails and retries. Indirect packs the
// pair into an [atomix.Uint128]; MP replaces an immutable {top, generation}
// snapshot through a single pointer CAS.
//
// # Node Membership
//
// A node may sit in at most one queue at a time. Each [Link] carries a
// membership flag: Enqueue of a node whose flag is already set panics with
// "lfq: node is already queued". A successful dequeue clears the flag, and
// the node may then be enqueued again, into the same or another queue.
//
// # Error Handling
//
// Consumers return [ErrWouldBlock] when there is nothing to pop. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    c, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        handle(c)
//	        continue
//	    }
//	    if !lfq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lfq.IsWouldBlock(err)  // true if queue empty or top mismatch
//	lfq.IsSemantic(err)    // true if control flow signal
//	lfq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Length
//
// Length is intentionally not provided because accurate counts in lock-free
// algorithms require expensive cross-core synchronization. Track counts in
// application logic when needed.
//
// # Thread Safety
//
//   - MP, Indirect: any number of goroutines
//   - UP: one goroutine only
//
// Sharing a UP queue between goroutines causes undefined behavior including
// lost nodes and corrupted links.
//
// # Race Detection
//
// Indirect keeps its links in atomix cells, which the race detector cannot
// see as synchronization. Concurrent Indirect tests are excluded via
// [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lfq
