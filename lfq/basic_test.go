// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/ntrt/lfq"
)

type item struct {
	id   int
	link lfq.Link[item]
}

func (it *item) QueueLink() *lfq.Link[item] { return &it.link }

var (
	_ lfq.Queue[item, *item] = (*lfq.MP[item, *item])(nil)
	_ lfq.Queue[item, *item] = (*lfq.UP[item, *item])(nil)
	_ lfq.QueueIndirect      = (*lfq.Indirect)(nil)
)

func newItems(n int) []*item {
	items := make([]*item, n)
	for i := range items {
		items[i] = &item{id: i}
	}
	return items
}

// =============================================================================
// Generic Queues - Basic Operations
// =============================================================================

func testLIFO(t *testing.T, q lfq.Queue[item, *item]) {
	t.Helper()

	// Empty queue returns ErrWouldBlock
	if _, err := q.Dequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}

	items := newItems(8)
	for _, it := range items {
		q.Enqueue(it)
		if !it.link.Queued() {
			t.Fatalf("Queued(%d): got false, want true", it.id)
		}
	}

	// Dequeue in LIFO order
	for i := len(items) - 1; i >= 0; i-- {
		it, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if it.id != i {
			t.Fatalf("Dequeue: got %d, want %d", it.id, i)
		}
		if it.link.Queued() {
			t.Fatalf("Queued(%d) after Dequeue: got true, want false", it.id)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Dequeue on drained: got %v, want ErrWouldBlock", err)
	}
}

// TestMPBasic tests push/pop order on the multi-producer queue.
func TestMPBasic(t *testing.T) {
	testLIFO(t, lfq.NewMP[item]())
}

// TestUPBasic tests push/pop order on the single-goroutine queue.
func TestUPBasic(t *testing.T) {
	testLIFO(t, lfq.NewUP[item]())
}

// TestMPZeroValue tests that a zero MP is a usable empty queue.
func TestMPZeroValue(t *testing.T) {
	var q lfq.MP[item, *item]
	testLIFO(t, &q)
}

// TestEnqueueDequeueSingle tests that a lone node comes back and leaves the
// queue empty.
func TestEnqueueDequeueSingle(t *testing.T) {
	q := lfq.NewMP[item]()
	n := &item{id: 7}
	q.Enqueue(n)

	got, err := q.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got != n {
		t.Fatalf("Dequeue: got %p, want %p", got, n)
	}
	if q.Top() != nil {
		t.Fatalf("Top after drain: got %p, want nil", q.Top())
	}
}

// TestDequeueIf tests the conditional pop scenario:
// enqueue a, b; DequeueIf(a) fails; DequeueIf(b) pops b; Dequeue pops a.
func TestDequeueIf(t *testing.T) {
	for name, q := range map[string]lfq.Queue[item, *item]{
		"MP": lfq.NewMP[item](),
		"UP": lfq.NewUP[item](),
	} {
		t.Run(name, func(t *testing.T) {
			a, b := &item{id: 1}, &item{id: 2}
			q.Enqueue(a)
			q.Enqueue(b)

			if got, err := q.DequeueIf(a); !errors.Is(err, lfq.ErrWouldBlock) || got != nil {
				t.Fatalf("DequeueIf(a): got (%v, %v), want (nil, ErrWouldBlock)", got, err)
			}
			got, err := q.DequeueIf(b)
			if err != nil || got != b {
				t.Fatalf("DequeueIf(b): got (%v, %v), want (b, nil)", got, err)
			}
			got, err = q.Dequeue()
			if err != nil || got != a {
				t.Fatalf("Dequeue: got (%v, %v), want (a, nil)", got, err)
			}
			if _, err := q.DequeueIf(a); !errors.Is(err, lfq.ErrWouldBlock) {
				t.Fatalf("DequeueIf on empty: got %v, want ErrWouldBlock", err)
			}
		})
	}
}

// TestDoubleEnqueuePanics tests that a node cannot sit in two queues at once.
func TestDoubleEnqueuePanics(t *testing.T) {
	q1 := lfq.NewMP[item]()
	q2 := lfq.NewUP[item]()
	n := &item{id: 1}
	q1.Enqueue(n)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Enqueue of queued node: expected panic")
		}
	}()
	q2.Enqueue(n)
}

// TestRequeue tests that a dequeued node may be enqueued again.
func TestRequeue(t *testing.T) {
	q := lfq.NewMP[item]()
	n := &item{id: 1}
	for i := range 3 {
		q.Enqueue(n)
		got, err := q.Dequeue()
		if err != nil || got != n {
			t.Fatalf("round %d: got (%v, %v), want (n, nil)", i, got, err)
		}
	}
}

// TestGeneration tests that every successful head update bumps the
// generation and failed conditional pops do not.
func TestGeneration(t *testing.T) {
	q := lfq.NewMP[item]()
	a, b := &item{id: 1}, &item{id: 2}

	if g := q.Generation(); g != 0 {
		t.Fatalf("Generation: got %d, want 0", g)
	}
	q.Enqueue(a)
	q.Enqueue(b)
	if g := q.Generation(); g != 2 {
		t.Fatalf("Generation after 2 enqueues: got %d, want 2", g)
	}
	_, _ = q.DequeueIf(a)
	if g := q.Generation(); g != 2 {
		t.Fatalf("Generation after failed DequeueIf: got %d, want 2", g)
	}
	_, _ = q.Dequeue()
	_, _ = q.Dequeue()
	_, _ = q.Dequeue()
	if g := q.Generation(); g != 4 {
		t.Fatalf("Generation after drain: got %d, want 4", g)
	}

	// ABA shape: pop A, push A back; top is the same node, generation moved.
	q.Enqueue(a)
	g0 := q.Generation()
	_, _ = q.Dequeue()
	q.Enqueue(a)
	if q.Top() != a {
		t.Fatalf("Top: got %p, want %p", q.Top(), a)
	}
	if g := q.Generation(); g != g0+2 {
		t.Fatalf("Generation after pop/push: got %d, want %d", g, g0+2)
	}
}

// =============================================================================
// Indirect
// =============================================================================

// TestIndirectBasic tests index push/pop order and range checks.
func TestIndirectBasic(t *testing.T) {
	q := lfq.NewIndirect(5)
	if q.Cap() != 8 {
		t.Fatalf("Cap: got %d, want 8", q.Cap())
	}
	if _, err := q.Dequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}

	for i := range 8 {
		q.Enqueue(uintptr(i))
	}
	if _, err := q.DequeueIf(3); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("DequeueIf(3): got %v, want ErrWouldBlock", err)
	}
	if v, err := q.DequeueIf(7); err != nil || v != 7 {
		t.Fatalf("DequeueIf(7): got (%d, %v), want (7, nil)", v, err)
	}
	for i := 6; i >= 0; i-- {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != uintptr(i) {
			t.Fatalf("Dequeue: got %d, want %d", v, i)
		}
	}
	if g := q.Generation(); g != 16 {
		t.Fatalf("Generation: got %d, want 16", g)
	}
}

// TestIndirectPanics tests out-of-range and duplicate indices.
func TestIndirectPanics(t *testing.T) {
	mustPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		f()
	}

	mustPanic("NewIndirect(1)", func() { lfq.NewIndirect(1) })

	q := lfq.NewIndirect(4)
	mustPanic("Enqueue(4)", func() { q.Enqueue(4) })
	q.Enqueue(2)
	mustPanic("Enqueue(2) twice", func() { q.Enqueue(2) })
}

// =============================================================================
// Builder
// =============================================================================

// TestBuilder tests algorithm selection and builder panics.
func TestBuilder(t *testing.T) {
	if _, ok := lfq.Build[item, *item](lfq.New()).(*lfq.MP[item, *item]); !ok {
		t.Fatal("Build default: want *MP")
	}
	if _, ok := lfq.Build[item, *item](lfq.New().SingleThreaded()).(*lfq.UP[item, *item]); !ok {
		t.Fatal("Build SingleThreaded: want *UP")
	}
	if q := lfq.New().Capacity(100).BuildIndirect(); q.Cap() != 128 {
		t.Fatalf("BuildIndirect Cap: got %d, want 128", q.Cap())
	}

	cases := map[string]func(){
		"BuildMP single":   func() { lfq.BuildMP[item, *item](lfq.New().SingleThreaded()) },
		"BuildUP default":  func() { lfq.BuildUP[item, *item](lfq.New()) },
		"Capacity(1)":      func() { lfq.New().Capacity(1) },
		"Indirect no cap":  func() { lfq.New().BuildIndirect() },
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", name)
				}
			}()
			f()
		})
	}
}

// =============================================================================
// Error Classification
// =============================================================================

// TestEmptyDequeueIsControlFlow tests that an empty pop is classified as a
// control flow signal on every queue kind.
func TestEmptyDequeueIsControlFlow(t *testing.T) {
	_, mpErr := lfq.NewMP[item, *item]().Dequeue()
	_, upErr := lfq.NewUP[item, *item]().DequeueIf(nil)
	_, inErr := lfq.NewIndirect(4).Dequeue()

	for name, err := range map[string]error{"MP": mpErr, "UP": upErr, "Indirect": inErr} {
		if !lfq.IsWouldBlock(err) {
			t.Fatalf("%s IsWouldBlock: got false, want true", name)
		}
		if !lfq.IsSemantic(err) {
			t.Fatalf("%s IsSemantic: got false, want true", name)
		}
		if !lfq.IsNonFailure(err) {
			t.Fatalf("%s IsNonFailure: got false, want true", name)
		}
	}

	if !lfq.IsNonFailure(nil) {
		t.Fatal("IsNonFailure(nil): got false, want true")
	}
	failure := errors.New("queue corrupted")
	if lfq.IsWouldBlock(failure) || lfq.IsSemantic(failure) || lfq.IsNonFailure(failure) {
		t.Fatal("plain error: classified as control flow")
	}
}
