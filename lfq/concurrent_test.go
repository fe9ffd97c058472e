// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ntrt/lfq"
)

// TestMPConcurrentNoLoss tests that with many producers and consumers every
// node is dequeued exactly once.
func TestMPConcurrentNoLoss(t *testing.T) {
	const (
		producers = 4
		consumers = 4
		perProd   = 5000
		total     = producers * perProd
	)
	if testing.Short() {
		t.Skip("skip: stress test")
	}

	q := lfq.NewMP[item]()
	items := newItems(total)
	seen := make([]atomix.Int32, total)

	var prodWg, consWg sync.WaitGroup
	var consumed atomix.Int64
	for p := range producers {
		prodWg.Add(1)
		go func(p int) {
			defer prodWg.Done()
			for i := range perProd {
				q.Enqueue(items[p*perProd+i])
			}
		}(p)
	}

	for range consumers {
		consWg.Add(1)
		go func() {
			defer consWg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < total {
				it, err := q.Dequeue()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[it.id].Add(1)
				consumed.Add(1)
			}
		}()
	}

	prodWg.Wait()
	consWg.Wait()

	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("item %d: seen %d times, want 1", i, n)
		}
	}
	if g := q.Generation(); g != 2*total {
		t.Fatalf("Generation: got %d, want %d", g, 2*total)
	}
}

// TestMPConcurrentRecycle tests nodes that are popped and pushed back over
// and over, the access pattern that exposes ABA on an untagged head.
func TestMPConcurrentRecycle(t *testing.T) {
	const (
		workers = 8
		nodes   = 16
		rounds  = 20000
	)
	if testing.Short() {
		t.Skip("skip: stress test")
	}

	q := lfq.NewMP[item]()
	for _, it := range newItems(nodes) {
		q.Enqueue(it)
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				it, err := q.Dequeue()
				if err != nil {
					continue
				}
				q.Enqueue(it)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool, nodes)
	for {
		it, err := q.Dequeue()
		if err != nil {
			break
		}
		if seen[it.id] {
			t.Fatalf("item %d dequeued twice", it.id)
		}
		seen[it.id] = true
	}
	if len(seen) != nodes {
		t.Fatalf("drained: got %d nodes, want %d", len(seen), nodes)
	}
}

// TestIndirectConcurrent tests the index stack under contention.
func TestIndirectConcurrent(t *testing.T) {
	if lfq.RaceEnabled {
		t.Skip("skip: atomix links are invisible to the race detector")
	}
	const (
		workers = 8
		n       = 256
		rounds  = 10000
	)

	q := lfq.NewIndirect(n)
	for i := range n {
		q.Enqueue(uintptr(i))
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				v, err := q.Dequeue()
				if err != nil {
					continue
				}
				q.Enqueue(v)
			}
		}()
	}
	wg.Wait()

	seen := make([]bool, n)
	count := 0
	for {
		v, err := q.Dequeue()
		if err != nil {
			break
		}
		if seen[v] {
			t.Fatalf("index %d dequeued twice", v)
		}
		seen[v] = true
		count++
	}
	if count != n {
		t.Fatalf("drained: got %d indices, want %d", count, n)
	}
}
