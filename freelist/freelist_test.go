// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package freelist_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/ntrt/freelist"
	"code.hybscloud.com/ntrt/mpool"
)

func TestChunkSizeRounding(t *testing.T) {
	assert.Equal(t, 16, freelist.New(1, nil).ChunkSize())
	assert.Equal(t, 32, freelist.New(17, nil).ChunkSize())
	assert.Equal(t, 64, freelist.New(64, nil).ChunkSize())
	assert.Panics(t, func() { freelist.New(0, nil) })
}

func TestGetPut(t *testing.T) {
	fl := freelist.New(24, nil)
	defer fl.Close()

	c, err := fl.Get()
	require.NoError(t, err)
	assert.Len(t, c.Bytes(), 32)
	assert.Equal(t, freelist.MinChunks, fl.Allocated())
	assert.Equal(t, freelist.MinChunks-1, fl.Available())

	require.NoError(t, fl.Put(c))
	assert.Equal(t, freelist.MinChunks, fl.Available())

	// LIFO: the chunk just returned comes back first
	d, err := fl.Get()
	require.NoError(t, err)
	assert.Same(t, c, d)
	require.NoError(t, fl.Put(d))
}

func TestGrowthDoubles(t *testing.T) {
	fl := freelist.New(16, nil)
	defer fl.Close()

	want := map[int]int{1: 16, 16: 16, 17: 32, 33: 64, 65: 128}
	var held []*freelist.Chunk
	for i := 1; i <= 65; i++ {
		c, err := fl.Get()
		require.NoError(t, err)
		held = append(held, c)
		if n, ok := want[i]; ok {
			assert.Equal(t, n, fl.Allocated(), "after %d gets", i)
		}
	}

	seen := make(map[*byte]bool)
	for _, c := range held {
		p := &c.Bytes()[0]
		require.False(t, seen[p], "chunk handed out twice")
		seen[p] = true
		require.NoError(t, fl.Put(c))
	}
	assert.Equal(t, fl.Allocated(), fl.Available())
}

func TestPutMisuse(t *testing.T) {
	a := freelist.New(16, nil)
	b := freelist.New(16, nil)
	defer a.Close()
	defer b.Close()

	c, err := a.Get()
	require.NoError(t, err)
	assert.ErrorIs(t, b.Put(c), freelist.ErrForeignChunk)

	require.NoError(t, a.Put(c))
	assert.Panics(t, func() { _ = a.Put(c) }, "double free")
}

func TestPoolBacked(t *testing.T) {
	p, err := mpool.Open(mpool.FlagHeapPages, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	fl := freelist.New(100, p)
	c, err := fl.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().AllocCount, "one slab per growth step")
	assert.Equal(t, freelist.MinChunks*112, p.Stats().UserBytes)

	require.NoError(t, fl.Put(c))
	require.NoError(t, fl.Close())
	assert.Zero(t, p.Stats().AllocCount)
	assert.ErrorIs(t, fl.Close(), freelist.ErrClosed)
	_, err = fl.Get()
	assert.ErrorIs(t, err, freelist.ErrClosed)
}

func TestGrowFailure(t *testing.T) {
	p, err := mpool.Open(mpool.FlagHeapPages|mpool.FlagHeavyPacking, 0, 0)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.SetMaxPages(1))

	fl := freelist.New(p.Stats().PageSize, p)
	_, err = fl.Get()
	assert.ErrorIs(t, err, mpool.ErrNoPages)
}

func TestDestructors(t *testing.T) {
	fl := freelist.New(16, nil)

	var ran []int
	held, err := fl.Get()
	require.NoError(t, err)
	held.SetDestructor(func([]byte) { ran = append(ran, -1) })

	var chunks []*freelist.Chunk
	for i := range 3 {
		c, err := fl.Get()
		require.NoError(t, err)
		c.SetDestructor(func([]byte) { ran = append(ran, i) })
		chunks = append(chunks, c)
	}
	for _, c := range chunks {
		require.NoError(t, fl.Put(c))
	}

	require.NoError(t, fl.Close())
	assert.ElementsMatch(t, []int{0, 1, 2}, ran, "only available chunks are destroyed")
}

func TestGetOrAlloc(t *testing.T) {
	var slot atomics.Pointer[freelist.FreeList]

	c, err := freelist.GetOrAlloc(&slot, nil, 64)
	require.NoError(t, err)
	l := slot.Load()
	require.NotNil(t, l)
	assert.Equal(t, 64, l.ChunkSize())
	assert.Len(t, c.Bytes(), 64)
	require.NoError(t, c.Release())

	// too big for the installed list: standalone allocation
	big, err := freelist.GetOrAlloc(&slot, nil, 1000)
	require.NoError(t, err)
	assert.Len(t, big.Bytes(), 1000)
	assert.Same(t, l, slot.Load())
	assert.ErrorIs(t, l.Put(big), freelist.ErrForeignChunk)
	require.NoError(t, big.Release())
}

func TestGetOrAllocRace(t *testing.T) {
	const goroutines = 16
	var slot atomics.Pointer[freelist.FreeList]

	var wg sync.WaitGroup
	lists := make([]*freelist.FreeList, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := freelist.GetOrAlloc(&slot, nil, 32)
			if !assert.NoError(t, err) {
				return
			}
			lists[i] = slot.Load()
			assert.NoError(t, c.Release())
		}(i)
	}
	wg.Wait()

	for _, l := range lists {
		assert.Same(t, slot.Load(), l, "every goroutine sees the winning list")
	}
}

func TestConcurrentGetPut(t *testing.T) {
	const (
		workers = 8
		rounds  = 5000
	)
	fl := freelist.New(32, nil)
	defer fl.Close()

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for range rounds {
				c, err := fl.Get()
				if !assert.NoError(t, err) {
					return
				}
				b := c.Bytes()
				for i := range b {
					b[i] = byte(w)
				}
				for i := range b {
					if b[i] != byte(w) {
						t.Errorf("worker %d: chunk shared with another goroutine", w)
						return
					}
				}
				if !assert.NoError(t, fl.Put(c)) {
					return
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, fl.Allocated(), fl.Available())
}
