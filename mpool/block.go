// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpool

import (
	"math/bits"
	"unsafe"
)

const (
	// MaxBits is the bit length of the largest allocation (1 GiB).
	MaxBits = 30

	// MaxFreeListSearch bounds how many free chunks one allocation inspects
	// before giving up on the free lists and taking fresh pages.
	MaxFreeListSearch = 100

	// MinAllocation is the smallest chunk the pool hands out or keeps free.
	MinAllocation = 16

	// Align is the alignment of every chunk and of every returned slice.
	Align = 8

	// DefaultPageMultiple scales the system page size into the default pool
	// page size.
	DefaultPageMultiple = 16

	numClasses = MaxBits + 1
)

// block is a run of pages obtained from the page source in one call.
//
// Every byte of mem is either inside a live allocation or inside exactly one
// free chunk. Free chunks are indexed by their start and end offset so that
// a freed neighbor can be merged without walking the block.
type block struct {
	base  uintptr
	mem   []byte
	pages int

	starts map[int]*chunk // offset -> free chunk
	ends   map[int]*chunk // end offset -> free chunk
}

func newBlock(mem []byte, pages int) *block {
	return &block{
		base:   uintptr(unsafe.Pointer(unsafe.SliceData(mem))),
		mem:    mem,
		pages:  pages,
		starts: make(map[int]*chunk),
		ends:   make(map[int]*chunk),
	}
}

func (b *block) contains(addr uintptr) bool {
	return addr >= b.base && addr < b.base+uintptr(len(b.mem))
}

// freeAt returns the free chunk covering off, or nil.
func (b *block) freeAt(off int) *chunk {
	for _, c := range b.starts {
		if off >= c.off && off < c.off+c.size {
			return c
		}
	}
	return nil
}

// chunk is a free region of a block, linked into its size class list.
type chunk struct {
	blk        *block
	off, size  int
	class      int
	prev, next *chunk
}

// sizeClass returns the free-list index for a chunk of size n.
func sizeClass(n int) int {
	c := bits.Len(uint(n)) - 1
	if c >= numClasses {
		return numClasses - 1
	}
	return c
}

func alignUp(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// freeLists holds one doubly linked list of free chunks per size class.
type freeLists struct {
	heads [numClasses]*chunk
	bytes int
}

func (fl *freeLists) reset() {
	*fl = freeLists{}
}

// insert puts a free chunk [off, off+size) of blk on its class list.
func (fl *freeLists) insert(blk *block, off, size int) *chunk {
	c := &chunk{blk: blk, off: off, size: size, class: sizeClass(size)}
	c.next = fl.heads[c.class]
	if c.next != nil {
		c.next.prev = c
	}
	fl.heads[c.class] = c
	blk.starts[off] = c
	blk.ends[off+size] = c
	fl.bytes += size
	return c
}

func (fl *freeLists) remove(c *chunk) {
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		fl.heads[c.class] = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	c.prev, c.next = nil, nil
	delete(c.blk.starts, c.off)
	delete(c.blk.ends, c.off+c.size)
	fl.bytes -= c.size
}

// release frees [off, off+size) of blk, merging with free neighbors, and
// returns the resulting chunk.
func (fl *freeLists) release(blk *block, off, size int) *chunk {
	if prev, ok := blk.ends[off]; ok {
		fl.remove(prev)
		off = prev.off
		size += prev.size
	}
	if next, ok := blk.starts[off+size]; ok {
		fl.remove(next)
		size += next.size
	}
	return fl.insert(blk, off, size)
}

// find returns a free chunk of at least need bytes, or nil.
//
// The class of need itself may hold smaller chunks and is scanned; every
// higher class holds only chunks that fit. At most MaxFreeListSearch chunks
// are inspected in total.
func (fl *freeLists) find(need int, bestFit bool) *chunk {
	var best *chunk
	budget := MaxFreeListSearch
	for class := sizeClass(need); class < numClasses; class++ {
		for c := fl.heads[class]; c != nil && budget > 0; c = c.next {
			budget--
			if c.size < need {
				continue
			}
			if !bestFit || c.size == need {
				return c
			}
			if best == nil || c.size < best.size {
				best = c
			}
		}
		if best != nil || budget == 0 {
			return best
		}
	}
	return best
}
