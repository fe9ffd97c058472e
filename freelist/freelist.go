// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package freelist provides a cache of fixed-size memory chunks.
//
// A [FreeList] hands out chunks of one size from slabs it obtains from an
// [mpool.Allocator]. Get and Put are lock-free: available chunks sit on an
// intrusive [lfq.MP] stack. Only growth takes a spinlock; each growth step
// doubles the number of chunks (starting at 16, capped at MaxChunks) and
// backs all new chunks with one slab.
//
//	fl := freelist.New(256, pool)
//	defer fl.Close()
//
//	c, err := fl.Get()
//	...
//	copy(c.Bytes(), msg)
//	...
//	err = fl.Put(c)
package freelist

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/ntrt/lfq"
	"code.hybscloud.com/ntrt/mpool"
	"code.hybscloud.com/ntrt/spinlock"
)

const (
	// MinChunks is the number of chunks in the first growth step.
	MinChunks = 16

	// MaxChunks bounds the number of chunks one list can own.
	MaxChunks = 0x1000000

	// ChunkAlign is the granularity chunk sizes are rounded up to.
	ChunkAlign = 16
)

var (
	// ErrForeignChunk indicates Put of a chunk that belongs to another list.
	ErrForeignChunk = errors.New("freelist: chunk belongs to another list")

	// ErrClosed indicates the list was closed.
	ErrClosed = errors.New("freelist: list is closed")
)

// Chunk is one fixed-size piece of memory handed out by a FreeList, or a
// standalone allocation made by GetOrAlloc.
type Chunk struct {
	link       lfq.Link[Chunk]
	owner      *FreeList
	alloc      mpool.Allocator // standalone chunks only
	buf        []byte
	free       atomics.Int32 // 1 while on the owner's stack
	destructor func([]byte)
}

// QueueLink implements lfq.Node.
func (c *Chunk) QueueLink() *lfq.Link[Chunk] { return &c.link }

// Bytes returns the chunk's memory. Its length is the list's chunk size.
func (c *Chunk) Bytes() []byte { return c.buf }

// SetDestructor installs fn to run on the chunk's memory when the list is
// closed while the chunk is available.
func (c *Chunk) SetDestructor(fn func([]byte)) { c.destructor = fn }

// Release returns c to its list, or frees it if it is standalone.
func (c *Chunk) Release() error {
	if c.owner != nil {
		return c.owner.Put(c)
	}
	return c.alloc.Free(c.buf)
}

// FreeList is a lock-free cache of equally sized chunks.
type FreeList struct {
	chunkSize int
	alloc     mpool.Allocator
	log       *logrus.Entry

	avail     lfq.MP[Chunk, *Chunk]
	available atomics.Int32
	allocated atomics.Int32
	closed    atomics.Int32

	growLock spinlock.Lock
	slabs    [][]byte
	chunks   []*Chunk
}

// Option configures a FreeList at New.
type Option func(*FreeList)

// WithLogger sets the logrus entry the list logs through.
func WithLogger(log *logrus.Entry) Option {
	return func(l *FreeList) {
		l.log = log
	}
}

// New creates an empty list of chunkSize-byte chunks backed by alloc. A nil
// alloc selects [mpool.Heap]. chunkSize rounds up to a multiple of
// ChunkAlign.
//
// Panics if chunkSize <= 0.
func New(chunkSize int, alloc mpool.Allocator, opts ...Option) *FreeList {
	if chunkSize <= 0 {
		panic("freelist: chunk size must be > 0")
	}
	if alloc == nil {
		alloc = mpool.Heap
	}
	l := &FreeList{
		chunkSize: (chunkSize + ChunkAlign - 1) &^ (ChunkAlign - 1),
		alloc:     alloc,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logrus.WithField("context", "freelist")
	}
	return l
}

// ChunkSize returns the size of every chunk in the list.
func (l *FreeList) ChunkSize() int { return l.chunkSize }

// Allocated returns the number of chunks the list owns.
func (l *FreeList) Allocated() int { return int(l.allocated.Load()) }

// Available returns the number of chunks ready to be handed out.
func (l *FreeList) Available() int { return int(l.available.Load()) }

// Get pops an available chunk, growing the list first when it is empty.
// Returns an error wrapping mpool.ErrNoMem when the list cannot grow.
func (l *FreeList) Get() (*Chunk, error) {
	for {
		if l.closed.Load() != 0 {
			return nil, ErrClosed
		}
		c, err := l.avail.Dequeue()
		if err == nil {
			c.free.Set(0)
			l.available.SubFetch(1)
			return c, nil
		}
		if err := l.grow(); err != nil {
			return nil, err
		}
	}
}

// Put pushes c back onto the list.
//
// Returns ErrForeignChunk if c came from another list. Panics if c is
// already free or if the list would hold more available chunks than it
// owns: both mean a chunk was released twice.
func (l *FreeList) Put(c *Chunk) error {
	if c.owner != l {
		return ErrForeignChunk
	}
	if l.closed.Load() != 0 {
		return ErrClosed
	}
	if !c.free.CompareAndSwap(0, 1) {
		panic("freelist: chunk is already free")
	}
	if l.available.AddFetch(1) > l.allocated.Load() {
		panic("freelist: available chunks exceed allocated chunks")
	}
	l.avail.Enqueue(c)
	return nil
}

// grow adds one growth step of chunks. Concurrent callers that find chunks
// already added by another grower return without growing.
func (l *FreeList) grow() error {
	l.growLock.Lock()
	defer l.growLock.Unlock()

	if l.available.Load() > 0 {
		return nil
	}
	if l.closed.Load() != 0 {
		return ErrClosed
	}

	have := int(l.allocated.Load())
	n := max(have, MinChunks)
	if have+n > MaxChunks {
		n = MaxChunks - have
	}
	if n == 0 {
		return errors.Wrapf(mpool.ErrNoMem, "freelist: %d chunks", MaxChunks)
	}

	slab, err := l.alloc.Alloc(n * l.chunkSize)
	if err != nil {
		return errors.Wrapf(err, "freelist: grow by %d chunks", n)
	}
	l.slabs = append(l.slabs, slab)

	// allocated moves before available so that available <= allocated holds
	// for concurrent readers.
	l.allocated.AddFetch(int32(n))
	for i := range n {
		off := i * l.chunkSize
		c := &Chunk{owner: l, buf: slab[off : off+l.chunkSize : off+l.chunkSize]}
		c.free.Set(1)
		l.chunks = append(l.chunks, c)
		l.available.AddFetch(1)
		l.avail.Enqueue(c)
	}

	l.log.Debugf("grew [chunk_size=%d, chunks=%d, total=%d]", l.chunkSize, n, have+n)
	return nil
}

// Close runs the destructors of available chunks and returns every slab to
// the allocator. Chunks still held by callers become invalid.
func (l *FreeList) Close() error {
	l.growLock.Lock()
	defer l.growLock.Unlock()

	if !l.closed.CompareAndSwap(0, 1) {
		return ErrClosed
	}
	if out := l.allocated.Load() - l.available.Load(); out > 0 {
		l.log.Warnf("closing with %d chunks in use", out)
	}

	for _, c := range l.chunks {
		if c.destructor != nil && c.free.Load() != 0 {
			c.destructor(c.buf)
		}
	}
	var firstErr error
	for _, slab := range l.slabs {
		if err := l.alloc.Free(slab); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "freelist: free slab")
		}
	}
	l.slabs, l.chunks = nil, nil
	for {
		if _, err := l.avail.Dequeue(); err != nil {
			break
		}
	}
	return firstErr
}

// GetOrAlloc serves a chunk of at least size bytes from the list in slot,
// installing a new list of size-byte chunks on first use. When several
// goroutines race to install, the first CAS wins and the losers close their
// lists. When the list's chunks are too small or the list cannot grow, the
// chunk is a standalone allocation from alloc; Chunk.Release frees either
// kind correctly.
func GetOrAlloc(slot *atomics.Pointer[FreeList], alloc mpool.Allocator, size int) (*Chunk, error) {
	if alloc == nil {
		alloc = mpool.Heap
	}
	l := slot.Load()
	if l == nil {
		nl := New(size, alloc)
		if slot.CompareAndSwap(nil, nl) {
			l = nl
		} else {
			_ = nl.Close()
			l = slot.Load()
		}
	}

	if size <= l.chunkSize {
		c, err := l.Get()
		if err == nil || !errors.Is(err, mpool.ErrNoMem) {
			return c, err
		}
	}

	return Standalone(alloc, size)
}

// Standalone allocates a chunk of size bytes directly from alloc, outside
// any list. Chunk.Release frees it.
func Standalone(alloc mpool.Allocator, size int) (*Chunk, error) {
	if alloc == nil {
		alloc = mpool.Heap
	}
	buf, err := alloc.Alloc(size)
	if err != nil {
		return nil, errors.Wrap(err, "freelist: standalone chunk")
	}
	return &Chunk{alloc: alloc, buf: buf}, nil
}
