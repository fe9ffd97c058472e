// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpool

import (
	"unsafe"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/ntrt/spinlock"
)

// Pool is a page-based allocator. See the package documentation.
type Pool struct {
	lock spinlock.Lock

	flags    Flag
	pageSize int
	maxPages int
	pages    int
	closed   bool

	blocks *redblacktree.Tree // blockKey(base) -> *block
	free   freeLists
	live   map[uintptr]*allocation

	allocCount int
	userBytes  int
	maxBytes   int

	log     *logrus.Entry
	logFunc LogFunc
}

// allocation is the bookkeeping for one Alloc result. The user slice starts
// lowerFence bytes into the chunk.
type allocation struct {
	blk       *block
	off       int
	chunkSize int
	size      int
	freed     bool // FlagNoFree only: retired, never reused
}

// Stats is a snapshot of pool accounting.
type Stats struct {
	PageSize   int // bytes per page
	Pages      int // pages currently mapped
	AllocCount int // live allocations
	UserBytes  int // bytes requested by live allocations
	MaxBytes   int // high-water mark of UserBytes
	TotalBytes int // bytes currently mapped
	FreeBytes  int // bytes on the free lists
}

// Open creates a pool and maps its first page.
//
// pageSize is the growth unit and must be a multiple of the system page
// size; 0 selects DefaultPageMultiple system pages. The third argument is
// a start address hint and is ignored: the page source decides where pages
// live.
func Open(flags Flag, pageSize int, _ uintptr, opts ...Option) (*Pool, error) {
	sys := systemPageSize()
	switch {
	case pageSize == 0:
		pageSize = DefaultPageMultiple * sys
	case pageSize < 0 || pageSize%sys != 0:
		return nil, errors.Wrapf(ErrArgInvalid, "page size %d is not a multiple of %d", pageSize, sys)
	}

	p := &Pool{
		flags:    flags,
		pageSize: pageSize,
		blocks:   redblacktree.NewWith(utils.UInt64Comparator),
		live:     make(map[uintptr]*allocation),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logrus.WithField("context", "mpool")
	}

	if _, err := p.grow(1); err != nil {
		return nil, err
	}
	p.log.Debugf("opened [flags=%s, page_size=%d]", flags, pageSize)
	return p, nil
}

// Flags returns the flags the pool was opened with.
func (p *Pool) Flags() Flag {
	if p == nil {
		return FlagHeapPages
	}
	return p.flags
}

// Stats returns a snapshot of the pool's accounting.
func (p *Pool) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	return Stats{
		PageSize:   p.pageSize,
		Pages:      p.pages,
		AllocCount: p.allocCount,
		UserBytes:  p.userBytes,
		MaxBytes:   p.maxBytes,
		TotalBytes: p.pages * p.pageSize,
		FreeBytes:  p.free.bytes,
	}
}

// SetMaxPages limits how many pages the pool may map. Growth past the limit
// fails with ErrNoPages. 0 removes the limit. Unless FlagHeavyPacking is set
// the pool's first page is not counted.
func (p *Pool) SetMaxPages(n int) error {
	if p == nil {
		return nil
	}
	if n < 0 {
		return errors.Wrapf(ErrArgInvalid, "max pages %d", n)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.maxPages = n
	return nil
}

// SetLogFunc installs or, with nil, removes the transaction callback.
func (p *Pool) SetLogFunc(fn LogFunc) {
	if p == nil {
		return
	}
	p.lock.Lock()
	p.logFunc = fn
	p.lock.Unlock()
}

// Clear frees every allocation at once. Mapped pages are kept and become
// free space again.
func (p *Pool) Clear() error {
	if p == nil {
		return nil
	}
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return ErrClosed
	}
	p.live = make(map[uintptr]*allocation)
	p.free.reset()
	for _, v := range p.blocks.Values() {
		blk := v.(*block)
		clear(blk.starts)
		clear(blk.ends)
		p.free.insert(blk, 0, len(blk.mem))
	}
	p.allocCount, p.userBytes = 0, 0
	fn := p.logFunc
	p.lock.Unlock()

	p.log.Debug("cleared")
	p.report(fn, Transaction{Op: OpClear})
	return nil
}

// Close unmaps every page. Slices handed out by the pool must not be used
// afterwards. Further calls return ErrClosed.
func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return ErrClosed
	}
	p.closed = true
	var firstErr error
	for _, v := range p.blocks.Values() {
		if err := p.unmap(v.(*block)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.blocks.Clear()
	p.free.reset()
	p.live = nil
	fn := p.logFunc
	p.lock.Unlock()

	if firstErr != nil {
		p.log.WithError(firstErr).Error("close")
	}
	p.report(fn, Transaction{Op: OpClose})
	return firstErr
}

func (p *Pool) heapPages() bool {
	return p.flags&FlagHeapPages != 0
}

func (p *Pool) pageLimit() int {
	switch {
	case p.maxPages == 0:
		return 0
	case p.flags&FlagHeavyPacking != 0:
		return p.maxPages
	default:
		return p.maxPages + 1
	}
}

// grow maps a run of n pages and returns it as one free chunk.
// Caller holds p.lock (or owns p exclusively).
func (p *Pool) grow(n int) (*chunk, error) {
	if limit := p.pageLimit(); limit > 0 && p.pages+n > limit {
		return nil, errors.Wrapf(ErrNoPages, "need %d pages, have %d of %d", n, p.pages, limit)
	}
	mem, err := mapPages(n*p.pageSize, p.heapPages())
	if err != nil {
		return nil, err
	}
	blk := newBlock(mem, n)
	p.blocks.Put(blockKey(blk.base), blk)
	p.pages += n
	p.log.Debugf("grew [pages=%d, total=%d]", n, p.pages)
	return p.free.insert(blk, 0, len(mem)), nil
}

func (p *Pool) unmap(blk *block) error {
	p.blocks.Remove(blockKey(blk.base))
	p.pages -= blk.pages
	return unmapPages(blk.mem, p.heapPages())
}

// blockOf returns the block containing addr.
func (p *Pool) blockOf(addr uintptr) *block {
	node, found := p.blocks.Floor(blockKey(addr))
	if !found {
		return nil
	}
	blk := node.Value.(*block)
	if !blk.contains(addr) {
		return nil
	}
	return blk
}

func (p *Pool) report(fn LogFunc, tx Transaction) {
	if fn != nil {
		fn(p, tx)
	}
}

// blockKey orders addresses as unsigned values over the whole address
// space.
func blockKey(addr uintptr) uint64 {
	return uint64(addr)
}

func sliceAddr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
