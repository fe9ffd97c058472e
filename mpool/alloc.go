// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpool

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

const (
	lowerFenceSize = 8
	upperFenceSize = 2
)

var fencePattern = [2]byte{0xFA, 0xD3}

// Allocator is the allocation surface shared by *Pool and the Go heap.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Calloc(count, size int) ([]byte, error)
	Resize(b []byte, newSize int) ([]byte, error)
	Free(b []byte) error
}

// Heap is an Allocator backed by the Go heap.
var Heap Allocator = (*Pool)(nil)

var _ Allocator = (*Pool)(nil)

// Alloc returns size bytes with len == cap == size. The memory is not
// zeroed when it is reused; use Calloc for zeroed memory.
func (p *Pool) Alloc(size int) ([]byte, error) {
	if p == nil {
		if size <= 0 {
			return nil, errors.Wrapf(ErrArgInvalid, "size %d", size)
		}
		return make([]byte, size), nil
	}

	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return nil, ErrClosed
	}
	b, err := p.alloc(size)
	fn := p.logFunc
	p.lock.Unlock()
	if err != nil {
		return nil, err
	}

	p.report(fn, Transaction{Op: OpAlloc, Size: size, Count: 1, Addr: sliceAddr(b)})
	return b, nil
}

// Calloc returns count*size zeroed bytes.
func (p *Pool) Calloc(count, size int) ([]byte, error) {
	if count <= 0 || size <= 0 {
		return nil, errors.Wrapf(ErrArgInvalid, "calloc %d x %d", count, size)
	}
	hi, lo := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || lo > math.MaxInt {
		return nil, errors.Wrapf(ErrSize, "calloc %d x %d overflows", count, size)
	}
	total := int(lo)
	if p == nil {
		return make([]byte, total), nil
	}

	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return nil, ErrClosed
	}
	b, err := p.alloc(total)
	fn := p.logFunc
	p.lock.Unlock()
	if err != nil {
		return nil, err
	}

	clear(b)
	p.report(fn, Transaction{Op: OpCalloc, Size: size, Count: count, Addr: sliceAddr(b)})
	return b, nil
}

// Free returns b to the pool. b must start at an address Alloc, Calloc or
// Resize returned.
func (p *Pool) Free(b []byte) error {
	if b == nil {
		return ErrArgNull
	}
	if p == nil {
		return nil
	}

	addr := sliceAddr(b)
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return ErrClosed
	}
	a, err := p.lookup(addr)
	var size int
	if err == nil {
		size = a.size
		err = p.release(addr, a)
	}
	fn := p.logFunc
	p.lock.Unlock()
	if err != nil {
		return err
	}

	p.report(fn, Transaction{Op: OpFree, Count: 1, OldAddr: addr, OldSize: size})
	return nil
}

// Resize changes the size of the allocation b starts. It shrinks in place,
// grows in place into a following free chunk when one is large enough, and
// otherwise moves the contents to a new allocation and frees the old one.
func (p *Pool) Resize(b []byte, newSize int) ([]byte, error) {
	if b == nil {
		return nil, ErrArgNull
	}
	if newSize <= 0 {
		return nil, errors.Wrapf(ErrArgInvalid, "size %d", newSize)
	}
	if p == nil {
		nb := make([]byte, newSize)
		copy(nb, b)
		return nb, nil
	}

	addr := sliceAddr(b)
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return nil, ErrClosed
	}
	var oldSize int
	a, err := p.lookup(addr)
	if err == nil {
		oldSize = a.size
		b, err = p.resize(addr, a, newSize)
	}
	fn := p.logFunc
	p.lock.Unlock()
	if err != nil {
		return nil, err
	}

	p.report(fn, Transaction{Op: OpResize, Size: newSize, Count: 1, Addr: sliceAddr(b), OldAddr: addr, OldSize: oldSize})
	return b, nil
}

func (p *Pool) fenced() bool {
	return p.flags&FlagNoFree == 0
}

// chunkSize returns the chunk bytes needed for a size-byte allocation.
func (p *Pool) chunkSize(size int) (int, error) {
	if size <= 0 {
		return 0, errors.Wrapf(ErrArgInvalid, "size %d", size)
	}
	if size > 1<<MaxBits {
		return 0, errors.Wrapf(ErrTooBig, "size %d exceeds %d", size, 1<<MaxBits)
	}
	need := size
	if p.fenced() {
		need += lowerFenceSize + upperFenceSize
	}
	return max(alignUp(need, Align), MinAllocation), nil
}

func (p *Pool) userOffset(a *allocation) int {
	if p.fenced() {
		return a.off + lowerFenceSize
	}
	return a.off
}

func (p *Pool) userBytesOf(a *allocation) []byte {
	off := p.userOffset(a)
	return a.blk.mem[off : off+a.size : off+a.size]
}

// alloc carves a chunk for size bytes. Caller holds p.lock.
func (p *Pool) alloc(size int) ([]byte, error) {
	need, err := p.chunkSize(size)
	if err != nil {
		return nil, err
	}

	c := p.free.find(need, p.flags&FlagBestFit != 0)
	if c == nil {
		if c, err = p.grow((need + p.pageSize - 1) / p.pageSize); err != nil {
			return nil, err
		}
	}
	p.free.remove(c)
	if rest := c.size - need; rest >= MinAllocation {
		p.free.insert(c.blk, c.off+need, rest)
	} else {
		need = c.size
	}

	a := &allocation{blk: c.blk, off: c.off, chunkSize: need, size: size}
	p.writeFences(a)
	b := p.userBytesOf(a)
	p.live[sliceAddr(b)] = a
	p.account(size, 1)
	return b, nil
}

// lookup returns the live allocation starting at addr. Caller holds p.lock.
func (p *Pool) lookup(addr uintptr) (*allocation, error) {
	if a, ok := p.live[addr]; ok {
		if a.freed {
			return nil, errors.Wrapf(ErrIsFree, "address %#x", addr)
		}
		if p.blockOf(addr) != a.blk {
			return nil, errors.Wrapf(ErrBlockCorrupt, "address %#x", addr)
		}
		return a, nil
	}
	blk := p.blockOf(addr)
	if blk == nil {
		return nil, errors.Wrapf(ErrNotFound, "address %#x", addr)
	}
	if blk.freeAt(int(addr-blk.base)) != nil {
		return nil, errors.Wrapf(ErrIsFree, "address %#x", addr)
	}
	return nil, errors.Wrapf(ErrNotFound, "address %#x is not an allocation start", addr)
}

// release frees a live allocation. Caller holds p.lock.
func (p *Pool) release(addr uintptr, a *allocation) error {
	if err := p.checkFences(addr, a); err != nil {
		return err
	}
	p.account(-a.size, -1)

	if !p.fenced() {
		a.freed = true
		return nil
	}
	delete(p.live, addr)
	c := p.free.release(a.blk, a.off, a.chunkSize)

	// A run of pages mapped for one large allocation goes back as soon as
	// it is entirely free.
	if c.blk.pages > 1 && c.off == 0 && c.size == len(c.blk.mem) {
		p.free.remove(c)
		if err := p.unmap(c.blk); err != nil {
			p.log.WithError(err).Warn("release pages")
		}
	}
	return nil
}

// resize implements Resize. Caller holds p.lock.
func (p *Pool) resize(addr uintptr, a *allocation, newSize int) ([]byte, error) {
	if err := p.checkFences(addr, a); err != nil {
		return nil, err
	}
	need, err := p.chunkSize(newSize)
	if err != nil {
		return nil, err
	}

	if need <= a.chunkSize {
		if p.fenced() && a.chunkSize-need >= MinAllocation {
			p.free.release(a.blk, a.off+need, a.chunkSize-need)
			a.chunkSize = need
		}
		return p.resizeInPlace(a, newSize), nil
	}

	if p.fenced() {
		if next, ok := a.blk.starts[a.off+a.chunkSize]; ok && a.chunkSize+next.size >= need {
			p.free.remove(next)
			total := a.chunkSize + next.size
			if total-need >= MinAllocation {
				p.free.insert(a.blk, a.off+need, total-need)
				total = need
			}
			a.chunkSize = total
			return p.resizeInPlace(a, newSize), nil
		}
	}

	nb, err := p.alloc(newSize)
	if err != nil {
		return nil, err
	}
	copy(nb, p.userBytesOf(a))
	if err := p.release(addr, a); err != nil {
		return nil, err
	}
	return nb, nil
}

func (p *Pool) resizeInPlace(a *allocation, newSize int) []byte {
	p.account(newSize-a.size, 0)
	a.size = newSize
	p.writeFences(a)
	return p.userBytesOf(a)
}

func (p *Pool) account(bytes, count int) {
	p.userBytes += bytes
	p.allocCount += count
	p.maxBytes = max(p.maxBytes, p.userBytes)
}

func (p *Pool) writeFences(a *allocation) {
	if !p.fenced() {
		return
	}
	fill := func(f []byte) {
		for i := range f {
			f[i] = fencePattern[i%2]
		}
	}
	fill(a.blk.mem[a.off : a.off+lowerFenceSize])
	upper := a.off + lowerFenceSize + a.size
	fill(a.blk.mem[upper : upper+upperFenceSize])
}

func (p *Pool) checkFences(addr uintptr, a *allocation) error {
	if !p.fenced() {
		return nil
	}
	check := func(f []byte) bool {
		for i := range f {
			if f[i] != fencePattern[i%2] {
				return false
			}
		}
		return true
	}
	upper := a.off + lowerFenceSize + a.size
	if !check(a.blk.mem[a.off:a.off+lowerFenceSize]) || !check(a.blk.mem[upper:upper+upperFenceSize]) {
		p.log.WithField("addr", addr).Errorf("fence overwritten [size=%d]", a.size)
		return errors.Wrapf(ErrFenceCorrupt, "address %#x", addr)
	}
	return nil
}
