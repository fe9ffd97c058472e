// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buffer provides a growable byte buffer backed by an allocator.
//
// A Buffer is a counted object: it starts with one reference, Retain adds
// owners, and the last Release returns its memory to the allocator.
package buffer

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/pkg/errors"

	"code.hybscloud.com/ntrt/mpool"
	"code.hybscloud.com/ntrt/obj"
)

// GrowMax is the largest size a Buffer grows to.
const GrowMax = 0x1000000

const wordSize = int(unsafe.Sizeof(uintptr(0)))

var (
	// ErrTooLarge indicates growth past GrowMax.
	ErrTooLarge = errors.New("buffer: size exceeds maximum")

	// ErrReleased indicates use of a buffer whose memory was returned.
	ErrReleased = errors.New("buffer: already released")
)

// Buffer is a growable byte buffer. It is not safe for concurrent mutation.
type Buffer struct {
	obj.Header

	alloc     mpool.Allocator
	mem       []byte
	n         int
	growExtra int
}

func alignWord(n int) int {
	return (n + wordSize - 1) &^ (wordSize - 1)
}

// New allocates a buffer of size bytes from alloc. growExtra is added to
// every growth step. A zero size falls back to growExtra, then to one word.
// A nil alloc selects [mpool.Heap].
func New(alloc mpool.Allocator, size, growExtra int) (*Buffer, error) {
	if alloc == nil {
		alloc = mpool.Heap
	}
	if size == 0 {
		size = growExtra
	}
	size = alignWord(max(size, 1))
	if size > GrowMax {
		return nil, errors.Wrapf(ErrTooLarge, "size %d", size)
	}
	mem, err := alloc.Alloc(size)
	if err != nil {
		return nil, errors.Wrap(err, "buffer: allocate")
	}

	b := &Buffer{alloc: alloc, mem: mem, growExtra: growExtra}
	b.Init(func() {
		if err := b.alloc.Free(b.mem); err != nil {
			logFreeError(err)
		}
		b.mem, b.n = nil, 0
	})
	return b, nil
}

// Bytes returns the occupied part of the buffer. It aliases the buffer's
// memory and is valid until the next mutation.
func (b *Buffer) Bytes() []byte { return b.mem[:b.n] }

// Len returns the number of occupied bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the size of the buffer's memory.
func (b *Buffer) Cap() int { return len(b.mem) }

// Available returns the bytes that can be appended without growing.
func (b *Buffer) Available() int { return len(b.mem) - b.n }

// Reset empties the buffer, keeping its memory.
func (b *Buffer) Reset() { b.n = 0 }

// Grow makes room for at least length more bytes.
func (b *Buffer) Grow(length int) error {
	if length <= b.Available() {
		return nil
	}
	if b.mem == nil {
		return ErrReleased
	}
	size := alignWord(b.n + length + b.growExtra)
	if length > GrowMax || size > GrowMax {
		return errors.Wrapf(ErrTooLarge, "grow to %d", size)
	}
	mem, err := b.alloc.Resize(b.mem, size)
	if err != nil {
		return errors.Wrapf(err, "buffer: grow to %d", size)
	}
	b.mem = mem
	return nil
}

// Append copies p to the end of the buffer.
func (b *Buffer) Append(p []byte) error {
	if err := b.Grow(len(p)); err != nil {
		return err
	}
	b.n += copy(b.mem[b.n:], p)
	return nil
}

// AppendByte appends c.
func (b *Buffer) AppendByte(c byte) error {
	if err := b.Grow(1); err != nil {
		return err
	}
	b.mem[b.n] = c
	b.n++
	return nil
}

// AppendString appends s.
func (b *Buffer) AppendString(s string) error {
	if err := b.Grow(len(s)); err != nil {
		return err
	}
	b.n += copy(b.mem[b.n:], s)
	return nil
}

// Appendf appends the fmt.Sprintf formatting of args.
func (b *Buffer) Appendf(format string, args ...any) error {
	return b.AppendString(fmt.Sprintf(format, args...))
}

// IndexOf returns the offset of the first occurrence of p, or -1.
func (b *Buffer) IndexOf(p []byte) int {
	return bytes.Index(b.Bytes(), p)
}

// Delete removes count elements of elemSize bytes starting at element
// index, shifting the rest down and zeroing the vacated tail. count is
// clamped to the elements present.
//
// Panics if elemSize is not positive, if count is negative, or if index is
// not an element of the buffer.
func (b *Buffer) Delete(index, count, elemSize int) {
	if elemSize <= 0 {
		panic("buffer: delete element size must be > 0")
	}
	if count < 0 {
		panic("buffer: delete count must be >= 0")
	}
	length := b.n / elemSize
	if index < 0 || index >= length {
		panic("buffer: delete index out of range")
	}
	count = min(count, length-index)
	start, end := index*elemSize, (index+count)*elemSize
	copy(b.mem[start:], b.mem[end:length*elemSize])
	newLen := (length - count) * elemSize
	clear(b.mem[newLen:b.n])
	b.n = newLen
}
