// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntrt

import (
	"math/bits"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/ntrt/buffer"
	"code.hybscloud.com/ntrt/freelist"
	"code.hybscloud.com/ntrt/mpool"
)

const (
	// MinChunkSize is the smallest chunk class served by Context.Chunk.
	MinChunkSize = 16

	// MaxChunkSize is the largest chunk class; larger requests are
	// standalone allocations.
	MaxChunkSize = 1 << 16

	minChunkBits = 4
	chunkClasses = 16 - minChunkBits + 1
)

// Context carries the allocator and logger shared by a process's
// components.
type Context struct {
	alloc mpool.Allocator
	pool  *mpool.Pool // owned, closed by Close
	log   *logrus.Entry

	poolFlags    mpool.Flag
	poolPageSize int
	openPool     bool

	chunks [chunkClasses]atomics.Pointer[freelist.FreeList]
}

// Option configures a Context.
type Option func(*Context)

// WithAllocator uses alloc, which the Context does not own.
func WithAllocator(alloc mpool.Allocator) Option {
	return func(c *Context) {
		c.alloc = alloc
		c.openPool = false
	}
}

// WithPool opens a pool owned by the Context with the given flags and page
// size.
func WithPool(flags mpool.Flag, pageSize int) Option {
	return func(c *Context) {
		c.poolFlags, c.poolPageSize = flags, pageSize
		c.openPool = true
	}
}

// WithLogger sets the logrus entry the Context and its pool log through.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Context) {
		c.log = log
	}
}

// NewContext creates a Context. Without options it allocates from the Go
// heap.
func NewContext(opts ...Option) (*Context, error) {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.WithField("context", "ntrt")
	}
	if c.openPool {
		p, err := mpool.Open(c.poolFlags, c.poolPageSize, 0, mpool.WithLogger(c.log.WithField("pool", c.poolFlags.String())))
		if err != nil {
			return nil, errors.Wrap(err, "open pool")
		}
		c.pool, c.alloc = p, p
	}
	if c.alloc == nil {
		c.alloc = mpool.Heap
	}
	return c, nil
}

// Allocator returns the Context's allocator.
func (c *Context) Allocator() mpool.Allocator { return c.alloc }

// Pool returns the pool the Context owns, or nil.
func (c *Context) Pool() *mpool.Pool { return c.pool }

// Logger returns the Context's logger.
func (c *Context) Logger() *logrus.Entry { return c.log }

// Alloc allocates size bytes from the Context's allocator.
func (c *Context) Alloc(size int) ([]byte, error) { return c.alloc.Alloc(size) }

// Calloc allocates count*size zeroed bytes from the Context's allocator.
func (c *Context) Calloc(count, size int) ([]byte, error) { return c.alloc.Calloc(count, size) }

// Resize resizes an allocation made through the Context.
func (c *Context) Resize(b []byte, newSize int) ([]byte, error) { return c.alloc.Resize(b, newSize) }

// Free returns an allocation made through the Context.
func (c *Context) Free(b []byte) error { return c.alloc.Free(b) }

// NewBuffer creates a buffer backed by the Context's allocator.
func (c *Context) NewBuffer(size, growExtra int) (*buffer.Buffer, error) {
	return buffer.New(c.alloc, size, growExtra)
}

// Chunk returns a chunk of at least size bytes from the Context's per-size
// chunk caches. Sizes round up to a power of two between MinChunkSize and
// MaxChunkSize; larger sizes are standalone allocations. Return the chunk
// with Chunk.Release.
func (c *Context) Chunk(size int) (*freelist.Chunk, error) {
	if size <= 0 {
		return nil, errors.Wrapf(mpool.ErrArgInvalid, "chunk size %d", size)
	}
	class := max(bits.Len(uint(size-1)), minChunkBits) - minChunkBits
	if class >= chunkClasses {
		return freelist.Standalone(c.alloc, size)
	}
	return freelist.GetOrAlloc(&c.chunks[class], c.alloc, MinChunkSize<<class)
}

// Close closes the chunk caches and the pool the Context owns.
func (c *Context) Close() error {
	for i := range c.chunks {
		if l := c.chunks[i].Swap(nil); l != nil {
			if err := l.Close(); err != nil {
				c.log.WithError(err).Warn("close chunk cache")
			}
		}
	}
	if c.pool != nil {
		return c.pool.Close()
	}
	return nil
}
