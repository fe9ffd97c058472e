// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpool

import "github.com/pkg/errors"

var (
	// ErrArgNull indicates a nil slice was passed where an allocation was expected.
	ErrArgNull = errors.New("mpool: function argument is null")

	// ErrArgInvalid indicates an out-of-range argument, such as a zero size or
	// a page size that is not a multiple of the system page size.
	ErrArgInvalid = errors.New("mpool: function argument is invalid")

	// ErrNoMem indicates the operating system refused more pages.
	ErrNoMem = errors.New("mpool: no memory available")

	// ErrTooBig indicates a request above the largest size class.
	ErrTooBig = errors.New("mpool: allocation exceeded max size")

	// ErrSize indicates a size computation overflowed.
	ErrSize = errors.New("mpool: error processing requested size")

	// ErrIsFree indicates an attempt to free or resize memory that is already free.
	ErrIsFree = errors.New("mpool: memory block already free")

	// ErrNotFound indicates the slice does not start an allocation of this pool.
	ErrNotFound = errors.New("mpool: memory block not found in pool")

	// ErrBlockCorrupt indicates the pool's internal bookkeeping is inconsistent.
	ErrBlockCorrupt = errors.New("mpool: invalid internal block status")

	// ErrFenceCorrupt indicates fence bytes around an allocation were overwritten.
	ErrFenceCorrupt = errors.New("mpool: memory bounds overwritten")

	// ErrNoPages indicates the pool reached its page limit.
	ErrNoPages = errors.New("mpool: ran out of pages in pool")

	// ErrClosed indicates the pool was closed.
	ErrClosed = errors.New("mpool: pool is closed")
)
