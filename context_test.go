// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntrt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/ntrt"
	"code.hybscloud.com/ntrt/mpool"
)

func TestHeapContext(t *testing.T) {
	ctx, err := ntrt.NewContext()
	require.NoError(t, err)
	defer ctx.Close()

	assert.Nil(t, ctx.Pool())
	b, err := ctx.Alloc(32)
	require.NoError(t, err)
	assert.Len(t, b, 32)
	b, err = ctx.Resize(b, 64)
	require.NoError(t, err)
	assert.Len(t, b, 64)
	assert.NoError(t, ctx.Free(b))
}

func TestPoolContext(t *testing.T) {
	ctx, err := ntrt.NewContext(ntrt.WithPool(mpool.FlagHeapPages|mpool.FlagBestFit, 0))
	require.NoError(t, err)

	p := ctx.Pool()
	require.NotNil(t, p)
	assert.Equal(t, mpool.FlagHeapPages|mpool.FlagBestFit, p.Flags())

	b, err := ctx.Calloc(4, 8)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), b)
	assert.Equal(t, 1, p.Stats().AllocCount)
	require.NoError(t, ctx.Free(b))

	buf, err := ctx.NewBuffer(64, 0)
	require.NoError(t, err)
	require.NoError(t, buf.AppendString("ok"))
	assert.True(t, buf.Release())
	assert.Zero(t, p.Stats().AllocCount)

	require.NoError(t, ctx.Close())
	_, err = ctx.Alloc(1)
	assert.ErrorIs(t, err, mpool.ErrClosed)
}

func TestExternalAllocator(t *testing.T) {
	p, err := mpool.Open(mpool.FlagHeapPages, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	ctx, err := ntrt.NewContext(ntrt.WithAllocator(p))
	require.NoError(t, err)
	assert.Nil(t, ctx.Pool(), "external allocator is not owned")
	require.NoError(t, ctx.Close())

	b, err := p.Alloc(8)
	require.NoError(t, err, "pool survives the context")
	require.NoError(t, p.Free(b))
}

func TestChunks(t *testing.T) {
	ctx, err := ntrt.NewContext(ntrt.WithPool(mpool.FlagHeapPages, 0))
	require.NoError(t, err)
	defer ctx.Close()

	for size, want := range map[int]int{1: 16, 16: 16, 17: 32, 1000: 1024, ntrt.MaxChunkSize: ntrt.MaxChunkSize} {
		c, err := ctx.Chunk(size)
		require.NoError(t, err)
		assert.Len(t, c.Bytes(), want, "size %d", size)
		require.NoError(t, c.Release())
	}

	big, err := ctx.Chunk(ntrt.MaxChunkSize + 1)
	require.NoError(t, err)
	assert.Len(t, big.Bytes(), ntrt.MaxChunkSize+1)
	require.NoError(t, big.Release())

	_, err = ctx.Chunk(0)
	assert.ErrorIs(t, err, mpool.ErrArgInvalid)
}
