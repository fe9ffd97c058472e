// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBlock(base uintptr, size int) *block {
	return &block{
		base:   base,
		mem:    make([]byte, size),
		pages:  1,
		starts: make(map[int]*chunk),
		ends:   make(map[int]*chunk),
	}
}

func TestBlockOfHighAddresses(t *testing.T) {
	p, err := Open(FlagHeapPages, 0, 0)
	require.NoError(t, err)
	defer p.Close()

	signBit := uintptr(1) << (unsafe.Sizeof(uintptr(0))*8 - 1)
	below := fakeBlock(signBit-0x1000, 0x100)
	across := fakeBlock(signBit-0x10, 0x20)
	top := fakeBlock(^uintptr(0)&^0xFFF, 0x100)
	for _, blk := range []*block{below, across, top} {
		p.blocks.Put(blockKey(blk.base), blk)
	}

	assert.Same(t, below, p.blockOf(below.base+0x80))
	assert.Same(t, across, p.blockOf(across.base))
	assert.Same(t, across, p.blockOf(signBit+4), "block spanning the sign bit")
	assert.Same(t, top, p.blockOf(top.base+0x10))
	assert.Nil(t, p.blockOf(signBit+0x100), "gap between blocks")
	assert.Nil(t, p.blockOf(below.base-1))

	for _, blk := range []*block{below, across, top} {
		p.blocks.Remove(blockKey(blk.base))
	}
}
