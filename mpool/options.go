// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpool

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Flag selects pool behavior at Open.
type Flag uint32

const (
	// FlagBestFit searches the free lists for the smallest fitting chunk
	// instead of taking the first one. Slower, less fragmentation.
	FlagBestFit Flag = 1 << iota

	// FlagNoFree declares the caller will rarely free. Allocations are packed
	// without fences and freed chunks are not reused until Clear.
	FlagNoFree

	// FlagHeavyPacking counts the pool's initial page against the
	// SetMaxPages limit.
	FlagHeavyPacking

	// FlagHeapPages takes pages from the Go heap instead of mmap.
	FlagHeapPages
)

func (f Flag) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for _, n := range []struct {
		f    Flag
		name string
	}{
		{FlagBestFit, "BestFit"},
		{FlagNoFree, "NoFree"},
		{FlagHeavyPacking, "HeavyPacking"},
		{FlagHeapPages, "HeapPages"},
	} {
		if f&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Op identifies the pool operation reported to a LogFunc.
type Op int

const (
	OpClose Op = iota + 1
	OpClear
	OpAlloc
	OpCalloc
	OpFree
	OpResize
)

var opNames = [...]string{
	OpClose:  "close",
	OpClear:  "clear",
	OpAlloc:  "alloc",
	OpCalloc: "calloc",
	OpFree:   "free",
	OpResize: "resize",
}

func (op Op) String() string {
	if op <= 0 || int(op) >= len(opNames) {
		return "unknown"
	}
	return opNames[op]
}

// Transaction describes one completed pool operation.
//
// Addr is the address of the resulting allocation and OldAddr the address
// passed in (Free, Resize). Count is the element count for Calloc and 1
// otherwise.
type Transaction struct {
	Op      Op
	Size    int
	Count   int
	Addr    uintptr
	OldAddr uintptr
	OldSize int
}

// LogFunc receives every successful transaction on a pool.
// It runs without the pool lock held and may call back into the pool.
type LogFunc func(p *Pool, tx Transaction)

// Option configures a Pool at Open.
type Option func(*Pool)

// WithLogger sets the logrus entry the pool logs through.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Pool) {
		p.log = log
	}
}

// WithLogFunc installs a transaction callback.
func WithLogFunc(fn LogFunc) Option {
	return func(p *Pool) {
		p.logFunc = fn
	}
}
