// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package obj provides reference-counted object lifetimes.
//
// A [Header] embedded in a value gives it an atomic reference count and a
// deallocator that runs exactly once, when the count drops to zero. [Slot]
// holds one counted reference in an atomic cell. [Handle] wraps any value
// in an owning handle whose misuse panics instead of corrupting the count.
//
//	type Session struct {
//	    obj.Header
//	    id string
//	}
//
//	s := &Session{id: "a"}
//	s.Init(func() { log.Printf("session %s gone", s.id) })
//	s.Retain()
//	s.Release() // false
//	s.Release() // true, deallocator ran
package obj

import (
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/spin"
)

// State is the lifecycle state of a Header.
type State int32

const (
	StateUninit State = iota
	StateLive
	StateDestroying
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	default:
		return "uninit"
	}
}

// MisusePolicy selects what Retain and Release do on a count that is
// already zero or would go negative.
type MisusePolicy int32

const (
	// MisuseLog logs the misuse at error level and leaves the count as it was.
	MisuseLog MisusePolicy = iota
	// MisusePanic panics.
	MisusePanic
)

var misusePolicy atomics.Int32

// SetMisusePolicy sets the process-wide misuse policy and returns the
// previous one.
func SetMisusePolicy(p MisusePolicy) MisusePolicy {
	return MisusePolicy(misusePolicy.Swap(int32(p)))
}

var log = logrus.WithField("context", "obj")

func misuse(msg string, count int32) {
	if MisusePolicy(misusePolicy.Load()) == MisusePanic {
		panic("obj: " + msg)
	}
	log.WithField("refcount", count).Error(msg)
}

// Header is the reference-counting base embedded in counted values.
//
// The zero value is uninitialized; call Init before sharing the value.
type Header struct {
	refcount atomics.Int32
	state    atomics.Int32
	dealloc  atomics.Pointer[func()]
}

// Object is implemented by values that embed a Header.
type Object interface {
	ObjectHeader() *Header
}

// ObjectHeader implements Object.
func (h *Header) ObjectHeader() *Header { return h }

// Init sets the count to 1 and publishes dealloc. Passing a nil dealloc is
// allowed, but releasing the last reference then panics.
func (h *Header) Init(dealloc func()) {
	if dealloc != nil {
		h.dealloc.Set(&dealloc)
	} else {
		h.dealloc.Set(nil)
	}
	h.state.Set(int32(StateLive))
	h.refcount.Set(1)
}

// Refcount returns the current count.
func (h *Header) Refcount() int32 { return h.refcount.Load() }

// State returns the lifecycle state.
func (h *Header) State() State { return State(h.state.Load()) }

// Retain adds a reference.
func (h *Header) Retain() {
	if pre := h.refcount.FetchAdd(1); pre <= 0 {
		h.refcount.FetchSub(1)
		misuse("retain of a released object", pre)
	}
}

// TryRetain adds a reference only if the count is still positive. It is the
// safe way to take a reference to an object reachable from a shared cell.
func (h *Header) TryRetain() bool {
	sw := spin.Wait{}
	for {
		n := h.refcount.Load()
		if n <= 0 {
			return false
		}
		if h.refcount.CompareAndSwap(n, n+1) {
			return true
		}
		sw.Once()
	}
}

// Release drops a reference and reports whether it was the last one, in
// which case the deallocator has run.
//
// Panics if the last reference goes away and no deallocator was set.
func (h *Header) Release() bool {
	post := h.refcount.SubFetch(1)
	switch {
	case post > 0:
		return false
	case post < 0:
		h.refcount.AddFetch(1)
		misuse("release of a released object", post+1)
		return false
	}

	if !h.state.CompareAndSwap(int32(StateLive), int32(StateDestroying)) {
		misuse("release of an object that is not live", 0)
		return false
	}
	fn := h.dealloc.Load()
	if fn == nil {
		panic("obj: last reference released without a deallocator")
	}
	(*fn)()
	h.state.Set(int32(StateDestroyed))
	return true
}
