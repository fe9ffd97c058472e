// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package obj

import (
	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/spin"
)

// Ref is the constraint satisfied by pointers to counted values.
type Ref[T any] interface {
	*T
	Object
}

// Slot is an atomic cell that owns one reference to a counted value, or
// holds nil. The zero value is an empty slot.
type Slot[T any, P Ref[T]] struct {
	p atomics.Pointer[T]
}

// Load returns the occupant without taking a reference. The result is only
// safe to use while the caller otherwise keeps the occupant alive; use
// Acquire when another goroutine may replace it concurrently.
func (s *Slot[T, P]) Load() P {
	return P(s.p.Load())
}

// Acquire returns the occupant with a new reference the caller must
// release, or nil.
func (s *Slot[T, P]) Acquire() P {
	sw := spin.Wait{}
	for {
		cur := s.p.Load()
		if cur == nil {
			return nil
		}
		h := P(cur).ObjectHeader()
		if h.TryRetain() {
			if s.p.Load() == cur {
				return P(cur)
			}
			h.Release()
		}
		sw.Once()
	}
}

// Exchange retains v, installs it and returns the previous occupant. The
// slot's reference to the previous occupant passes to the caller, who must
// release it.
func (s *Slot[T, P]) Exchange(v P) P {
	if v != nil {
		v.ObjectHeader().Retain()
	}
	return P(s.p.Swap((*T)(v)))
}

// Swap retains v, installs it and releases the slot's reference to the
// previous occupant, which it returns. The result carries no reference: it
// is only valid while the caller holds one of its own.
func (s *Slot[T, P]) Swap(v P) P {
	old := s.Exchange(v)
	if old != nil {
		old.ObjectHeader().Release()
	}
	return old
}

// Store is Swap without a result.
func (s *Slot[T, P]) Store(v P) {
	s.Swap(v)
}

// CompareAndSwap installs v if the slot holds old. On success v is retained
// and the slot's reference to old is released.
func (s *Slot[T, P]) CompareAndSwap(old, v P) bool {
	if v != nil {
		v.ObjectHeader().Retain()
	}
	if !s.p.CompareAndSwap((*T)(old), (*T)(v)) {
		if v != nil {
			v.ObjectHeader().Release()
		}
		return false
	}
	if old != nil {
		old.ObjectHeader().Release()
	}
	return true
}
