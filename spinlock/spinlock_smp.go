// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !ntrt_up

package spinlock

import (
	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/spin"
)

// Uniprocessor is false when locking is active.
const Uniprocessor = false

// Lock is a CAS spin-lock. The zero value is unlocked.
type Lock struct {
	state atomics.Int32 // 0 = unlocked, 1 = locked
}

// Init resets the lock to the unlocked state.
func (l *Lock) Init() {
	l.state.Set(0)
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Lock spins until the lock is acquired.
func (l *Lock) Lock() {
	sw := spin.Wait{}
	for !l.state.CompareAndSwap(0, 1) {
		// Spin on a plain load so waiters do not hammer the line with CAS.
		for l.state.Load() != 0 {
			sw.Once()
		}
	}
}

// Unlock releases the lock.
func (l *Lock) Unlock() {
	l.state.Set(0)
}
