// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build ntrt_up

package spinlock

// Uniprocessor is true when the build is declared single-threaded.
const Uniprocessor = true

// Lock is a no-op lock for single-threaded builds.
type Lock struct{}

// Init does nothing.
func (l *Lock) Init() {}

// TryLock always succeeds.
func (l *Lock) TryLock() bool { return true }

// Lock does nothing.
func (l *Lock) Lock() {}

// Unlock does nothing.
func (l *Lock) Unlock() {}
