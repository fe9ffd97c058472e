// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package spinlock provides a busy-waiting mutual exclusion lock.
//
// Lock is meant for short critical sections over internal structures (the
// memory pool's free lists and page list, the free-list's growth path). It
// never parks the goroutine; contention is absorbed by [spin.Wait] backoff.
//
// Builds tagged ntrt_up are declared strictly single-threaded: every
// operation compiles to a no-op and TryLock always succeeds.
package spinlock

import "sync"

var _ sync.Locker = (*Lock)(nil)
