// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent stress tests on the Indirect queue, whose
// atomix links appear as plain memory accesses to the detector.
const RaceEnabled = true
