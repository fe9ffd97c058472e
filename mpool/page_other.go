// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix

package mpool

import "os"

func systemPageSize() int {
	return os.Getpagesize()
}

func mapPages(n int, _ bool) ([]byte, error) {
	return make([]byte, n), nil
}

func unmapPages([]byte, bool) error {
	return nil
}
