// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package mpool

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func systemPageSize() int {
	return unix.Getpagesize()
}

// mapPages returns n bytes of zeroed anonymous memory.
func mapPages(n int, heap bool) ([]byte, error) {
	if heap {
		return make([]byte, n), nil
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(ErrNoMem, "mmap %d bytes: %v", n, err)
	}
	return mem, nil
}

func unmapPages(mem []byte, heap bool) error {
	if heap {
		return nil
	}
	if err := unix.Munmap(mem); err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}
