// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"fmt"

	"code.hybscloud.com/ntrt/lfq"
)

type job struct {
	name string
	link lfq.Link[job]
}

func (j *job) QueueLink() *lfq.Link[job] { return &j.link }

// ExampleNewMP demonstrates last-in first-out order.
func ExampleNewMP() {
	q := lfq.NewMP[job]()

	for _, name := range []string{"a", "b", "c"} {
		q.Enqueue(&job{name: name})
	}

	for {
		j, err := q.Dequeue()
		if lfq.IsWouldBlock(err) {
			break
		}
		fmt.Println(j.name)
	}

	// Output:
	// c
	// b
	// a
}

// ExampleMP_DequeueIf demonstrates a conditional pop.
func ExampleMP_DequeueIf() {
	q := lfq.NewMP[job]()
	a, b := &job{name: "a"}, &job{name: "b"}
	q.Enqueue(a)
	q.Enqueue(b)

	_, err := q.DequeueIf(a)
	fmt.Println(lfq.IsWouldBlock(err))

	j, _ := q.DequeueIf(b)
	fmt.Println(j.name)

	// Output:
	// true
	// b
}

// ExampleNewIndirect demonstrates a free-index stack.
func ExampleNewIndirect() {
	free := lfq.NewIndirect(4)
	for i := range free.Cap() {
		free.Enqueue(uintptr(i))
	}

	slot, _ := free.Dequeue()
	fmt.Println("slot", slot)
	free.Enqueue(slot)

	// Output:
	// slot 3
}
