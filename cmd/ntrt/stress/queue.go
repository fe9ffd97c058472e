// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
	"code.hybscloud.com/ntrt/lfq"
)

func init() {
	stressQueueCmd.Flags().IntVar(&queueNodes, "nodes", 1024, "Nodes circulating through the queue")
	stressQueueCmd.Flags().BoolVar(&queueIndirect, "indirect", false, "Use the index queue")
	stressCmd.AddCommand(stressQueueCmd)
}

var stressQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Pop and push nodes through one shared lock-free queue",
	Args:  cobra.NoArgs,
	RunE:  stressQueue,
}
var queueNodes int
var queueIndirect bool

type queueNode struct {
	id    int
	owner int
	link  lfq.Link[queueNode]
}

func (n *queueNode) QueueLink() *lfq.Link[queueNode] { return &n.link }

func stressQueue(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if queueNodes < 2 {
		return errors.Errorf("invalid node count [%d]", queueNodes)
	}

	var body workload
	var drain func() (int, error)
	if queueIndirect {
		q := lfq.New().Capacity(queueNodes).BuildIndirect()
		for i := range q.Cap() {
			q.Enqueue(uintptr(i))
		}
		body = func(_, n int) (int64, error) {
			var ops int64
			for range n {
				idx, err := q.Dequeue()
				if err != nil {
					continue
				}
				q.Enqueue(idx)
				ops += 2
			}
			return ops, nil
		}
		drain = func() (int, error) {
			seen := make([]bool, q.Cap())
			for count := 0; ; count++ {
				idx, err := q.Dequeue()
				if lfq.IsWouldBlock(err) {
					if count != q.Cap() {
						return count, errors.Errorf("lost indices: drained %d of %d", count, q.Cap())
					}
					return count, nil
				}
				if seen[idx] {
					return count, errors.Errorf("index %d dequeued twice", idx)
				}
				seen[idx] = true
			}
		}
	} else {
		q := lfq.Build[queueNode, *queueNode](lfq.New())
		for i := range queueNodes {
			q.Enqueue(&queueNode{id: i})
		}
		body = func(id, n int) (int64, error) {
			var ops int64
			for range n {
				node, err := q.Dequeue()
				if err != nil {
					continue
				}
				node.owner = id
				q.Enqueue(node)
				ops += 2
			}
			return ops, nil
		}
		drain = func() (int, error) {
			seen := make([]bool, queueNodes)
			for count := 0; ; count++ {
				node, err := q.Dequeue()
				if lfq.IsWouldBlock(err) {
					if count != queueNodes {
						return count, errors.Errorf("lost nodes: drained %d of %d", count, queueNodes)
					}
					return count, nil
				}
				if seen[node.id] {
					return count, errors.Errorf("node %d dequeued twice", node.id)
				}
				seen[node.id] = true
			}
		}
	}

	ops, elapsed, err := run("queue", cfg, body)
	if err != nil {
		return err
	}
	if _, err := drain(); err != nil {
		return err
	}

	r := ntrt.NewReporter(cfg)
	defer r.Close()
	r.ReportStress("queue", ops, elapsed)
	return nil
}
