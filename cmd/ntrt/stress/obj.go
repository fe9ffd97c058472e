// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ntrt/atomics"
	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
	"code.hybscloud.com/ntrt/obj"
)

func init() {
	stressCmd.AddCommand(stressObjCmd)
}

var stressObjCmd = &cobra.Command{
	Use:   "obj",
	Short: "Replace and read a shared counted object concurrently",
	Args:  cobra.NoArgs,
	RunE:  stressObj,
}

type session struct {
	obj.Header
	owner int
}

func stressObj(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var created, destroyed atomics.Int32
	var slot obj.Slot[session, *session]
	newSession := func(owner int) *session {
		s := &session{owner: owner}
		s.Init(func() { destroyed.AddFetch(1) })
		created.AddFetch(1)
		return s
	}

	body := func(id, n int) (int64, error) {
		var ops int64
		for i := range n {
			if i%4 == 0 {
				s := newSession(id)
				slot.Store(s)
				s.Release()
				ops++
				continue
			}
			if s := slot.Acquire(); s != nil {
				if s.State() != obj.StateLive {
					return ops, errors.Errorf("goroutine %d acquired a %s object", id, s.State())
				}
				s.Release()
			}
			ops++
		}
		return ops, nil
	}

	ops, elapsed, err := run("obj", cfg, body)
	if err != nil {
		return err
	}
	slot.Store(nil)
	if c, d := created.Load(), destroyed.Load(); c != d {
		return errors.Errorf("created %d objects, destroyed %d", c, d)
	}
	ntrt.Printer.Printf("objects: %d created and destroyed\n", created.Load())

	r := ntrt.NewReporter(cfg)
	defer r.Close()
	r.ReportStress("obj", ops, elapsed)
	return nil
}
