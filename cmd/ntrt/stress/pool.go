// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
)

func init() {
	stressPoolCmd.Flags().IntVar(&poolHeld, "held", 16, "Allocations each goroutine keeps live")
	stressCmd.AddCommand(stressPoolCmd)
}

var stressPoolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Allocate, resize and free concurrently from one memory pool",
	Args:  cobra.NoArgs,
	RunE:  stressPool,
}
var poolHeld int

func stressPool(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, err := ntrt.NewContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()

	sizes := cfg.Stress.Sizes
	body := func(id, n int) (int64, error) {
		var ops int64
		held := make([][]byte, 0, poolHeld+1)
		mark := byte(id)
		for i := range n {
			b, err := ctx.Alloc(sizes[(i+id)%len(sizes)])
			if err != nil {
				return ops, errors.Wrapf(err, "goroutine %d alloc", id)
			}
			ops++
			if i%7 == 0 {
				if b, err = ctx.Resize(b, len(b)*2); err != nil {
					return ops, errors.Wrapf(err, "goroutine %d resize", id)
				}
				ops++
			}
			for j := range b {
				b[j] = mark
			}
			held = append(held, b)
			if len(held) > poolHeld {
				old := held[0]
				held = held[1:]
				for _, v := range old {
					if v != mark {
						return ops, errors.Errorf("goroutine %d: allocation overwritten", id)
					}
				}
				if err := ctx.Free(old); err != nil {
					return ops, errors.Wrapf(err, "goroutine %d free", id)
				}
				ops++
			}
		}
		for _, b := range held {
			if err := ctx.Free(b); err != nil {
				return ops, err
			}
			ops++
		}
		return ops, nil
	}

	ops, elapsed, err := run("pool", cfg, body)
	if err != nil {
		return err
	}

	st := ctx.Pool().Stats()
	if st.AllocCount != 0 {
		return errors.Errorf("%d allocations leaked", st.AllocCount)
	}
	logrus.Debugf("pool stats %+v", st)
	ntrt.PrintStats(st)

	r := ntrt.NewReporter(cfg)
	defer r.Close()
	r.ReportStress("pool", ops, elapsed)
	r.ReportPool("stress", st)
	return nil
}
