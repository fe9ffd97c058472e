// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
	"code.hybscloud.com/ntrt/freelist"
)

func init() {
	stressCmd.AddCommand(stressFreeListCmd)
}

var stressFreeListCmd = &cobra.Command{
	Use:   "freelist",
	Short: "Get and put fixed-size chunks concurrently through one free list",
	Args:  cobra.NoArgs,
	RunE:  stressFreeList,
}

func stressFreeList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, err := ntrt.NewContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()

	fl := freelist.New(cfg.FreeList.ChunkSize, ctx.Allocator(), freelist.WithLogger(ctx.Logger()))
	body := func(id, n int) (int64, error) {
		var ops int64
		mark := byte(id)
		for range n {
			c, err := fl.Get()
			if err != nil {
				return ops, errors.Wrapf(err, "goroutine %d get", id)
			}
			b := c.Bytes()
			for j := range b {
				b[j] = mark
			}
			for _, v := range b {
				if v != mark {
					return ops, errors.Errorf("goroutine %d: chunk shared", id)
				}
			}
			if err := fl.Put(c); err != nil {
				return ops, errors.Wrapf(err, "goroutine %d put", id)
			}
			ops += 2
		}
		return ops, nil
	}

	ops, elapsed, err := run("freelist", cfg, body)
	if err != nil {
		return err
	}
	ntrt.Printer.Printf("chunks: %d allocated, %d available, %d bytes each\n", fl.Allocated(), fl.Available(), fl.ChunkSize())
	if fl.Allocated() != fl.Available() {
		return errors.Errorf("%d chunks not returned", fl.Allocated()-fl.Available())
	}
	if err := fl.Close(); err != nil {
		return err
	}

	r := ntrt.NewReporter(cfg)
	defer r.Close()
	r.ReportStress("freelist", ops, elapsed)
	r.ReportPool("freelist", ctx.Pool().Stats())
	return nil
}
