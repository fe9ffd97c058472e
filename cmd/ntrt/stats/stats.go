// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
)

func init() {
	ntrt.RootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Allocate each configured size once and print the pool accounting",
	Args:  cobra.NoArgs,
	RunE:  stats,
}

func stats(_ *cobra.Command, _ []string) error {
	cfg, err := ntrt.LoadConfig()
	if err != nil {
		return err
	}
	ctx, err := ntrt.NewContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()

	var held [][]byte
	for _, sz := range cfg.Stress.Sizes {
		b, err := ctx.Alloc(sz)
		if err != nil {
			return errors.Wrapf(err, "alloc %d", sz)
		}
		held = append(held, b)
	}
	logrus.Infof("pool flags [%s]", ctx.Pool().Flags())
	st := ctx.Pool().Stats()
	ntrt.PrintStats(st)

	r := ntrt.NewReporter(cfg)
	defer r.Close()
	r.ReportPool("stats", st)

	for _, b := range held {
		if err := ctx.Free(b); err != nil {
			return err
		}
	}
	return nil
}
