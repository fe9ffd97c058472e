// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/michaelquigley/pfxlog"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
	_ "code.hybscloud.com/ntrt/cmd/ntrt/stats"
	_ "code.hybscloud.com/ntrt/cmd/ntrt/stress"
)

func init() {
	pfxlog.Global(logrus.InfoLevel)
	pfxlog.SetPrefix("code.hybscloud.com/")
}

func main() {
	defer logrus.Debugf("finished")

	if err := ntrt.RootCmd.Execute(); err != nil {
		logrus.Fatalf("error (%v)", err)
	}
}
