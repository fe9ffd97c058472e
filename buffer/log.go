// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer

import "github.com/sirupsen/logrus"

var log = logrus.WithField("context", "buffer")

func logFreeError(err error) {
	log.WithError(err).Error("free")
}
