// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"code.hybscloud.com/ntrt/cmd/ntrt/ntrt"
	"code.hybscloud.com/ntrt/internal/config"
)

func init() {
	stressCmd.PersistentFlags().IntVarP(&goroutines, "goroutines", "g", 0, "Override the configured goroutine count")
	stressCmd.PersistentFlags().IntVarP(&iterations, "iterations", "n", 0, "Override the configured iterations per goroutine")
	ntrt.RootCmd.AddCommand(stressCmd)
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent workloads against the runtime components",
}
var goroutines int
var iterations int

// workload runs one body per goroutine and returns the total number of
// operations the bodies reported.
type workload func(id, iterations int) (ops int64, err error)

func loadConfig() (*config.Config, error) {
	cfg, err := ntrt.LoadConfig()
	if err != nil {
		return nil, err
	}
	if goroutines > 0 {
		cfg.Stress.Goroutines = goroutines
	}
	if iterations > 0 {
		cfg.Stress.Iterations = iterations
	}
	return cfg, nil
}

func run(name string, cfg *config.Config, body workload) (int64, time.Duration, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var total int64
	var firstErr error

	logrus.Infof("starting [%s] with %d goroutines x %d iterations", name, cfg.Stress.Goroutines, cfg.Stress.Iterations)
	start := time.Now()
	for id := range cfg.Stress.Goroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ops, err := body(id, cfg.Stress.Iterations)
			mu.Lock()
			defer mu.Unlock()
			total += ops
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(id)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if firstErr == nil {
		ntrt.Printer.Printf("%s: %d ops in %v (%.0f ops/s)\n", name, total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	}
	return total, elapsed, firstErr
}
