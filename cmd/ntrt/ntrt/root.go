// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ntrt holds the root command and the state shared by subcommands.
package ntrt

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	rt "code.hybscloud.com/ntrt"
	"code.hybscloud.com/ntrt/internal/config"
	"code.hybscloud.com/ntrt/internal/metrics"
	"code.hybscloud.com/ntrt/mpool"
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&doCpuProfile, "cpu", false, "Enable CPU profiling")
	RootCmd.PersistentFlags().BoolVar(&doMemoryProfile, "memory", false, "Enable memory profiling")
	RootCmd.PersistentFlags().BoolVar(&doMutexProfile, "mutex", false, "Enable mutex profiling")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	RootCmd.PersistentFlags().BoolVarP(&configDump, "dump", "d", false, "Dump the processed config")
}

var RootCmd = &cobra.Command{
	Use:   strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0])),
	Short: "ntrt runtime exerciser",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if doCpuProfile {
			cpuProfile = profile.Start(profile.CPUProfile)
		}
		if doMemoryProfile {
			memoryProfile = profile.Start(profile.MemProfile)
		}
		if doMutexProfile {
			mutexProfile = profile.Start(profile.MutexProfile)
		}
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cpuProfile != nil {
			cpuProfile.Stop()
		}
		if memoryProfile != nil {
			memoryProfile.Stop()
		}
		if mutexProfile != nil {
			mutexProfile.Stop()
		}
	},
}
var verbose bool
var doCpuProfile bool
var cpuProfile interface{ Stop() }
var doMemoryProfile bool
var memoryProfile interface{ Stop() }
var doMutexProfile bool
var mutexProfile interface{ Stop() }
var configPath string
var configDump bool

// Printer formats numbers with digit grouping for command output.
var Printer = message.NewPrinter(language.English)

// LoadConfig returns the configuration selected by --config, or the
// defaults.
func LoadConfig() (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if configDump {
		logrus.Info(cfg.Dump())
	}
	return cfg, nil
}

// NewContext opens a runtime context with a pool configured from cfg.
func NewContext(cfg *config.Config) (*rt.Context, error) {
	ctx, err := rt.NewContext(rt.WithPool(cfg.PoolFlags(), cfg.Pool.PageSize))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create context")
	}
	if err := ctx.Pool().SetMaxPages(cfg.Pool.MaxPages); err != nil {
		_ = ctx.Close()
		return nil, errors.Wrap(err, "unable to set max pages")
	}
	return ctx, nil
}

// NewReporter returns the InfluxDB reporter configured in cfg, or nil.
func NewReporter(cfg *config.Config) *metrics.Reporter {
	host, _ := os.Hostname()
	return metrics.NewReporter(cfg.Influx, map[string]string{"host": host})
}

// PrintStats writes a pool stats table to stdout.
func PrintStats(st mpool.Stats) {
	Printer.Printf("%-12s %14d\n", "page size", st.PageSize)
	Printer.Printf("%-12s %14d\n", "pages", st.Pages)
	Printer.Printf("%-12s %14d\n", "allocations", st.AllocCount)
	Printer.Printf("%-12s %14d\n", "user bytes", st.UserBytes)
	Printer.Printf("%-12s %14d\n", "max bytes", st.MaxBytes)
	Printer.Printf("%-12s %14d\n", "total bytes", st.TotalBytes)
	Printer.Printf("%-12s %14d\n", "free bytes", st.FreeBytes)
}
