// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the ntrt command's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"code.hybscloud.com/ntrt/mpool"
)

type Config struct {
	Pool     PoolConfig     `yaml:"pool"`
	FreeList FreeListConfig `yaml:"freelist"`
	Stress   StressConfig   `yaml:"stress"`
	Influx   InfluxConfig   `yaml:"influx"`
}

type PoolConfig struct {
	PageSize     int  `yaml:"page_size"`
	MaxPages     int  `yaml:"max_pages"`
	BestFit      bool `yaml:"best_fit"`
	NoFree       bool `yaml:"no_free"`
	HeavyPacking bool `yaml:"heavy_packing"`
	HeapPages    bool `yaml:"heap_pages"`
}

type FreeListConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

type StressConfig struct {
	Goroutines int   `yaml:"goroutines"`
	Iterations int   `yaml:"iterations"`
	Sizes      []int `yaml:"sizes"`
}

// InfluxConfig points the stats reporter at an InfluxDB 2 endpoint. An
// empty URL disables reporting.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			PageSize: 0,
			MaxPages: 0,
		},
		FreeList: FreeListConfig{
			ChunkSize: 256,
		},
		Stress: StressConfig{
			Goroutines: 8,
			Iterations: 100000,
			Sizes:      []int{16, 64, 256, 1024, 4096},
		},
		Influx: InfluxConfig{
			Bucket: "ntrt",
		},
	}
}

// LoadConfig reads path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config file [%s]", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to unmarshal config data [%s]", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config [%s]", path)
	}
	return cfg, nil
}

func (self *Config) Validate() error {
	if self.Pool.PageSize < 0 {
		return errors.Errorf("invalid 'pool.page_size' value [%d]", self.Pool.PageSize)
	}
	if self.Pool.MaxPages < 0 {
		return errors.Errorf("invalid 'pool.max_pages' value [%d]", self.Pool.MaxPages)
	}
	if self.FreeList.ChunkSize <= 0 {
		return errors.Errorf("invalid 'freelist.chunk_size' value [%d]", self.FreeList.ChunkSize)
	}
	if self.Stress.Goroutines <= 0 {
		return errors.Errorf("invalid 'stress.goroutines' value [%d]", self.Stress.Goroutines)
	}
	if self.Stress.Iterations <= 0 {
		return errors.Errorf("invalid 'stress.iterations' value [%d]", self.Stress.Iterations)
	}
	if len(self.Stress.Sizes) == 0 {
		return errors.New("'stress.sizes' must not be empty")
	}
	for _, sz := range self.Stress.Sizes {
		if sz <= 0 || sz > 1<<mpool.MaxBits {
			return errors.Errorf("invalid 'stress.sizes' entry [%d]", sz)
		}
	}
	if self.Influx.URL != "" && self.Influx.Bucket == "" {
		return errors.New("'influx.bucket' is required with 'influx.url'")
	}
	return nil
}

// PoolFlags maps the pool booleans onto mpool flags.
func (self *Config) PoolFlags() mpool.Flag {
	var f mpool.Flag
	if self.Pool.BestFit {
		f |= mpool.FlagBestFit
	}
	if self.Pool.NoFree {
		f |= mpool.FlagNoFree
	}
	if self.Pool.HeavyPacking {
		f |= mpool.FlagHeavyPacking
	}
	if self.Pool.HeapPages {
		f |= mpool.FlagHeapPages
	}
	return f
}

func (self *Config) Dump() string {
	out := "ntrt.Config{\n"
	out += fmt.Sprintf("\t%-16s %d\n", "page_size", self.Pool.PageSize)
	out += fmt.Sprintf("\t%-16s %d\n", "max_pages", self.Pool.MaxPages)
	out += fmt.Sprintf("\t%-16s %s\n", "pool_flags", self.PoolFlags())
	out += fmt.Sprintf("\t%-16s %d\n", "chunk_size", self.FreeList.ChunkSize)
	out += fmt.Sprintf("\t%-16s %d\n", "goroutines", self.Stress.Goroutines)
	out += fmt.Sprintf("\t%-16s %d\n", "iterations", self.Stress.Iterations)
	out += fmt.Sprintf("\t%-16s %s\n", "sizes", strings.Trim(fmt.Sprint(self.Stress.Sizes), "[]"))
	out += fmt.Sprintf("\t%-16s %s\n", "influx_url", self.Influx.URL)
	out += "}"
	return out
}
