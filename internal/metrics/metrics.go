// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics writes pool and stress-run measurements to InfluxDB.
package metrics

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/ntrt/internal/config"
	"code.hybscloud.com/ntrt/mpool"
)

// Reporter batches points to one InfluxDB bucket. A nil *Reporter accepts
// and drops everything, so callers need not check whether reporting is
// configured.
type Reporter struct {
	client   influxdb2.Client
	writeApi api.WriteAPI
	tags     map[string]string
	log      *logrus.Entry
}

// NewReporter connects to cfg.URL, or returns nil if no URL is configured.
// tags are added to every point.
func NewReporter(cfg config.InfluxConfig, tags map[string]string) *Reporter {
	if cfg.URL == "" {
		return nil
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	r := &Reporter{
		client:   client,
		writeApi: client.WriteAPI(cfg.Org, cfg.Bucket),
		tags:     tags,
		log:      logrus.WithField("context", "metrics"),
	}
	r.log.Infof("reporting to [%s] bucket [%s]", cfg.URL, cfg.Bucket)
	return r
}

// PoolFields returns the fields of a pool stats point.
func PoolFields(st mpool.Stats) map[string]interface{} {
	return map[string]interface{}{
		"pages":       st.Pages,
		"alloc_count": st.AllocCount,
		"user_bytes":  st.UserBytes,
		"max_bytes":   st.MaxBytes,
		"total_bytes": st.TotalBytes,
		"free_bytes":  st.FreeBytes,
	}
}

// StressFields returns the fields of a stress-run point.
func StressFields(ops int64, elapsed time.Duration) map[string]interface{} {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(ops) / elapsed.Seconds()
	}
	return map[string]interface{}{
		"ops":        ops,
		"elapsed_ns": elapsed.Nanoseconds(),
		"ops_per_s":  rate,
	}
}

// ReportPool writes one "pool" point tagged with the pool name.
func (r *Reporter) ReportPool(name string, st mpool.Stats) {
	if r == nil {
		return
	}
	r.write("pool", PoolFields(st), "pool", name)
}

// ReportStress writes one "stress" point tagged with the workload name.
func (r *Reporter) ReportStress(workload string, ops int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.write("stress", StressFields(ops, elapsed), "workload", workload)
}

func (r *Reporter) write(measurement string, fields map[string]interface{}, tag, value string) {
	p := influxdb2.NewPoint(measurement, r.tags, fields, time.Now()).AddTag(tag, value)
	r.writeApi.WritePoint(p)
}

// Close flushes pending points and closes the client.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.writeApi.Flush()
	r.client.Close()
	r.log.Debug("closed")
}
