// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records event-loop statistics.
type Metrics struct {
	loops   *prometheus.CounterVec
	rows    *prometheus.CounterVec
	seconds *prometheus.HistogramVec
}

// NewMetrics returns Metrics registered with reg. If reg is nil the
// collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rdfana",
			Name:      "event_loops_total",
			Help:      "Event loops run, by source.",
		}, []string{"source"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rdfana",
			Name:      "rows_total",
			Help:      "Rows processed by event loops, by source.",
		}, []string{"source"}),
		seconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rdfana",
			Name:      "event_loop_seconds",
			Help:      "Duration of event loops.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.loops, m.rows, m.seconds)
	}
	return m
}

func (m *Metrics) observe(source string, rows int, elapsed time.Duration) {
	m.loops.WithLabelValues(source).Inc()
	m.rows.WithLabelValues(source).Add(float64(rows))
	m.seconds.WithLabelValues(source).Observe(elapsed.Seconds())
}
