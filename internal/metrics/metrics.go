// SPDX-License-Identifier: AGPL-3.0-or-later
// turnqueue - a fair, FIFO, mutually exclusive distributed lock service
// Copyright (C) 2026 The turnqueue Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package metrics exposes the draw/wait/release/bump activity of
// internal/turn as Prometheus metrics, grounded on
// internal/metrics/prometheus.go's KV-operation counters and histograms
// from the teacher, repurposed from KV operations to turnqueue operations.
package metrics

import (
	"time"

	"github.com/fieldnotes-dev/turnqueue/internal/turn"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements turn.Recorder against a set of Prometheus collectors.
type Metrics struct {
	DrawTotal      *prometheus.CounterVec
	DrawDuration   *prometheus.HistogramVec
	WaitTotal      *prometheus.CounterVec
	WaitDuration   *prometheus.HistogramVec
	ReleaseTotal   *prometheus.CounterVec
	BumpTotal      *prometheus.CounterVec
}

var _ turn.Recorder = (*Metrics)(nil)

// New builds the collector set and registers it against reg. Passing a
// dedicated *prometheus.Registry (rather than the global
// prometheus.DefaultRegisterer the teacher's NewMetrics uses) keeps repeated
// construction in tests from panicking on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DrawTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnqueue_draw_total",
			Help: "Total number of draw operations, by resource and outcome.",
		}, []string{"resource", "status"}),
		DrawDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turnqueue_draw_duration_seconds",
			Help:    "Duration of draw operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		WaitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnqueue_wait_total",
			Help: "Total number of wait operations, by resource and outcome.",
		}, []string{"resource", "status"}),
		WaitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turnqueue_wait_duration_seconds",
			Help:    "Duration spent waiting for a grant.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		ReleaseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnqueue_release_total",
			Help: "Total number of release operations, by resource and outcome.",
		}, []string{"resource", "outcome"}),
		BumpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnqueue_bump_total",
			Help: "Total number of bump recoveries performed, by resource.",
		}, []string{"resource"}),
	}
	reg.MustRegister(
		m.DrawTotal, m.DrawDuration,
		m.WaitTotal, m.WaitDuration,
		m.ReleaseTotal, m.BumpTotal,
	)
	return m
}

// RecordDraw implements turn.Recorder.
func (m *Metrics) RecordDraw(resource string, duration time.Duration, err error) {
	m.DrawTotal.WithLabelValues(resource, status(err)).Inc()
	m.DrawDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordWait implements turn.Recorder.
func (m *Metrics) RecordWait(resource string, duration time.Duration, err error) {
	m.WaitTotal.WithLabelValues(resource, status(err)).Inc()
	m.WaitDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordRelease implements turn.Recorder.
func (m *Metrics) RecordRelease(resource string, outcome turn.Outcome) {
	label := "completed"
	if outcome == turn.OutcomeCrashed {
		label = "crashed"
	}
	m.ReleaseTotal.WithLabelValues(resource, label).Inc()
}

// RecordBump implements turn.Recorder.
func (m *Metrics) RecordBump(resource string) {
	m.BumpTotal.WithLabelValues(resource).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
