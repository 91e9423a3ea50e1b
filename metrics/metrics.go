/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "txharness"

// Worker outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the collectors of a run. A nil *Metrics records nothing.
type Metrics struct {
	WorkersTotal       *prometheus.CounterVec
	RowsInserted       *prometheus.CounterVec
	UnitOfWorkDuration *prometheus.HistogramVec
	BeginWait          prometheus.Histogram
	Statements         *prometheus.CounterVec
	StatementDuration  *prometheus.HistogramVec
	Verifications      *prometheus.CounterVec
}

// New creates and registers the run metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "total",
			Help:      "Total number of finished workers, by outcome.",
		}, []string{"outcome"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "rows_inserted_total",
			Help:      "Total number of rows inserted by committed workers, by table.",
		}, []string{"table"}),
		UnitOfWorkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "uow",
			Name:      "duration_seconds",
			Help:      "Time from begin to commit or abort of worker units of work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		BeginWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "uow",
			Name:      "begin_wait_seconds",
			Help:      "Time spent waiting for a pooled session and starting the transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		Statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "statements_total",
			Help:      "Total number of statements sent to the store, by operation and status.",
		}, []string{"operation", "status"}),
		StatementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "statement_duration_seconds",
			Help:      "Duration of store statements, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "checks_total",
			Help:      "Total number of table verifications, by table and result.",
		}, []string{"table", "result"}),
	}

	reg.MustRegister(m.WorkersTotal, m.RowsInserted, m.UnitOfWorkDuration, m.BeginWait,
		m.Statements, m.StatementDuration, m.Verifications)
	return m
}

// ObserveWorker records a finished worker and its unit of work timings.
func (m *Metrics) ObserveWorker(outcome string, uowDuration, beginWait time.Duration) {
	if m == nil {
		return
	}
	m.WorkersTotal.WithLabelValues(outcome).Inc()
	m.UnitOfWorkDuration.WithLabelValues(outcome).Observe(uowDuration.Seconds())
	m.BeginWait.Observe(beginWait.Seconds())
}

// AddRows counts committed rows of a table.
func (m *Metrics) AddRows(table string, n int) {
	if m == nil {
		return
	}
	m.RowsInserted.WithLabelValues(table).Add(float64(n))
}

// ObserveVerification records the result of verifying one table.
func (m *Metrics) ObserveVerification(table string, ok bool) {
	if m == nil {
		return
	}
	result := "pass"
	if !ok {
		result = "fail"
	}
	m.Verifications.WithLabelValues(table, result).Inc()
}

// RegisterDBStats exposes the pool statistics of db, labelled with dbName.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, dbName string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, dbName))
}

// WriteTextfile writes everything gathered from g in the text exposition
// format, e.g. for the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
