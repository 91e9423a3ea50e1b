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
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestObserveWorker(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveWorker(OutcomeCommitted, 20*time.Millisecond, time.Millisecond)
	m.ObserveWorker(OutcomeCommitted, 30*time.Millisecond, time.Millisecond)
	m.ObserveWorker(OutcomeFailed, 10*time.Millisecond, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkersTotal.WithLabelValues(OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkersTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.UnitOfWorkDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BeginWait))
}

func TestAddRowsAndVerification(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AddRows("todos", 10)
	m.AddRows("todos", 10)
	m.AddRows("users", 10)
	m.ObserveVerification("todos", true)
	m.ObserveVerification("users", false)

	assert.Equal(t, 20.0, testutil.ToFloat64(m.RowsInserted.WithLabelValues("todos")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.RowsInserted.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("todos", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("users", "fail")))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveWorker(OutcomeCommitted, time.Second, time.Second)
		m.AddRows("todos", 1)
		m.ObserveVerification("todos", true)
		m.QueryHook().AfterQuery(context.Background(), &bun.QueryEvent{})
	})
}

func TestQueryHookCountsStatements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	db := bun.NewDB(openSQLite(t), sqlitedialect.New())
	db.AddQueryHook(m.QueryHook())

	var n int
	require.NoError(t, db.NewSelect().ColumnExpr("1").Scan(context.Background(), &n))
	assert.Equal(t, 1, n)

	_, err := db.ExecContext(context.Background(), "INSERT INTO missing_table VALUES (1)")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Statements.WithLabelValues("SELECT", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Statements.WithLabelValues("INSERT", "error")))
}

func TestRegisterDBStatsAndWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.AddRows("todos", 3)

	require.NoError(t, RegisterDBStats(reg, openSQLite(t), "harness"))

	path := filepath.Join(t.TempDir(), "txharness.prom")
	require.NoError(t, WriteTextfile(reg, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.True(t, strings.Contains(out, `txharness_worker_rows_inserted_total{table="todos"} 3`))
	assert.True(t, strings.Contains(out, `go_sql_max_open_connections{db_name="harness"}`))
}
