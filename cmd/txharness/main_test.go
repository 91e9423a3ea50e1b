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

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/txharness/database"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
database:
  type: sqlite
  driver: ""
  dbname: %s
  max_open_conns: 1
  max_idle_conns: 1
schema:
  create_tables: true
  truncate_tables: true
run:
  workers: 3
  rows_per_worker: 2
log:
  level: warn
`, filepath.Join(dir, "harness"))
	path := filepath.Join(dir, "txharness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "run.prom")
	out, err := execute(t, "run", "--config", sqliteConfigFile(t), "--verify-own-writes", "--metrics-file", metricsFile)
	require.NoError(t, err, out)

	assert.Contains(t, out, "3 committed, 0 failed")
	assert.Contains(t, out, "all 6 rows per table verified")

	raw, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `txharness_worker_total{outcome="committed"} 3`)
}

func TestRunCommandFlagsOverrideConfig(t *testing.T) {
	out, err := execute(t, "run", "-c", sqliteConfigFile(t), "-n", "4", "-m", "5")
	require.NoError(t, err, out)
	assert.Contains(t, out, "4 x 5 rows")
	assert.Contains(t, out, "all 20 rows per table verified")
}

func TestRunCommandInvalidFlags(t *testing.T) {
	_, err := execute(t, "run", "-c", sqliteConfigFile(t), "--workers", "0")
	assert.Error(t, err)
}

func TestHealthCommand(t *testing.T) {
	out, err := execute(t, "health", "--config", sqliteConfigFile(t))
	require.NoError(t, err, out)
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "max_open=1")
}

func TestHealthCommandUnreachable(t *testing.T) {
	t.Setenv("TXHARNESS_DB_HOST", "127.0.0.1")
	t.Setenv("TXHARNESS_DB_PORT", "1")
	t.Setenv("TXHARNESS_DB_CONNECT_TIMEOUT", "1s")
	_, err := execute(t, "health")
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConnectivity)
}
