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

package txharness

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/txharness/metrics"
	"github.com/tomoncle/txharness/utils"
	"github.com/uptrace/bun"
)

// LoggerName is the utils logger used by the harness.
const LoggerName = "HARNESS"

// ErrInvalidOptions is returned for a non-positive worker or row count.
var ErrInvalidOptions = errors.New("invalid harness options")

// Options configures a run.
type Options struct {
	// Workers is the number of concurrent workers (N).
	Workers int
	// RowsPerWorker is the number of rows each worker inserts per table (M).
	RowsPerWorker int
	// FailFast cancels in-flight workers on the first failure. Without it
	// every worker runs to completion and all failures are reported. A run
	// with any failed worker fails either way.
	FailFast bool
	// VerifyOwnWrites makes each worker read back its rows before commit.
	VerifyOwnWrites bool
	// Truncate empties the harness tables before the workers start.
	Truncate bool
}

// DefaultOptions returns 300 workers of 10 rows each, fail-fast, truncating first.
func DefaultOptions() Options {
	return Options{
		Workers:       300,
		RowsPerWorker: 10,
		FailFast:      true,
		Truncate:      true,
	}
}

func (o Options) Validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidOptions, o.Workers)
	}
	if o.RowsPerWorker < 1 {
		return fmt.Errorf("%w: rows per worker must be at least 1, got %d", ErrInvalidOptions, o.RowsPerWorker)
	}
	return nil
}

// ExpectedRows is the number of rows every table holds after a successful run.
func (o Options) ExpectedRows() int {
	return o.Workers * o.RowsPerWorker
}

// Harness drives runs against one database.
type Harness struct {
	db        *bun.DB
	opts      Options
	txOptions *sql.TxOptions
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

// HarnessOption customizes a Harness.
type HarnessOption func(*Harness)

// WithMetrics records worker, row and verification metrics.
func WithMetrics(m *metrics.Metrics) HarnessOption {
	return func(h *Harness) { h.metrics = m }
}

// WithLogger overrides the HARNESS logger.
func WithLogger(l *logrus.Logger) HarnessOption {
	return func(h *Harness) { h.logger = l }
}

// WithTxOptions sets the options of every worker transaction.
func WithTxOptions(opts *sql.TxOptions) HarnessOption {
	return func(h *Harness) { h.txOptions = opts }
}

// New returns a harness for db. The harness tables must already exist.
func New(db *bun.DB, opts Options, options ...HarnessOption) (*Harness, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h := &Harness{db: db, opts: opts}
	for _, opt := range options {
		opt(h)
	}
	if h.logger == nil {
		h.logger = utils.NewLogger(LoggerName)
	}
	return h, nil
}

// Options returns the run options.
func (h *Harness) Options() Options { return h.opts }

func (h *Harness) log(runID uuid.UUID) *logrus.Entry {
	return h.logger.WithField("run_id", runID.String())
}
