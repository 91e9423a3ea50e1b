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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/repository"
	"github.com/tomoncle/txharness/types"
)

// Run truncates the harness tables when configured, runs every worker and
// verifies the committed state. The report is returned even on failure.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.New(), Options: h.opts, StartedAt: time.Now()}
	log := h.log(report.RunID)
	defer func() {
		report.FinishedAt = time.Now()
		report.Pool = database.StatsFrom(h.db.DB.Stats())
	}()

	log.WithFields(logrus.Fields{
		"workers":         h.opts.Workers,
		"rows_per_worker": h.opts.RowsPerWorker,
		"fail_fast":       h.opts.FailFast,
	}).Info("Run started")

	if h.opts.Truncate {
		if err := h.Truncate(ctx); err != nil {
			return report, fmt.Errorf("truncate: %w", err)
		}
	}

	results, err := h.runWorkers(ctx, report.RunID)
	report.Workers = results
	if err != nil {
		return report, err
	}

	report.Verification, err = h.verify(ctx, log)
	if err != nil {
		return report, err
	}
	log.WithField("duration", time.Since(report.StartedAt)).Info("Run passed")
	return report, nil
}

// Truncate empties the harness tables.
func (h *Harness) Truncate(ctx context.Context) error {
	models := make([]interface{}, 0, len(kinds))
	for _, k := range kinds {
		models = append(models, k.model())
	}
	return database.NewSchemaManager(h.db, database.GetLogger(), models...).TruncateTables(ctx)
}

// Verify reads the committed state of every table in a fresh unit of work
// and checks it against the run options: id 1 is readable, the table holds
// exactly ids 1..N*M once each in its declared order, and every payload is
// the one its owning worker writes. A violation returns an error matching
// database.ErrVerificationFailed together with the report.
func (h *Harness) Verify(ctx context.Context) (*VerificationReport, error) {
	return h.verify(ctx, h.log(uuid.Nil))
}

func (h *Harness) verify(ctx context.Context, log *logrus.Entry) (*VerificationReport, error) {
	span, err := types.Span(h.opts.Workers, h.opts.RowsPerWorker)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{}
	for _, k := range kinds {
		table, err := h.verifyKind(ctx, k, span)
		if err != nil {
			return report, fmt.Errorf("verify: %w", err)
		}
		report.Tables = append(report.Tables, table)
		h.metrics.ObserveVerification(table.Table, table.OK())

		entry := log.WithFields(logrus.Fields{"table": table.Table, "rows": table.Rows, "expected": table.Expected})
		if table.OK() {
			entry.Info("Table verified")
		} else {
			entry.WithField("problems", table.Problems()).Error("Table verification failed")
		}
	}
	return report, report.err()
}

// verifyKind runs in its own unit of work, never a worker's, and rolls it back.
func (h *Harness) verifyKind(ctx context.Context, k entityKind, span types.IDRange) (TableReport, error) {
	uow, err := repository.Begin(ctx, h.db, nil)
	if err != nil {
		return TableReport{}, err
	}
	defer func() { _ = uow.Close() }()
	return k.verify(ctx, uow, span, h.opts.RowsPerWorker)
}
