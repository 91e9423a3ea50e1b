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
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/txharness/metrics"
	"github.com/tomoncle/txharness/repository"
	"github.com/tomoncle/txharness/types"
	"golang.org/x/sync/errgroup"
)

// RunWorkers starts one goroutine per worker and waits for all of them. The
// results are indexed by worker-1. With FailFast the first failure cancels
// the remaining workers and is returned; otherwise all failures are joined.
func (h *Harness) RunWorkers(ctx context.Context) ([]WorkerResult, error) {
	return h.runWorkers(ctx, uuid.New())
}

func (h *Harness) runWorkers(ctx context.Context, runID uuid.UUID) ([]WorkerResult, error) {
	log := h.log(runID)
	results := make([]WorkerResult, h.opts.Workers)

	g := &errgroup.Group{}
	gctx := ctx
	if h.opts.FailFast {
		g, gctx = errgroup.WithContext(ctx)
	}
	for worker := 1; worker <= h.opts.Workers; worker++ {
		g.Go(func() error {
			res := h.runWorker(gctx, log.WithField("worker", worker), worker)
			results[worker-1] = res
			return res.Err
		})
	}
	_ = g.Wait()

	err := reduceResults(results, h.opts.FailFast)
	if err != nil {
		log.WithError(err).Error("Workers failed")
	} else {
		log.WithField("workers", len(results)).Info("All workers committed")
	}
	return results, err
}

// reduceResults turns per-worker failures into the run error. Fail-fast
// reports the originating failure: the lowest worker that failed before the
// run was cancelled.
func reduceResults(results []WorkerResult, failFast bool) error {
	var errs []error
	var first, firstCancelled error
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		werr := &WorkerError{Worker: res.Worker, Err: res.Err}
		errs = append(errs, werr)
		if res.Cancelled {
			if firstCancelled == nil {
				firstCancelled = werr
			}
		} else if first == nil {
			first = werr
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if !failFast {
		return errors.Join(errs...)
	}
	if first != nil {
		return first
	}
	return firstCancelled
}

// runWorker writes the worker's partition of every table in one unit of work.
// Any failure leaves the unit of work uncommitted and the deferred Close
// aborts it.
func (h *Harness) runWorker(ctx context.Context, log *logrus.Entry, worker int) (res WorkerResult) {
	res = WorkerResult{Worker: worker, Rows: make(map[string]int, len(kinds))}

	ids, err := types.Partition(worker, h.opts.RowsPerWorker)
	if err != nil {
		res.Err = err
		return res
	}
	res.IDs = ids

	uow, err := repository.Begin(ctx, h.db, h.txOptions, repository.WithWorker(worker))
	if err != nil {
		res.Err = fmt.Errorf("begin: %w", err)
		res.State = types.StateAborted
		res.Cancelled = ctx.Err() != nil
		h.metrics.ObserveWorker(res.outcome(), 0, 0)
		return res
	}
	res.UnitOfWork = uow.ID()
	res.BeginWait = uow.BeginWait()
	log = log.WithField("uow", uow.ID().String())
	log.WithFields(logrus.Fields{"ids": ids.String(), "wait": res.BeginWait}).Debug("Worker began")

	defer func() {
		if cerr := uow.Close(); cerr != nil && res.Err == nil {
			res.Err = cerr
		}
		res.State = uow.State()
		res.Duration = uow.Duration()
		res.Cancelled = res.Err != nil && ctx.Err() != nil
		h.metrics.ObserveWorker(res.outcome(), res.Duration, res.BeginWait)
		if res.Err != nil {
			log.WithError(res.Err).Warn("Worker aborted")
			return
		}
		for table, n := range res.Rows {
			h.metrics.AddRows(table, n)
		}
		log.WithField("duration", res.Duration).Debug("Worker committed")
	}()

	for _, k := range kinds {
		table, err := k.insertBatch(ctx, uow, worker, ids)
		if err != nil {
			res.Err = err
			return res
		}
		res.Rows[table] = ids.Len()
	}

	if h.opts.VerifyOwnWrites {
		for _, k := range kinds {
			if err := k.probe(ctx, uow, worker, ids); err != nil {
				res.Err = err
				return res
			}
		}
	}

	if err := uow.Commit(ctx); err != nil {
		res.Err = err
	}
	return res
}

func (r WorkerResult) outcome() string {
	switch {
	case r.Err == nil:
		return metrics.OutcomeCommitted
	case r.Cancelled:
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeFailed
	}
}
