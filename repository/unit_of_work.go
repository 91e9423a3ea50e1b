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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/types"
	"github.com/uptrace/bun"
)

// UnitOfWork is a single store transaction. It is Open until Commit or
// Rollback, after which every operation fails with database.ErrUnitOfWorkDone.
// Statements issued through it are serialized and run in issue order.
type UnitOfWork struct {
	id     uuid.UUID
	worker int
	logger database.Logger

	mu        sync.Mutex
	db        *bun.DB
	tx        bun.Tx
	state     types.State
	beginWait time.Duration
	startedAt time.Time
	endedAt   time.Time
}

// Option customizes a UnitOfWork at Begin.
type Option func(*UnitOfWork)

// WithWorker records the worker owning the unit of work.
func WithWorker(worker int) Option {
	return func(u *UnitOfWork) { u.worker = worker }
}

// WithLogger overrides the package database logger.
func WithLogger(logger database.Logger) Option {
	return func(u *UnitOfWork) { u.logger = logger }
}

// Begin checks a session out of the pool and starts a transaction on it,
// blocking until pool capacity is available or ctx is done.
func Begin(ctx context.Context, db *bun.DB, opts *sql.TxOptions, options ...Option) (*UnitOfWork, error) {
	if db == nil {
		return nil, &database.Error{Kind: database.KindConnectivity, Op: "begin", Err: errors.New("database not initialized")}
	}
	u := &UnitOfWork{id: uuid.New(), db: db}
	for _, opt := range options {
		opt(u)
	}
	if u.logger == nil {
		u.logger = database.GetLogger()
	}

	start := time.Now()
	tx, err := db.BeginTx(ctx, opts)
	u.beginWait = time.Since(start)
	if err != nil {
		err = database.Classify("begin", "", err)
		if database.KindOf(err) == database.KindUnknown && ctx.Err() == nil {
			err = &database.Error{Kind: database.KindConnectivity, Op: "begin", Err: err}
		}
		return nil, err
	}
	u.tx = tx
	u.state = types.StateOpen
	u.startedAt = time.Now()
	u.logger.Debug("Unit of work begun", "uow", u.id, "worker", u.worker, "wait", u.beginWait)
	return u, nil
}

// ID identifies the unit of work in logs.
func (u *UnitOfWork) ID() uuid.UUID { return u.id }

// Worker returns the owning worker index, zero for ad-hoc units of work.
func (u *UnitOfWork) Worker() int { return u.worker }

// BeginWait is the time Begin spent obtaining a session and starting the transaction.
func (u *UnitOfWork) BeginWait() time.Duration { return u.beginWait }

// State returns the current lifecycle state.
func (u *UnitOfWork) State() types.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Duration is the time from Begin to Commit or Rollback, or to now while open.
func (u *UnitOfWork) Duration() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Terminal() {
		return u.endedAt.Sub(u.startedAt)
	}
	return time.Since(u.startedAt)
}

// Commit makes the writes durable. On failure the unit of work is Aborted and
// the returned error matches database.ErrCommit and its cause.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Terminal() {
		return fmt.Errorf("commit: %w", database.ErrUnitOfWorkDone)
	}

	err := ctx.Err()
	if err == nil {
		err = u.tx.Commit()
	}
	u.endedAt = time.Now()
	if err != nil {
		// The driver may have ended the transaction already.
		_ = u.tx.Rollback()
		u.state = types.StateAborted
		u.logger.Warn("Unit of work commit failed", "uow", u.id, "worker", u.worker, "error", err)
		return &database.Error{Kind: database.KindCommit, Op: "commit", Err: err}
	}
	u.state = types.StateCommitted
	u.logger.Debug("Unit of work committed", "uow", u.id, "worker", u.worker,
		"duration", u.endedAt.Sub(u.startedAt))
	return nil
}

// Rollback discards the writes. A transaction already ended by the driver,
// e.g. after its context was cancelled, counts as rolled back.
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Terminal() {
		return fmt.Errorf("rollback: %w", database.ErrUnitOfWorkDone)
	}
	return u.abort()
}

// Close aborts a still open unit of work and is a no-op otherwise. It is
// meant to be deferred right after Begin.
func (u *UnitOfWork) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Terminal() {
		return nil
	}
	return u.abort()
}

func (u *UnitOfWork) abort() error {
	err := u.tx.Rollback()
	u.state = types.StateAborted
	u.endedAt = time.Now()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		u.logger.Error("Unit of work rollback failed", "uow", u.id, "worker", u.worker, "error", err)
		return database.Classify("rollback", "", err)
	}
	u.logger.Debug("Unit of work aborted", "uow", u.id, "worker", u.worker)
	return nil
}

// run executes fn on the transaction while holding the statement lock and
// classifies its error.
func (u *UnitOfWork) run(op, table string, fn func(tx bun.Tx) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Terminal() {
		return fmt.Errorf("%s %s: %w", op, table, database.ErrUnitOfWorkDone)
	}
	return database.Classify(op, table, fn(u.tx))
}
