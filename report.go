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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/types"
)

// WorkerResult is the outcome of one worker.
type WorkerResult struct {
	Worker     int
	IDs        types.IDRange
	UnitOfWork uuid.UUID
	State      types.State
	BeginWait  time.Duration
	Duration   time.Duration
	// Rows counts the inserted rows per table, including those of a unit of
	// work that was aborted later.
	Rows map[string]int
	Err  error
	// Cancelled is set when the worker failed after the run was cancelled,
	// by the caller or by a failing sibling.
	Cancelled bool
}

// Committed reports whether the worker's writes are durable.
func (r WorkerResult) Committed() bool {
	return r.Err == nil && r.State == types.StateCommitted
}

// WorkerError attributes a failure to its worker.
type WorkerError struct {
	Worker int
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// TableReport is the verification result of one table.
type TableReport struct {
	Table    string
	Order    types.SortOrder
	Expected int
	Rows     int
	// PointLookupErr is set when the well-known id 1 could not be read.
	PointLookupErr    error
	Missing           []int64
	MissingCount      int
	Duplicates        []int64
	Unexpected        []int64
	OrderViolations   int
	PayloadMismatches int
}

// OK reports whether the table holds exactly the expected rows in order.
func (t TableReport) OK() bool {
	return t.PointLookupErr == nil && t.Rows == t.Expected && t.MissingCount == 0 &&
		len(t.Duplicates) == 0 && len(t.Unexpected) == 0 &&
		t.OrderViolations == 0 && t.PayloadMismatches == 0
}

// Problems describes every violation, empty when OK.
func (t TableReport) Problems() []string {
	var out []string
	if t.PointLookupErr != nil {
		out = append(out, fmt.Sprintf("point lookup of id 1: %v", t.PointLookupErr))
	}
	if t.Rows != t.Expected {
		out = append(out, fmt.Sprintf("row count %d, want %d", t.Rows, t.Expected))
	}
	if t.MissingCount > 0 {
		out = append(out, fmt.Sprintf("%d missing ids %v", t.MissingCount, t.Missing))
	}
	if len(t.Duplicates) > 0 {
		out = append(out, fmt.Sprintf("duplicate ids %v", t.Duplicates))
	}
	if len(t.Unexpected) > 0 {
		out = append(out, fmt.Sprintf("unexpected ids %v", t.Unexpected))
	}
	if t.OrderViolations > 0 {
		out = append(out, fmt.Sprintf("%d rows out of %s order", t.OrderViolations, t.Order.Desc()))
	}
	if t.PayloadMismatches > 0 {
		out = append(out, fmt.Sprintf("%d payload mismatches", t.PayloadMismatches))
	}
	return out
}

// VerificationReport collects the table reports in write order.
type VerificationReport struct {
	Tables []TableReport
}

func (v *VerificationReport) OK() bool {
	if v == nil {
		return false
	}
	for _, t := range v.Tables {
		if !t.OK() {
			return false
		}
	}
	return true
}

// Table returns the report of the named table.
func (v *VerificationReport) Table(name string) (TableReport, bool) {
	if v == nil {
		return TableReport{}, false
	}
	for _, t := range v.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

func (v *VerificationReport) err() error {
	vErr := &VerificationError{}
	for _, t := range v.Tables {
		for _, p := range t.Problems() {
			vErr.Problems = append(vErr.Problems, t.Table+": "+p)
		}
		if t.PointLookupErr != nil {
			vErr.causes = append(vErr.causes, t.PointLookupErr)
		}
	}
	if len(vErr.Problems) == 0 {
		return nil
	}
	return vErr
}

// VerificationError lists every violation found. It matches
// database.ErrVerificationFailed and, for a failed point lookup, the lookup
// error (usually database.ErrNotFound).
type VerificationError struct {
	Problems []string
	causes   []error
}

func (e *VerificationError) Error() string {
	return database.ErrVerificationFailed.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *VerificationError) Unwrap() []error {
	return append([]error{database.ErrVerificationFailed}, e.causes...)
}

// Report summarizes a run.
type Report struct {
	RunID        uuid.UUID
	Options      Options
	StartedAt    time.Time
	FinishedAt   time.Time
	Workers      []WorkerResult
	Verification *VerificationReport
	Pool         *database.DBStats
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Committed counts the workers whose unit of work committed.
func (r *Report) Committed() int {
	n := 0
	for _, w := range r.Workers {
		if w.Committed() {
			n++
		}
	}
	return n
}

// Failed counts the workers that returned an error.
func (r *Report) Failed() int {
	n := 0
	for _, w := range r.Workers {
		if w.Err != nil {
			n++
		}
	}
	return n
}
