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

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrConnectivity means no session could be obtained or the session broke.
	ErrConnectivity = errors.New("store connectivity error")
	// ErrConstraintViolation means a statement violated a key or column constraint.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrCommit means the store refused or failed to commit; writes are discarded.
	ErrCommit = errors.New("commit failed")
	// ErrNotFound means a point lookup matched no row.
	ErrNotFound = errors.New("row not found")
	// ErrUnitOfWorkDone is returned for any use of a committed or aborted unit of work.
	ErrUnitOfWorkDone = errors.New("unit of work already completed")
	// ErrInvalidUnitOfWork is returned when a repository is bound to nothing.
	ErrInvalidUnitOfWork = errors.New("invalid unit of work")
	// ErrVerificationFailed is returned when the final store state breaks an expectation.
	ErrVerificationFailed = errors.New("verification failed")
)

// Kind classifies store failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectivity
	KindConstraintViolation
	KindCommit
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindCommit:
		return "commit"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Sentinel returns the package error matching the kind, or nil for KindUnknown.
func (k Kind) Sentinel() error {
	switch k {
	case KindConnectivity:
		return ErrConnectivity
	case KindConstraintViolation:
		return ErrConstraintViolation
	case KindCommit:
		return ErrCommit
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Error is a classified store failure. errors.Is matches both the sentinel
// of its Kind and anything in the driver error chain.
type Error struct {
	Kind  Kind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Table != "" {
		b.WriteString(" ")
		b.WriteString(e.Table)
	}
	b.WriteString(": ")
	if s := e.Kind.Sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("store error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.Sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify wraps a driver error as *Error. Nil stays nil and an error that is
// already classified is returned unchanged. Context cancellation is kept
// unclassified so callers can tell it apart from store failures.
func Classify(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	kind := classify(err)
	if kind == KindUnknown && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	return &Error{Kind: kind, Op: op, Table: table, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, sql.ErrNoRows) {
		return KindNotFound
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindConnectivity
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgStateKind(pgErr.Code)
	}
	var pgConnErr *pgconn.ConnectError
	if errors.As(err, &pgConnErr) {
		return KindConnectivity
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgStateKind(string(pqErr.Code))
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062, 1048, 1216, 1217, 1451, 1452, 3819:
			return KindConstraintViolation
		case 1040, 1045, 1049, 1053, 2002, 2003, 2006, 2013:
			return KindConnectivity
		default:
			return KindUnknown
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnectivity
	}

	if ok, sqlErr := IsSqlError(err); ok {
		switch sqlErr {
		case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
			return KindConstraintViolation
		case NoRowsErr:
			return KindNotFound
		}
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "connection refused") || strings.Contains(s, "database is closed") ||
		strings.Contains(s, "unable to open database file") || strings.Contains(s, "bad connection") {
		return KindConnectivity
	}
	return KindUnknown
}

// pgStateKind maps a Postgres SQLSTATE to a kind: class 23 is an integrity
// constraint violation, class 08 a connection exception.
func pgStateKind(code string) Kind {
	switch {
	case strings.HasPrefix(code, "23"):
		return KindConstraintViolation
	case strings.HasPrefix(code, "08"), code == "57P01", code == "57P02", code == "57P03":
		return KindConnectivity
	default:
		return KindUnknown
	}
}

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
)

// IsSqlError recognises constraint failures by message, for drivers (SQLite)
// that do not expose typed errors.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "sqlstate 42p01") ||
		strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table") {
		return true, NoTableErr
	}
	if strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "duplicate entry") ||
		strings.Contains(s, "sqlstate 23505") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "sqlstate 23502") ||
		strings.Contains(s, "not null constraint failed") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "foreign key violation") ||
		strings.Contains(s, "foreign key constraint failed") ||
		strings.Contains(s, "sqlstate 23503") {
		return true, ForeignKeyViolationErr
	}
	if strings.Contains(s, "check constraint") ||
		strings.Contains(s, "sqlstate 23514") {
		return true, CheckConstraintViolationErr
	}
	return false, UnknownErr
}
