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
	"fmt"
	"reflect"

	"github.com/uptrace/bun"
)

// SchemaManager creates and resets the tables of registered models. The
// harness assumes its tables already exist; CreateTables is meant for local
// and test databases, not for versioned schema changes.
type SchemaManager struct {
	db     *bun.DB
	logger Logger
	models []interface{}
}

// NewSchemaManager returns a schema manager over the given models, or over
// every registered model (in priority order) when none are passed.
func NewSchemaManager(db *bun.DB, logger Logger, models ...interface{}) *SchemaManager {
	if len(models) == 0 {
		models = RegisteredModelInstances()
	}
	return &SchemaManager{db: db, logger: logger, models: models}
}

// CreateTables creates every missing table inside a single transaction.
func (sm *SchemaManager) CreateTables(ctx context.Context) error {
	if sm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return sm.inTx(ctx, func(tx bun.Tx) error {
		for _, model := range sm.models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
			}
		}
		return nil
	})
}

// TruncateTables removes every row from the managed tables. Dialects without
// TRUNCATE fall back to DELETE.
func (sm *SchemaManager) TruncateTables(ctx context.Context) error {
	if sm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	err := sm.inTx(ctx, func(tx bun.Tx) error {
		for _, model := range sm.models {
			if _, err := tx.NewTruncateTable().Model(model).Exec(ctx); err != nil {
				return Classify("truncate", TableName(sm.db, model), err)
			}
		}
		return nil
	})
	if err == nil && sm.logger != nil {
		sm.logger.Info("Tables truncated", "tables", sm.TableNames())
	}
	return err
}

// TableNames lists the managed tables in order.
func (sm *SchemaManager) TableNames() []string {
	names := make([]string, 0, len(sm.models))
	for _, model := range sm.models {
		names = append(names, TableName(sm.db, model))
	}
	return names
}

func (sm *SchemaManager) inTx(ctx context.Context, fn func(tx bun.Tx) error) error {
	tx, err := sm.db.BeginTx(ctx, nil)
	if err != nil {
		return Classify("begin", "", err)
	}
	var committed bool
	defer func(tx bun.Tx) {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && sm.logger != nil {
				sm.logger.Error("Failed to rollback transaction", "error", rollbackErr)
			}
		}
	}(tx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &Error{Kind: KindCommit, Op: "commit", Err: err}
	}
	committed = true
	return nil
}

// TableName resolves the table a bun model maps to.
func TableName(db *bun.DB, model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return db.Table(t).Name
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
