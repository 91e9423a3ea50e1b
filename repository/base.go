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
	"fmt"
	"reflect"

	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/model"
	"github.com/tomoncle/txharness/types"
	"github.com/uptrace/bun"
)

const pkColumn = "id"

type baseRepositoryImpl[T model.Entity] struct {
	uow   *UnitOfWork
	table string
	order types.SortOrder
}

// NewRepository binds a repository for T to an open unit of work. Table and
// columns come from T's bun model, the scan order from T.SortOrder.
func NewRepository[T model.Entity](uow *UnitOfWork) (Repository[T], error) {
	if uow == nil || uow.db == nil {
		return nil, database.ErrInvalidUnitOfWork
	}
	if uow.State().Terminal() {
		return nil, fmt.Errorf("new repository: %w", database.ErrUnitOfWorkDone)
	}
	var zero T
	return &baseRepositoryImpl[T]{
		uow:   uow,
		table: uow.db.Table(reflect.TypeFor[T]()).Name,
		order: zero.SortOrder(),
	}, nil
}

// NewTodoRepository binds a todos repository to uow.
func NewTodoRepository(uow *UnitOfWork) (Repository[model.Todo], error) {
	return NewRepository[model.Todo](uow)
}

// NewUserRepository binds a users repository to uow.
func NewUserRepository(uow *UnitOfWork) (Repository[model.User], error) {
	return NewRepository[model.User](uow)
}

func (r *baseRepositoryImpl[T]) Table() string { return r.table }

func (r *baseRepositoryImpl[T]) Order() types.SortOrder { return r.order }

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("insert %s: nil entity", r.table)
	}
	return r.uow.run("insert", r.table, func(tx bun.Tx) error {
		_, err := tx.NewInsert().Model(entity).Exec(ctx)
		return err
	})
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, id int64) (*T, error) {
	entity := new(T)
	err := r.uow.run("get", r.table, func(tx bun.Tx) error {
		return tx.NewSelect().Model(entity).Where("? = ?", bun.Ident(pkColumn), id).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	err := r.uow.run("get_all", r.table, func(tx bun.Tx) error {
		return tx.NewSelect().Model(&entities).OrderExpr(r.order.Expr(pkColumn)).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}
