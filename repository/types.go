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

	"github.com/tomoncle/txharness/model"
	"github.com/tomoncle/txharness/types"
)

// Repository gives typed access to one table inside a borrowed UnitOfWork.
// A repository must not outlive its unit of work: once the unit of work is
// committed or aborted every call fails with database.ErrUnitOfWorkDone.
type Repository[T model.Entity] interface {
	// Insert writes all columns of entity. A duplicate primary key fails
	// with database.ErrConstraintViolation.
	Insert(ctx context.Context, entity *T) error
	// Get looks up a row by primary key; a missing row is database.ErrNotFound.
	Get(ctx context.Context, id int64) (*T, error)
	// GetAll scans the table in the entity's declared order.
	GetAll(ctx context.Context) ([]*T, error)
	Table() string
	Order() types.SortOrder
}
