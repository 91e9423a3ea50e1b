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

	"github.com/tomoncle/txharness/model"
	"github.com/tomoncle/txharness/repository"
	"github.com/tomoncle/txharness/types"
)

// entityKind is one table written by every worker.
type entityKind interface {
	// model returns a nil struct pointer for schema operations.
	model() interface{}
	// insertBatch writes the rows of ids for worker and returns the table name.
	insertBatch(ctx context.Context, uow *repository.UnitOfWork, worker int, ids types.IDRange) (string, error)
	// probe reads every id back inside the still open unit of work.
	probe(ctx context.Context, uow *repository.UnitOfWork, worker int, ids types.IDRange) error
	// verify checks the committed table against the full id span.
	verify(ctx context.Context, uow *repository.UnitOfWork, span types.IDRange, rowsPerWorker int) (TableReport, error)
}

// kinds lists the tables in the order every worker writes them.
var kinds = []entityKind{
	kind[model.Todo]{
		newRepo: repository.NewTodoRepository,
		build:   model.NewTodo,
		payload: func(t *model.Todo) string { return t.Description },
	},
	kind[model.User]{
		newRepo: repository.NewUserRepository,
		build:   func(id int64, _ int) *model.User { return model.NewUser(id) },
		payload: func(u *model.User) string { return u.Name },
	},
}

type kind[T model.Entity] struct {
	newRepo func(uow *repository.UnitOfWork) (repository.Repository[T], error)
	build   func(id int64, worker int) *T
	payload func(entity *T) string
}

func (k kind[T]) model() interface{} { return new(T) }

func (k kind[T]) insertBatch(ctx context.Context, uow *repository.UnitOfWork, worker int, ids types.IDRange) (string, error) {
	repo, err := k.newRepo(uow)
	if err != nil {
		return "", err
	}
	for id := ids.First; id <= ids.Last; id++ {
		if err := repo.Insert(ctx, k.build(id, worker)); err != nil {
			return repo.Table(), fmt.Errorf("insert id %d: %w", id, err)
		}
	}
	return repo.Table(), nil
}

func (k kind[T]) probe(ctx context.Context, uow *repository.UnitOfWork, worker int, ids types.IDRange) error {
	repo, err := k.newRepo(uow)
	if err != nil {
		return err
	}
	for id := ids.First; id <= ids.Last; id++ {
		got, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("read back %s id %d: %w", repo.Table(), id, err)
		}
		if want := k.payload(k.build(id, worker)); k.payload(got) != want {
			return fmt.Errorf("read back %s id %d: got %q, want %q", repo.Table(), id, k.payload(got), want)
		}
	}
	return nil
}

func (k kind[T]) verify(ctx context.Context, uow *repository.UnitOfWork, span types.IDRange, rowsPerWorker int) (TableReport, error) {
	repo, err := k.newRepo(uow)
	if err != nil {
		return TableReport{}, err
	}
	report := TableReport{Table: repo.Table(), Order: repo.Order(), Expected: span.Len()}

	// The well-known id 1 belongs to worker 1 in every run.
	if _, err := repo.Get(ctx, span.First); err != nil {
		report.PointLookupErr = err
	}

	rows, err := repo.GetAll(ctx)
	if err != nil {
		return report, err
	}
	report.Rows = len(rows)

	seen := make(map[int64]int, len(rows))
	for i, row := range rows {
		id := (*row).PrimaryKey()
		seen[id]++
		switch {
		case !span.Contains(id):
			report.Unexpected = appendCapped(report.Unexpected, id)
		case seen[id] == 2:
			report.Duplicates = appendCapped(report.Duplicates, id)
		}
		if i > 0 && !report.Order.InOrder((*rows[i-1]).PrimaryKey(), id) {
			report.OrderViolations++
		}
		if span.Contains(id) {
			want := k.payload(k.build(id, types.Owner(id, rowsPerWorker)))
			if k.payload(row) != want {
				report.PayloadMismatches++
			}
		}
	}
	for id := span.First; id <= span.Last; id++ {
		if seen[id] == 0 {
			report.Missing = appendCapped(report.Missing, id)
			report.MissingCount++
		}
	}
	return report, nil
}

// maxListedIDs bounds the ids kept per violation list in a report.
const maxListedIDs = 20

func appendCapped(ids []int64, id int64) []int64 {
	if len(ids) >= maxListedIDs {
		return ids
	}
	return append(ids, id)
}
