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

package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/model"
	"github.com/tomoncle/txharness/repository"
	"github.com/tomoncle/txharness/types"
)

func TestUnitOfWorkLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openStore(t, 1)

	uow, err := repository.Begin(ctx, db, nil, repository.WithWorker(4))
	require.NoError(t, err)
	assert.Equal(t, types.StateOpen, uow.State())
	assert.Equal(t, 4, uow.Worker())
	assert.NotEqual(t, uuid.Nil, uow.ID())

	require.NoError(t, uow.Commit(ctx))
	assert.Equal(t, types.StateCommitted, uow.State())
	assert.True(t, uow.State().Terminal())

	assert.ErrorIs(t, uow.Commit(ctx), database.ErrUnitOfWorkDone)
	assert.ErrorIs(t, uow.Rollback(), database.ErrUnitOfWorkDone)
	assert.NoError(t, uow.Close())
	assert.Equal(t, types.StateCommitted, uow.State())
}

func TestUnitOfWorkRollback(t *testing.T) {
	ctx := context.Background()
	db := openStore(t, 1)

	uow := begin(t, db)
	todos, err := repository.NewTodoRepository(uow)
	require.NoError(t, err)
	require.NoError(t, todos.Insert(ctx, model.NewTodo(1, 1)))

	require.NoError(t, uow.Rollback())
	assert.Equal(t, types.StateAborted, uow.State())
	assert.ErrorIs(t, uow.Commit(ctx), database.ErrUnitOfWorkDone)

	check := begin(t, db)
	checkTodos, err := repository.NewTodoRepository(check)
	require.NoError(t, err)
	all, err := checkTodos.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUnitOfWorkCloseAbortsOpenTransaction(t *testing.T) {
	ctx := context.Background()
	db := openStore(t, 1)

	uow, err := repository.Begin(ctx, db, nil)
	require.NoError(t, err)
	users, err := repository.NewUserRepository(uow)
	require.NoError(t, err)
	require.NoError(t, users.Insert(ctx, model.NewUser(1)))

	require.NoError(t, uow.Close())
	assert.Equal(t, types.StateAborted, uow.State())

	check := begin(t, db)
	checkUsers, err := repository.NewUserRepository(check)
	require.NoError(t, err)
	_, err = checkUsers.Get(ctx, 1)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestUnitOfWorkCommitFailureDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	db := openStore(t, 1)

	beginCtx, cancel := context.WithCancel(ctx)
	uow, err := repository.Begin(beginCtx, db, nil)
	require.NoError(t, err)
	todos, err := repository.NewTodoRepository(uow)
	require.NoError(t, err)
	require.NoError(t, todos.Insert(ctx, model.NewTodo(1, 1)))

	// Cancelling the begin context ends the transaction inside database/sql.
	cancel()
	err = uow.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrCommit)
	assert.Equal(t, database.KindCommit, database.KindOf(err))
	assert.Equal(t, types.StateAborted, uow.State())

	check := begin(t, db)
	checkTodos, err := repository.NewTodoRepository(check)
	require.NoError(t, err)
	all, err := checkTodos.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUnitOfWorkCommitWithDoneContext(t *testing.T) {
	db := openStore(t, 1)
	uow := begin(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := uow.Commit(ctx)
	assert.ErrorIs(t, err, database.ErrCommit)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StateAborted, uow.State())
}

func TestUnitOfWorkBeginOnClosedDatabase(t *testing.T) {
	db := openStore(t, 1)
	require.NoError(t, db.Close())

	_, err := repository.Begin(context.Background(), db, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConnectivity)
}

func TestUnitOfWorkBeginWithoutDatabase(t *testing.T) {
	_, err := repository.Begin(context.Background(), nil, nil)
	assert.ErrorIs(t, err, database.ErrConnectivity)
}

func TestUnitOfWorkDuration(t *testing.T) {
	ctx := context.Background()
	db := openStore(t, 1)
	uow := begin(t, db)
	require.NoError(t, uow.Commit(ctx))

	d := uow.Duration()
	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Equal(t, d, uow.Duration())
	assert.GreaterOrEqual(t, int64(uow.BeginWait()), int64(0))
}
