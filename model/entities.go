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

package model

import (
	"fmt"

	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/types"
	"github.com/uptrace/bun"
)

// Entity is implemented by every row type a repository can be bound to.
// The primary key is caller-assigned and the full-scan order is part of the
// entity's contract.
type Entity interface {
	PrimaryKey() int64
	SortOrder() types.SortOrder
}

// Todo is a row of the todos table. Full scans return todos newest id first.
type Todo struct {
	bun.BaseModel `bun:"table:todos,alias:t"`

	ID          int64  `bun:"id,pk" json:"id"`
	Description string `bun:"description,notnull" json:"description"`
}

func (Todo) SortOrder() types.SortOrder { return types.Descending }

func (t Todo) PrimaryKey() int64 { return t.ID }

// NewTodo builds the todo a worker writes for id.
func NewTodo(id int64, worker int) *Todo {
	return &Todo{ID: id, Description: TodoDescription(id, worker)}
}

// TodoDescription is the deterministic description of todo id written by worker.
func TodoDescription(id int64, worker int) string {
	return fmt.Sprintf("test %d inside %d", id, worker)
}

// User is a row of the users table. Full scans return users in ascending id order.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID   int64  `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

func (User) SortOrder() types.SortOrder { return types.Ascending }

func (u User) PrimaryKey() int64 { return u.ID }

// NewUser builds the user a worker writes for id.
func NewUser(id int64) *User {
	return &User{ID: id, Name: UserName(id)}
}

// UserName is the deterministic name of user id.
func UserName(id int64) string {
	return fmt.Sprintf("name:%d", id)
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Todo)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*User)(nil), 20))
}
