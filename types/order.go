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

package types

import "fmt"

// SortOrder is the declared ordering of a full-table scan on the primary key.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

var _ BaseEnum = Ascending

func (o SortOrder) IsValid() bool { return o == Ascending || o == Descending }

func (o SortOrder) Number() int {
	if !o.IsValid() {
		return IllegalValue
	}
	return int(o)
}

func (o SortOrder) Name() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return IllegalName
	}
}

func (o SortOrder) Desc() string {
	switch o {
	case Ascending:
		return "ascending by primary key"
	case Descending:
		return "descending by primary key"
	default:
		return IllegalDesc
	}
}

func (o SortOrder) String() string { return o.Name() }

// Expr renders the ORDER BY expression for the given column, e.g. "id DESC".
func (o SortOrder) Expr(column string) string {
	if o == Descending {
		return fmt.Sprintf("%s DESC", column)
	}
	return fmt.Sprintf("%s ASC", column)
}

// InOrder reports whether b may strictly follow a under this order.
func (o SortOrder) InOrder(a, b int64) bool {
	if o == Descending {
		return a > b
	}
	return a < b
}
