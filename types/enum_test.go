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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	assert.False(t, StateOpen.Terminal())
	assert.True(t, StateCommitted.Terminal())
	assert.True(t, StateAborted.Terminal())

	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "committed", StateCommitted.Name())
	assert.Equal(t, 2, StateAborted.Number())

	invalid := State(9)
	assert.False(t, invalid.IsValid())
	assert.Equal(t, IllegalValue, invalid.Number())
	assert.Equal(t, IllegalName, invalid.Name())
	assert.Equal(t, IllegalDesc, invalid.Desc())
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, "id DESC", Descending.Expr("id"))
	assert.Equal(t, "id ASC", Ascending.Expr("id"))

	assert.True(t, Descending.InOrder(3, 2))
	assert.False(t, Descending.InOrder(2, 3))
	assert.False(t, Descending.InOrder(2, 2))
	assert.True(t, Ascending.InOrder(2, 3))
	assert.False(t, Ascending.InOrder(3, 3))

	assert.Equal(t, "desc", Descending.String())
	assert.False(t, SortOrder(5).IsValid())
	assert.Equal(t, IllegalName, SortOrder(5).Name())
}
