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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// State is the lifecycle state of a unit of work. Open is the only
// non-terminal state; Committed and Aborted have no outgoing transitions.
type State int

const (
	StateOpen State = iota
	StateCommitted
	StateAborted
)

var _ BaseEnum = StateOpen

var stateNames = map[State][2]string{
	StateOpen:      {"open", "transaction started, accepting statements"},
	StateCommitted: {"committed", "writes are durable and visible"},
	StateAborted:   {"aborted", "writes were discarded"},
}

func (s State) IsValid() bool {
	_, ok := stateNames[s]
	return ok
}

func (s State) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

func (s State) Name() string {
	if v, ok := stateNames[s]; ok {
		return v[0]
	}
	return IllegalName
}

func (s State) Desc() string {
	if v, ok := stateNames[s]; ok {
		return v[1]
	}
	return IllegalDesc
}

func (s State) String() string { return s.Name() }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateAborted
}
