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
	"errors"
	"fmt"
)

// ErrInvalidPartition is returned for a non-positive worker index or batch size.
var ErrInvalidPartition = errors.New("invalid id partition")

// IDRange is an inclusive, contiguous range of primary keys.
type IDRange struct {
	First int64
	Last  int64
}

// Partition returns the ids owned by the 1-based worker inserting batchSize
// rows per table: {(worker-1)*batchSize+1 .. worker*batchSize}. Ranges of
// distinct workers never overlap, so no coordination is needed between them.
func Partition(worker, batchSize int) (IDRange, error) {
	if worker < 1 || batchSize < 1 {
		return IDRange{}, fmt.Errorf("%w: worker=%d batch_size=%d", ErrInvalidPartition, worker, batchSize)
	}
	first := int64(worker-1)*int64(batchSize) + 1
	return IDRange{First: first, Last: first + int64(batchSize) - 1}, nil
}

// Span returns the union of all partitions for workers 1..workers.
func Span(workers, batchSize int) (IDRange, error) {
	last, err := Partition(workers, batchSize)
	if err != nil {
		return IDRange{}, err
	}
	return IDRange{First: 1, Last: last.Last}, nil
}

// Owner returns the worker whose partition holds id.
func Owner(id int64, batchSize int) int {
	if id < 1 || batchSize < 1 {
		return IllegalValue
	}
	return int((id-1)/int64(batchSize)) + 1
}

// Len returns the number of ids in the range.
func (r IDRange) Len() int {
	if r.Last < r.First {
		return 0
	}
	return int(r.Last - r.First + 1)
}

// Contains reports whether id lies within the range.
func (r IDRange) Contains(id int64) bool {
	return id >= r.First && id <= r.Last
}

// IDs lists the range in ascending order.
func (r IDRange) IDs() []int64 {
	ids := make([]int64, 0, r.Len())
	for id := r.First; id <= r.Last; id++ {
		ids = append(ids, id)
	}
	return ids
}

func (r IDRange) String() string {
	return fmt.Sprintf("[%d..%d]", r.First, r.Last)
}
