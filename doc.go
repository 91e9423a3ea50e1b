// Package txharness runs N concurrent workers that each write a disjoint,
// deterministic batch of rows through transaction-scoped repositories, and
// verifies the committed result afterwards.
package txharness
