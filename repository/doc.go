// Package repository provides transaction-scoped generic repositories. A
// UnitOfWork owns one store transaction; repositories borrow it and never
// begin or end transactions themselves.
package repository
