// Package database provides connection management for the stores the harness
// runs against (PostgreSQL, MySQL, SQLite), store error classification, query
// hooks, logging and schema bootstrap, built on top of Bun.
package database
