// Package model declares the entities written by harness workers and their
// bun table mappings.
package model
