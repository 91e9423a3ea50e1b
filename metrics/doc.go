// Package metrics defines the Prometheus collectors of a harness run.
package metrics
