// Package config loads harness configuration from an optional YAML file
// overlaid with TXHARNESS_* environment variables.
package config
