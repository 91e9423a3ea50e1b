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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/tomoncle/txharness"
	"github.com/tomoncle/txharness/database"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TXHARNESS_DB_HOST.
const EnvPrefix = "TXHARNESS"

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)

// Config is the complete harness configuration.
type Config struct {
	Database database.ConnectionConfig `yaml:"database"`
	Schema   database.SchemaConfig     `yaml:"schema"`
	Run      RunConfig                 `yaml:"run"`
	Log      LogConfig                 `yaml:"log"`
	Metrics  MetricsConfig             `yaml:"metrics"`
}

// RunConfig sizes a run.
type RunConfig struct {
	Workers         int  `yaml:"workers" envconfig:"WORKERS"`
	RowsPerWorker   int  `yaml:"rows_per_worker" envconfig:"ROWS_PER_WORKER"`
	FailFast        bool `yaml:"fail_fast" envconfig:"FAIL_FAST"`
	VerifyOwnWrites bool `yaml:"verify_own_writes" envconfig:"VERIFY_OWN_WRITES"`
}

// LogConfig selects the level and format of every logger.
type LogConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
	// Format is text or json.
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// MetricsConfig controls the metrics written after a run.
type MetricsConfig struct {
	// File receives the Prometheus text exposition of the run when set.
	File string `yaml:"file" envconfig:"METRICS_FILE"`
}

// Default returns the built-in configuration: a local PostgreSQL database and
// 300 workers of 10 rows each.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConnectionConfig(),
		Schema:   *database.DefaultSchemaConfig(),
		Run: RunConfig{
			Workers:       300,
			RowsPerWorker: 10,
			FailFast:      true,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults, when path is not
// empty, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TXHARNESS_* variables. Unset variables leave
// the current values alone.
func (c *Config) ApplyEnv() error {
	for _, spec := range []interface{}{&c.Database, &c.Schema, &c.Run, &c.Log, &c.Metrics} {
		if err := envconfig.Process(EnvPrefix, spec); err != nil {
			return fmt.Errorf("process environment: %w", err)
		}
	}
	return nil
}

// Validate rejects unsupported stores and empty runs.
func (c *Config) Validate() error {
	if err := database.ValidateConnectionConfig(&c.Database); err != nil {
		return err
	}
	if err := c.HarnessOptions().Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	return nil
}

// ConfigLoader returns the database part of the configuration.
func (c *Config) ConfigLoader() *database.Config {
	return &database.Config{
		ConnectionConfig: c.Database,
		SchemaConfig:     c.Schema,
	}
}

// HarnessOptions returns the run options.
func (c *Config) HarnessOptions() txharness.Options {
	return txharness.Options{
		Workers:         c.Run.Workers,
		RowsPerWorker:   c.Run.RowsPerWorker,
		FailFast:        c.Run.FailFast,
		VerifyOwnWrites: c.Run.VerifyOwnWrites,
		Truncate:        c.Schema.TruncateTables,
	}
}
