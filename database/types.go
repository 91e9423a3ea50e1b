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

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection pool and reporting its health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager. WaitCount and
// WaitDuration measure how long units of work queued for pool capacity.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and size its pool.
type ConnectionConfig struct {
	Type            string        `json:"type" yaml:"type" envconfig:"DB_TYPE"`       // postgres、mysql、sqlite
	Driver          string        `json:"driver" yaml:"driver" envconfig:"DB_DRIVER"` // postgres only: pq (default) or pgx
	Host            string        `json:"host" yaml:"host" envconfig:"DB_HOST"`
	Port            int           `json:"port" yaml:"port" envconfig:"DB_PORT"`
	Username        string        `json:"username" yaml:"username" envconfig:"DB_USERNAME"`
	Password        string        `json:"password" yaml:"password" envconfig:"DB_PASSWORD"`
	DBName          string        `json:"dbname" yaml:"dbname" envconfig:"DB_NAME"`
	SSLMode         string        `json:"sslmode" yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time" envconfig:"DB_CONN_MAX_IDLE_TIME"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" envconfig:"DB_READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" envconfig:"DB_WRITE_TIMEOUT"`
	EnableQueryLog  bool          `json:"enable_query_log" yaml:"enable_query_log" envconfig:"DB_ENABLE_QUERY_LOG"`
	SlowQueryTime   time.Duration `json:"slow_query_time" yaml:"slow_query_time" envconfig:"DB_SLOW_QUERY_TIME"`
}

// SchemaConfig controls the schema bootstrap performed before a run.
type SchemaConfig struct {
	CreateTables   bool `json:"create_tables" yaml:"create_tables" envconfig:"CREATE_TABLES"`
	TruncateTables bool `json:"truncate_tables" yaml:"truncate_tables" envconfig:"TRUNCATE_TABLES"`
}

// Config aggregates connection and schema settings.
type Config struct {
	ConnectionConfig ConnectionConfig `json:"connection_config" yaml:"connection_config"`
	SchemaConfig     SchemaConfig     `json:"schema_config" yaml:"schema_config"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults
// for a local PostgreSQL instance.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:            "postgres",
		Driver:          "pq",
		Host:            "localhost",
		Port:            5432,
		Username:        "postgres",
		DBName:          "todos",
		SSLMode:         "disable",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		EnableQueryLog:  false,
		SlowQueryTime:   time.Second * 2,
	}
}

// DefaultSchemaConfig truncates the harness tables before every run.
func DefaultSchemaConfig() *SchemaConfig {
	return &SchemaConfig{TruncateTables: true}
}
