// Package config defines the top-level configuration for the bond engine
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BONDD_* environment variables.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Clickhouse ClickhouseConfig `toml:"clickhouse"`
	Server     ServerConfig     `toml:"server"`
	Engine     EngineConfig     `toml:"engine"`
	Registry   RegistryConfig   `toml:"registry"`
	LogLevel   string           `toml:"log_level"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ClickhouseConfig holds the optional rate-history analytics sink.
type ClickhouseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ServerConfig holds the HTTP API listener parameters.
type ServerConfig struct {
	Addr             string `toml:"addr"`
	MetricsNamespace string `toml:"metrics_namespace"`
}

// EngineConfig holds bond parameter validation constants.
type EngineConfig struct {
	DayDurationSeconds uint32 `toml:"day_duration_seconds"`
	MinBondDuration    uint32 `toml:"min_bond_duration"`
}

// RegistryConfig holds the bootstrap master account.
type RegistryConfig struct {
	// MasterAccount is granted the MASTER role at startup when the role
	// registry is empty. Base58 account id.
	MasterAccount string `toml:"master_account"`
}

// Defaults returns the built-in configuration: in-memory storage and a local
// API listener, suitable for development.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{Backend: "memory"},
		Postgres: PostgresConfig{
			PoolMaxConns:  8,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Clickhouse: ClickhouseConfig{
			RunMigrations: true,
		},
		Server: ServerConfig{
			Addr:             ":8080",
			MetricsNamespace: "impact_bond_engine",
		},
		Engine: EngineConfig{
			DayDurationSeconds: 86400,
			MinBondDuration:    1,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres backend requires postgres.dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	if c.Clickhouse.Enabled && c.Clickhouse.DSN == "" {
		return fmt.Errorf("config: clickhouse enabled without clickhouse.dsn")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if c.Engine.DayDurationSeconds == 0 {
		return fmt.Errorf("config: engine.day_duration_seconds must be positive")
	}
	return nil
}
