package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BONDD_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus environment overrides. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BONDD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection strings at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Storage.Backend, "BONDD_STORAGE_BACKEND")

	setStr(&cfg.Postgres.DSN, "BONDD_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "BONDD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BONDD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BONDD_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Clickhouse.Enabled, "BONDD_CLICKHOUSE_ENABLED")
	setStr(&cfg.Clickhouse.DSN, "BONDD_CLICKHOUSE_DSN")
	setBool(&cfg.Clickhouse.RunMigrations, "BONDD_CLICKHOUSE_RUN_MIGRATIONS")

	setStr(&cfg.Server.Addr, "BONDD_SERVER_ADDR")
	setStr(&cfg.Server.MetricsNamespace, "BONDD_SERVER_METRICS_NAMESPACE")

	setUint32(&cfg.Engine.DayDurationSeconds, "BONDD_ENGINE_DAY_DURATION_SECONDS")
	setUint32(&cfg.Engine.MinBondDuration, "BONDD_ENGINE_MIN_BOND_DURATION")

	setStr(&cfg.Registry.MasterAccount, "BONDD_REGISTRY_MASTER_ACCOUNT")

	setStr(&cfg.LogLevel, "BONDD_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint32(dst *uint32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
