// Package config provides centralized configuration management for factdb.
//
// All configuration values are loaded from environment variables with
// sensible defaults, following the same three-tier intent as the storage
// layer it configures: explicit value, environment variable, built-in
// default.
package config

import (
	"os"
	"strconv"
)

// Backend selects which storage.Store realization a Db should open.
type Backend string

const (
	// BackendMemory keeps all nodes and refs in process memory. Useful for
	// tests and ephemeral databases; nothing survives process exit.
	BackendMemory Backend = "memory"

	// BackendFile lays nodes and refs out under DataPath following the
	// layout fixed by the wire format (nodes/<hash>, refs/head, schema/<attr>).
	BackendFile Backend = "file"

	// BackendSQLite stores the same namespaced keys as rows in a SQLite
	// database file at DataPath.
	BackendSQLite Backend = "sqlite"
)

// Config holds all configuration values for factdb.
type Config struct {
	// DataPath is the root directory (BackendFile) or database file
	// (BackendSQLite) used for persistent storage.
	// Environment: FACTDB_DATA_PATH
	// Default: "./var"
	DataPath string

	// Backend selects the storage.Store realization.
	// Environment: FACTDB_BACKEND
	// Default: "file"
	Backend Backend

	// InstanceBits distinguishes concurrent writer processes sharing the
	// same iid space (see models.Source). Most single-process deployments
	// leave this at 0.
	// Environment: FACTDB_INSTANCE_BITS
	// Default: 0
	InstanceBits byte

	// SchemaFile, if non-empty, is a YAML document loaded at Open time to
	// populate the initial Schema (see config.LoadSchemaFile).
	// Environment: FACTDB_SCHEMA_FILE
	// Default: ""
	SchemaFile string

	// LogLevel is the initial logger level.
	// Environment: FACTDB_LOG_LEVEL
	// Default: "INFO"
	LogLevel string
}

// DefaultConfig returns a Config populated with built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataPath:     "./var",
		Backend:      BackendFile,
		InstanceBits: 0,
		SchemaFile:   "",
		LogLevel:     "INFO",
	}
}

// Load builds a Config from environment variables, falling back to
// DefaultConfig for anything unset.
func Load() *Config {
	cfg := DefaultConfig()

	cfg.DataPath = getEnvString("FACTDB_DATA_PATH", cfg.DataPath)
	cfg.Backend = Backend(getEnvString("FACTDB_BACKEND", string(cfg.Backend)))
	cfg.InstanceBits = byte(getEnvInt("FACTDB_INSTANCE_BITS", int(cfg.InstanceBits)))
	cfg.SchemaFile = getEnvString("FACTDB_SCHEMA_FILE", cfg.SchemaFile)
	cfg.LogLevel = getEnvString("FACTDB_LOG_LEVEL", cfg.LogLevel)

	return cfg
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
