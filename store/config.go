package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	envBackend    = "LEDGER_STORE"
	envDBHost     = "DB_HOST"
	envDBPort     = "DB_PORT"
	envDBUser     = "DB_USER"
	envDBPassword = "DB_PASSWORD"
	envDBName     = "DB_NAME"
	envDBSSLMode  = "DB_SSLMODE"
	envDBTable    = "DB_RECORDS_TABLE"
)

// Config selects and parameterises the record store backend.
type Config struct {
	Backend         string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Table           string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns an in-memory configuration with Postgres defaults
// filled in for when the backend is switched.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendMemory,
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		Table:           "ledger_records",
		MaxOpenConns:    25,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Validate ensures the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("database port must be positive")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Table == "" {
		return fmt.Errorf("records table is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive")
	}
	return nil
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// String masks the password.
func (c Config) String() string {
	if c.Backend != BackendPostgres {
		return "store(memory)"
	}
	return fmt.Sprintf("store(postgres %s@%s:%d/%s table=%s)", c.User, c.Host, c.Port, c.DBName, c.Table)
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv(envBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(envDBHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(envDBPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDBPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(envDBUser); v != "" {
		cfg.User = v
	}
	if v := os.Getenv(envDBPassword); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv(envDBName); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv(envDBSSLMode); v != "" {
		cfg.SSLMode = v
	}
	if v := os.Getenv(envDBTable); v != "" {
		cfg.Table = v
	}
	return cfg, cfg.Validate()
}

// Open constructs the configured backend.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendMemory {
		return NewMemory(), nil
	}
	return OpenPostgres(cfg)
}
