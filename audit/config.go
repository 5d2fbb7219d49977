package audit

import (
	"fmt"
	"os"
	"strconv"
)

const (
	envBatchSize   = "AUDIT_BATCH_SIZE"
	envConcurrency = "AUDIT_CONCURRENCY"
)

// Config captures runtime parameters for the position scan.
type Config struct {
	BatchSize   uint64
	Concurrency int
}

// DefaultConfig sets safe defaults for optional fields.
func DefaultConfig() Config {
	return Config{
		BatchSize:   256,
		Concurrency: 4,
	}
}

// Validate ensures batch sizes and worker counts are sane.
func (c Config) Validate() error {
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	return nil
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv(envBatchSize); v != "" {
		size, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envBatchSize, err)
		}
		cfg.BatchSize = size
	}
	if v := os.Getenv(envConcurrency); v != "" {
		conc, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envConcurrency, err)
		}
		cfg.Concurrency = conc
	}

	return cfg, cfg.Validate()
}
