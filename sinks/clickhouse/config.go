package clickhouse

import (
	"fmt"
	"os"
	"strconv"
	"time"

	natsx "github.com/rexbrahh/lp-vault/sinks/nats"
)

const (
	envPrefix = "CH_SINK"

	envSinkFlushIntervalMS = "CH_SINK_FLUSH_INTERVAL_MS"
	envSinkSnapshots       = "CH_SINK_POSITION_SNAPSHOTS"

	envSinkDSN             = "CH_SINK_DSN"
	envSinkDatabase        = "CH_SINK_DATABASE"
	envSinkEventsTable     = "CH_SINK_EVENTS_TABLE"
	envSinkPositionsTable  = "CH_SINK_POSITIONS_TABLE"
	envSinkBatchSize       = "CH_SINK_BATCH_SIZE"
	envSinkMaxRetries      = "CH_SINK_MAX_RETRIES"
	envSinkRetryBackoffMS  = "CH_SINK_RETRY_BACKOFF_MS"
	envSinkRetryBackoffMax = "CH_SINK_RETRY_BACKOFF_MAX_MS"
)

// ServiceConfig drives the JetStream to ClickHouse sink. Source selects the
// event kinds; Snapshots controls the position_snapshots projection.
type ServiceConfig struct {
	Source    natsx.ConsumerConfig
	Snapshots bool
	Writer    Config
}

// DefaultWriterConfig names the ledger tables.
func DefaultWriterConfig() Config {
	return Config{
		Database:         "default",
		EventsTable:      "ledger_events",
		PositionsTable:   "position_snapshots",
		BatchSize:        512,
		FlushInterval:    1 * time.Second,
		MaxRetries:       3,
		RetryBackoffBase: 200 * time.Millisecond,
		RetryBackoffMax:  5 * time.Second,
	}
}

// Validate ensures required fields are populated.
func (c ServiceConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if c.Writer.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	return validateConfig(c.Writer)
}

// ServiceConfigFromEnv loads ServiceConfig from CH_SINK_* variables.
func ServiceConfigFromEnv() (ServiceConfig, error) {
	source, err := natsx.ConsumerConfigFromEnv(envPrefix, "clickhouse-sink")
	if err != nil {
		return ServiceConfig{}, err
	}
	cfg := ServiceConfig{
		Source:    source,
		Snapshots: true,
		Writer:    DefaultWriterConfig(),
	}

	if v := os.Getenv(envSinkSnapshots); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("invalid %s: %q", envSinkSnapshots, v)
		}
		cfg.Snapshots = on
	}

	strs := []struct {
		env string
		dst *string
	}{
		{envSinkDSN, &cfg.Writer.DSN},
		{envSinkDatabase, &cfg.Writer.Database},
		{envSinkEventsTable, &cfg.Writer.EventsTable},
		{envSinkPositionsTable, &cfg.Writer.PositionsTable},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		env string
		dst *int
		min int
	}{
		{envSinkBatchSize, &cfg.Writer.BatchSize, 1},
		{envSinkMaxRetries, &cfg.Writer.MaxRetries, 0},
	}
	for _, it := range ints {
		if v := os.Getenv(it.env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < it.min {
				return ServiceConfig{}, fmt.Errorf("invalid %s: %q", it.env, v)
			}
			*it.dst = n
		}
	}

	durations := []struct {
		env string
		dst *time.Duration
		min int
	}{
		{envSinkFlushIntervalMS, &cfg.Writer.FlushInterval, 1},
		{envSinkRetryBackoffMS, &cfg.Writer.RetryBackoffBase, 0},
		{envSinkRetryBackoffMax, &cfg.Writer.RetryBackoffMax, 0},
	}
	for _, d := range durations {
		if v := os.Getenv(d.env); v != "" {
			ms, err := strconv.Atoi(v)
			if err != nil || ms < d.min {
				return ServiceConfig{}, fmt.Errorf("invalid %s: %q", d.env, v)
			}
			*d.dst = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg, cfg.Validate()
}
