package parquet

import (
	"fmt"
	"os"
	"strconv"
	"time"

	natsx "github.com/rexbrahh/lp-vault/sinks/nats"
)

// Partition selects the object layout under the prefix.
type Partition string

const (
	// PartitionKindDate writes <prefix>/kind=<kind>/date=<yyyy-mm-dd>/.
	PartitionKindDate Partition = "kind_date"
	// PartitionDate mixes every kind into <prefix>/date=<yyyy-mm-dd>/.
	PartitionDate Partition = "date"
)

const (
	envPrefixSink = "PARQUET"

	envEndpoint       = "S3_ENDPOINT"
	envBucket         = "S3_BUCKET"
	envAccessKey      = "S3_ACCESS_KEY"
	envSecretKey      = "S3_SECRET_KEY"
	envPathStyle      = "S3_FORCE_PATH_STYLE"
	envRegion         = "PARQUET_REGION"
	envPrefix         = "PARQUET_PREFIX"
	envPartition      = "PARQUET_PARTITION"
	envFlushIntervalS = "PARQUET_FLUSH_INTERVAL_S"
	envBatchRows      = "PARQUET_BATCH_ROWS"
)

// Config holds parameters for the event archive writer.
type Config struct {
	Endpoint      string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Region        string
	PathStyle     bool
	Prefix        string
	Partition     Partition
	FlushInterval time.Duration
	BatchRows     int
}

// DefaultConfig archives under ledger/ split by kind and day.
func DefaultConfig() Config {
	return Config{
		Region:        "us-east-1",
		PathStyle:     true,
		Prefix:        "ledger/",
		Partition:     PartitionKindDate,
		FlushInterval: 15 * time.Minute,
		BatchRows:     5000,
	}
}

// Enabled reports whether the storage target is configured at all.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Validate ensures mandatory fields are present.
func (c Config) Validate() error {
	if !c.Enabled() {
		return fmt.Errorf("S3 endpoint, bucket and credentials are required")
	}
	if c.Region == "" {
		return fmt.Errorf("region must be set")
	}
	if c.Prefix == "" {
		return fmt.Errorf("object prefix cannot be empty")
	}
	switch c.Partition {
	case PartitionKindDate, PartitionDate:
	default:
		return fmt.Errorf("unknown partition %q", c.Partition)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.BatchRows <= 0 {
		return fmt.Errorf("batch rows must be positive")
	}
	return nil
}

// FromEnv builds Config from environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	strs := []struct {
		env string
		dst *string
	}{
		{envEndpoint, &cfg.Endpoint},
		{envBucket, &cfg.Bucket},
		{envAccessKey, &cfg.AccessKey},
		{envSecretKey, &cfg.SecretKey},
		{envRegion, &cfg.Region},
		{envPrefix, &cfg.Prefix},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}
	if v := os.Getenv(envPartition); v != "" {
		cfg.Partition = Partition(v)
	}
	if v := os.Getenv(envPathStyle); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %q", envPathStyle, v)
		}
		cfg.PathStyle = on
	}
	if v := os.Getenv(envFlushIntervalS); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envFlushIntervalS, err)
		}
		cfg.FlushInterval = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv(envBatchRows); v != "" {
		rows, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envBatchRows, err)
		}
		cfg.BatchRows = rows
	}
	return cfg, cfg.Validate()
}

// ServiceConfig pairs the archive writer with the events it consumes.
type ServiceConfig struct {
	Source natsx.ConsumerConfig
	Writer Config
}

func (c ServiceConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	return c.Writer.Validate()
}

// ServiceConfigFromEnv loads PARQUET_* consumer settings and the writer.
func ServiceConfigFromEnv() (ServiceConfig, error) {
	source, err := natsx.ConsumerConfigFromEnv(envPrefixSink, "parquet-sink")
	if err != nil {
		return ServiceConfig{}, err
	}
	writer, err := FromEnv()
	if err != nil {
		return ServiceConfig{}, err
	}
	cfg := ServiceConfig{Source: source, Writer: writer}
	return cfg, cfg.Validate()
}
