package parquet

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"missing bucket", func(c *Config) { c.Bucket = "" }, true},
		{"date partition", func(c *Config) { c.Partition = PartitionDate }, false},
		{"unknown partition", func(c *Config) { c.Partition = "hourly" }, true},
		{"empty prefix", func(c *Config) { c.Prefix = "" }, true},
		{"zero batch", func(c *Config) { c.BatchRows = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if DefaultConfig().Enabled() {
		t.Fatal("default config must not be enabled without storage settings")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(envEndpoint, "http://minio:9000")
	t.Setenv(envBucket, "lpvault-archive")
	t.Setenv(envAccessKey, "access")
	t.Setenv(envSecretKey, "secret")
	t.Setenv(envPrefix, "archive/")
	t.Setenv(envPartition, "date")
	t.Setenv(envPathStyle, "false")
	t.Setenv(envFlushIntervalS, "600")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Prefix != "archive/" || cfg.Partition != PartitionDate || cfg.PathStyle {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.FlushInterval != 10*time.Minute {
		t.Fatalf("unexpected flush interval %s", cfg.FlushInterval)
	}

	t.Setenv(envPathStyle, "maybe")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for malformed path style flag")
	}
}

func TestServiceConfigFromEnv(t *testing.T) {
	t.Setenv(envEndpoint, "http://minio:9000")
	t.Setenv(envBucket, "lpvault-archive")
	t.Setenv(envAccessKey, "access")
	t.Setenv(envSecretKey, "secret")
	t.Setenv("PARQUET_NATS_URL", "nats://localhost:4222")
	t.Setenv("PARQUET_NATS_STREAM", "LPVAULT")
	t.Setenv("PARQUET_FILTER", "position.closed")

	cfg, err := ServiceConfigFromEnv()
	if err != nil {
		t.Fatalf("ServiceConfigFromEnv() error = %v", err)
	}
	if cfg.Source.Durable != "parquet-sink" || cfg.Source.FilterSubject() != "lpvault.events.position.closed" {
		t.Fatalf("unexpected source %+v", cfg.Source)
	}
	if cfg.Writer.Partition != PartitionKindDate {
		t.Fatalf("unexpected partition %s", cfg.Writer.Partition)
	}

	t.Setenv("PARQUET_NATS_STREAM", "")
	if _, err := ServiceConfigFromEnv(); err == nil {
		t.Fatal("expected error without a stream")
	}
}
