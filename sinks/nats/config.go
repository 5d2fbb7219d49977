package natsx

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/rexbrahh/lp-vault/events"
)

const (
	defaultSubjectRoot     = "lpvault.events"
	defaultPublishTimeout  = 5 * time.Second
	defaultDuplicateWindow = 2 * time.Minute

	envNATSURL         = "NATS_URL"
	envNATSStream      = "NATS_STREAM"
	envNATSSubjectRoot = "NATS_SUBJECT_ROOT"
	envPublishTimeout  = "NATS_PUBLISH_TIMEOUT_MS"
	envDuplicateWindow = "NATS_DUPLICATE_WINDOW"
	envStreamMaxAge    = "NATS_STREAM_MAX_AGE"
	envStreamStorage   = "NATS_STREAM_STORAGE"
)

// Config captures the publisher connection and the stream it creates.
// Events land on <SubjectRoot>.<kind>.
type Config struct {
	URL            string
	Stream         string
	SubjectRoot    string
	PublishTimeout time.Duration

	// DuplicateWindow is how long JetStream remembers event ids. Replays of
	// a committed event inside the window are dropped.
	DuplicateWindow time.Duration
	// MaxAge bounds retention; zero keeps events forever.
	MaxAge  time.Duration
	Storage nats.StorageType
}

// DefaultConfig initialises Config with defaults for optional fields.
func DefaultConfig() Config {
	return Config{
		SubjectRoot:     defaultSubjectRoot,
		PublishTimeout:  defaultPublishTimeout,
		DuplicateWindow: defaultDuplicateWindow,
		Storage:         nats.FileStorage,
	}
}

// Validate ensures required fields are populated and durations are sane.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("NATS URL is required")
	}
	if c.Stream == "" {
		return fmt.Errorf("NATS stream is required")
	}
	if err := validateSubjectRoot(c.SubjectRoot); err != nil {
		return err
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be positive")
	}
	if c.DuplicateWindow <= 0 {
		return fmt.Errorf("duplicate window must be positive")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max age cannot be negative")
	}
	if c.MaxAge > 0 && c.DuplicateWindow > c.MaxAge {
		return fmt.Errorf("duplicate window %s exceeds max age %s", c.DuplicateWindow, c.MaxAge)
	}
	return nil
}

// Subject returns the subject an event kind is published on.
func (c Config) Subject(kind events.Kind) string {
	return c.SubjectRoot + "." + string(kind)
}

// StreamConfig describes the stream EnsureStream creates.
func (c Config) StreamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:       c.Stream,
		Subjects:   []string{c.SubjectRoot + ".>"},
		Storage:    c.Storage,
		Duplicates: c.DuplicateWindow,
		MaxAge:     c.MaxAge,
	}
}

// FromEnv constructs a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv(envNATSURL); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv(envNATSStream); v != "" {
		cfg.Stream = v
	}
	if v := os.Getenv(envNATSSubjectRoot); v != "" {
		cfg.SubjectRoot = v
	}
	if v := os.Getenv(envPublishTimeout); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPublishTimeout, err)
		}
		cfg.PublishTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv(envDuplicateWindow); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDuplicateWindow, err)
		}
		cfg.DuplicateWindow = d
	}
	if v := os.Getenv(envStreamMaxAge); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envStreamMaxAge, err)
		}
		cfg.MaxAge = d
	}
	switch v := strings.ToLower(os.Getenv(envStreamStorage)); v {
	case "", "file":
		cfg.Storage = nats.FileStorage
	case "memory":
		cfg.Storage = nats.MemoryStorage
	default:
		return Config{}, fmt.Errorf("invalid %s: %q", envStreamStorage, v)
	}
	return cfg, cfg.Validate()
}

func validateSubjectRoot(root string) error {
	if root == "" {
		return fmt.Errorf("subject root cannot be empty")
	}
	for _, token := range strings.Split(root, ".") {
		if token == "" || strings.ContainsAny(token, "*> ") {
			return fmt.Errorf("invalid subject root %q", root)
		}
	}
	return nil
}
