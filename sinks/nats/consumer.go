package natsx

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/rexbrahh/lp-vault/events"
)

// ConsumerConfig describes a durable pull consumer over the ledger stream.
// Sinks read their settings from <prefix>_* environment variables.
type ConsumerConfig struct {
	URL         string
	Stream      string
	SubjectRoot string
	Durable     string
	// Filter selects kinds under SubjectRoot, e.g. "position.>" or ">".
	Filter      string
	PullBatch   int
	PullTimeout time.Duration
	AckWait     time.Duration
	MaxDeliver  int
}

// DefaultConsumerConfig returns a consumer over every event kind.
func DefaultConsumerConfig(durable string) ConsumerConfig {
	return ConsumerConfig{
		SubjectRoot: defaultSubjectRoot,
		Durable:     durable,
		Filter:      ">",
		PullBatch:   256,
		PullTimeout: 500 * time.Millisecond,
		AckWait:     30 * time.Second,
		MaxDeliver:  -1,
	}
}

// Validate ensures required fields are populated.
func (c ConsumerConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("nats url is required")
	}
	if c.Stream == "" {
		return fmt.Errorf("nats stream is required")
	}
	if err := validateSubjectRoot(c.SubjectRoot); err != nil {
		return err
	}
	if c.Durable == "" {
		return fmt.Errorf("consumer name is required")
	}
	if err := validateFilter(c.Filter); err != nil {
		return err
	}
	if c.PullBatch <= 0 {
		return fmt.Errorf("pull batch must be positive")
	}
	if c.PullTimeout <= 0 {
		return fmt.Errorf("pull timeout must be positive")
	}
	if c.AckWait <= 0 {
		return fmt.Errorf("ack wait must be positive")
	}
	if c.MaxDeliver == 0 || c.MaxDeliver < -1 {
		return fmt.Errorf("max deliver must be positive or -1")
	}
	return nil
}

// FilterSubject is the subject the consumer binds to.
func (c ConsumerConfig) FilterSubject() string {
	return c.SubjectRoot + "." + c.Filter
}

// Matches reports whether kind falls under the consumer filter.
func (c ConsumerConfig) Matches(kind events.Kind) bool {
	want := strings.Split(c.Filter, ".")
	got := strings.Split(string(kind), ".")
	for i, token := range want {
		if token == ">" {
			return len(got) > i
		}
		if i >= len(got) || (token != "*" && token != got[i]) {
			return false
		}
	}
	return len(got) == len(want)
}

// ConsumerConfigFromEnv loads a consumer config from <prefix>_NATS_URL,
// <prefix>_NATS_STREAM, <prefix>_SUBJECT_ROOT, <prefix>_CONSUMER,
// <prefix>_FILTER, <prefix>_PULL_BATCH, <prefix>_PULL_TIMEOUT_MS,
// <prefix>_ACK_WAIT_MS and <prefix>_MAX_DELIVER.
func ConsumerConfigFromEnv(prefix, durable string) (ConsumerConfig, error) {
	cfg := DefaultConsumerConfig(durable)
	env := func(name string) string { return os.Getenv(prefix + "_" + name) }

	cfg.URL = env("NATS_URL")
	cfg.Stream = env("NATS_STREAM")
	if v := env("SUBJECT_ROOT"); v != "" {
		cfg.SubjectRoot = v
	}
	if v := env("CONSUMER"); v != "" {
		cfg.Durable = v
	}
	if v := env("FILTER"); v != "" {
		cfg.Filter = v
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"PULL_BATCH", &cfg.PullBatch},
		{"MAX_DELIVER", &cfg.MaxDeliver},
	}
	for _, it := range ints {
		if v := env(it.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return ConsumerConfig{}, fmt.Errorf("invalid %s_%s: %q", prefix, it.name, v)
			}
			*it.dst = n
		}
	}
	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"PULL_TIMEOUT_MS", &cfg.PullTimeout},
		{"ACK_WAIT_MS", &cfg.AckWait},
	}
	for _, it := range durations {
		if v := env(it.name); v != "" {
			ms, err := strconv.Atoi(v)
			if err != nil || ms <= 0 {
				return ConsumerConfig{}, fmt.Errorf("invalid %s_%s: %q", prefix, it.name, v)
			}
			*it.dst = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg, cfg.Validate()
}

// Subscribe connects and binds a manual-ack pull subscription for cfg.
func Subscribe(cfg ConsumerConfig) (*nats.Conn, *nats.Subscription, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("lp-vault-"+cfg.Durable))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	sub, err := js.PullSubscribe(cfg.FilterSubject(), cfg.Durable,
		nats.BindStream(cfg.Stream),
		nats.ManualAck(),
		nats.AckWait(cfg.AckWait),
		nats.MaxDeliver(cfg.MaxDeliver),
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("pull subscribe %s: %w", cfg.FilterSubject(), err)
	}
	return conn, sub, nil
}

// DecodeEvent parses a published event, rejecting payloads without a kind
// or id.
func DecodeEvent(data []byte) (events.Event, error) {
	var evt events.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if evt.Kind == "" || evt.ID == "" {
		return events.Event{}, fmt.Errorf("event missing kind or id")
	}
	return evt, nil
}

func validateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("subject filter cannot be empty")
	}
	tokens := strings.Split(filter, ".")
	for i, token := range tokens {
		switch {
		case token == "":
			return fmt.Errorf("invalid subject filter %q", filter)
		case token == ">" && i != len(tokens)-1:
			return fmt.Errorf("'>' must be the last token in %q", filter)
		case token != ">" && token != "*" && strings.ContainsAny(token, "*> "):
			return fmt.Errorf("invalid subject filter %q", filter)
		}
	}
	return nil
}
