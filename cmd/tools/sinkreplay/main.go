package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/logger"
	natsx "github.com/rexbrahh/lp-vault/sinks/nats"
)

type fixture struct {
	events.Event
	SleepMillis int `json:"sleep_ms"`
}

func main() {
	inputPath := flag.String("input", "fixtures/ledger_events.json", "path to event fixture (JSON)")
	natsURL := flag.String("nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	stream := flag.String("stream", "LPVAULT", "JetStream stream name")
	subjectRoot := flag.String("subject-root", "lpvault.events", "subject root for publishing")
	publishDelay := flag.Int("delay-ms", 0, "delay in milliseconds between events")
	flag.Parse()

	log := logger.InitializeFromEnv().With().Str("service", "sinkreplay").Logger()

	fixtures, err := loadFixtures(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load fixtures")
	}

	cfg := natsx.DefaultConfig()
	cfg.URL = *natsURL
	cfg.Stream = *stream
	cfg.SubjectRoot = *subjectRoot

	pub, err := natsx.NewPublisher(cfg, natsx.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("connect publisher")
	}
	defer pub.Close()
	if err := pub.EnsureStream(); err != nil {
		log.Fatal().Err(err).Msg("ensure stream")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for idx, fx := range fixtures {
		if ctx.Err() != nil {
			log.Fatal().Int("index", idx).Msg("context cancelled before event")
		}
		if err := pub.Emit(ctx, fx.Event); err != nil {
			log.Fatal().Err(err).Int("index", idx).Str("kind", string(fx.Kind)).Msg("publish event")
		}
		delay := fx.SleepMillis
		if delay == 0 {
			delay = *publishDelay
		}
		if delay > 0 {
			time.Sleep(time.Duration(delay) * time.Millisecond)
		}
	}

	log.Info().Int("count", len(fixtures)).Msg("published events")
}

// loadFixtures decodes a JSON array of events. Events without an id get
// their deterministic one.
func loadFixtures(path string) ([]fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var fixtures []fixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i := range fixtures {
		if fixtures[i].Kind == "" {
			return nil, fmt.Errorf("fixture %d: kind is required", i)
		}
		if fixtures[i].ID == "" {
			fixtures[i].Event = events.WithID(fixtures[i].Event)
		}
	}
	return fixtures, nil
}
