package natsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	nats "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/observability"
)

// Option customises a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger.With().Str("component", "nats_publisher").Logger()
	}
}

// WithMetricsRegisterer registers publisher metrics on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(p *Publisher) {
		p.reg = reg
	}
}

// Publisher emits ledger events to JetStream. It implements events.Sink.
type Publisher struct {
	cfg      Config
	nc       *nats.Conn
	js       nats.JetStreamContext
	logger   zerolog.Logger
	reg      prometheus.Registerer
	acks     *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var _ events.Sink = (*Publisher)(nil)

// NewPublisher validates configuration and connects to NATS.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Publisher{cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.reg == nil {
		p.reg = prometheus.NewRegistry()
	}
	p.acks = promauto.With(p.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: observability.Namespace,
		Name:      observability.MetricPublisherNATSAcksTotal,
		Help:      "Events acknowledged by JetStream.",
	}, []string{"kind"})
	p.failures = promauto.With(p.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: observability.Namespace,
		Name:      observability.MetricPublisherNATSErrors,
		Help:      "Events JetStream failed to acknowledge.",
	}, []string{"kind"})

	nc, err := nats.Connect(cfg.URL, nats.Name("lp-vault-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	p.nc = nc
	p.js = js
	return p, nil
}

// EnsureStream creates the configured stream over <SubjectRoot>.> when it
// does not exist yet. An existing stream keeps its settings.
func (p *Publisher) EnsureStream() error {
	_, err := p.js.StreamInfo(p.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", p.cfg.Stream, err)
	}
	_, err = p.js.AddStream(p.cfg.StreamConfig())
	if err != nil {
		return fmt.Errorf("add stream %s: %w", p.cfg.Stream, err)
	}
	p.logger.Info().
		Str("stream", p.cfg.Stream).
		Dur("duplicate_window", p.cfg.DuplicateWindow).
		Msg("created jetstream stream")
	return nil
}

// Subject returns the subject an event kind is published on.
func (p *Publisher) Subject(kind events.Kind) string {
	return p.cfg.Subject(kind)
}

// Emit publishes evt as JSON. The event id doubles as the JetStream
// de-duplication id.
func (p *Publisher) Emit(ctx context.Context, evt events.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(evt.Kind))
	msg.Header.Set(nats.MsgIdHdr, evt.ID)
	msg.Data = payload

	ctx, cancel := p.WithTimeout(ctx)
	defer cancel()
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		p.failures.WithLabelValues(string(evt.Kind)).Inc()
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	p.acks.WithLabelValues(string(evt.Kind)).Inc()
	return nil
}

// WithTimeout returns a context with the publisher's timeout applied.
func (p *Publisher) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := p.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// Config exposes a copy of the publisher configuration.
func (p *Publisher) Config() Config {
	return p.cfg
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
