// Package ledger implements the vault and position lifecycles on top of a
// transactional record store. Each exported command runs in exactly one
// store transaction, reads the clock once, and emits its events only after
// the transaction commits.
package ledger

import (
	"context"
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/payments"
	"github.com/rexbrahh/lp-vault/store"
)

// Payments applies value transfers inside the command's store transaction.
type Payments interface {
	Apply(ctx context.Context, tx store.Tx, transfers []payments.Transfer) error
}

// Clock returns the current time.
type Clock func() time.Time

// Option customises Engine behaviour.
type Option func(*Engine)

// Engine executes ledger commands.
type Engine struct {
	store    store.Store
	payments Payments
	deriver  *address.Deriver
	sink     events.Sink
	clock    Clock
	logger   zerolog.Logger
	metrics  *engineMetrics
}

// New wires an Engine. The sink defaults to events.Discard, the clock to
// time.Now and the logger to a no-op logger.
func New(st store.Store, pay Payments, deriver *address.Deriver, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		payments: pay,
		deriver:  deriver,
		sink:     events.Discard,
		clock:    time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.metrics == nil {
		e.metrics = newEngineMetrics(nil)
	}
	return e
}

// WithSink sets the event sink.
func WithSink(sink events.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "ledger").Logger()
	}
}

// WithMetricsRegisterer registers engine metrics on reg. When omitted an
// isolated registry is used.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metrics = newEngineMetrics(reg)
	}
}

// Deriver exposes the address deriver the engine validates against.
func (e *Engine) Deriver() *address.Deriver {
	return e.deriver
}

// Store exposes the underlying record store.
func (e *Engine) Store() store.Store {
	return e.store
}

// commandFunc runs inside the transaction and returns events to emit after
// commit.
type commandFunc func(ctx context.Context, tx store.Tx, now int64) ([]events.Event, error)

func (e *Engine) execute(ctx context.Context, op string, fn commandFunc) error {
	started := time.Now()
	now := e.clock().Unix()

	var emitted []events.Event
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		emitted, err = fn(ctx, tx, now)
		return err
	})
	e.metrics.observe(op, started, err)
	if err != nil {
		e.logger.Debug().Err(err).Str("op", op).Msg("command rejected")
		return err
	}

	for _, evt := range emitted {
		if err := e.sink.Emit(ctx, evt); err != nil {
			e.metrics.emitErrors.WithLabelValues(string(evt.Kind)).Inc()
			e.logger.Warn().Err(err).Str("event_id", evt.ID).Str("kind", string(evt.Kind)).Msg("event emit failed")
		}
	}
	return nil
}

// verify rejects supplied unless it is the derived address for seeds.
func (e *Engine) verify(supplied address.Address, what string, seeds ...[]byte) error {
	if _, err := e.deriver.Verify(supplied, seeds...); err != nil {
		if errors.Is(err, address.ErrMismatch) {
			return errorsmod.Wrapf(types.ErrInvalidDerivedAddress, "%s: %v", what, err)
		}
		return err
	}
	return nil
}
