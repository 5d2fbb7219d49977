package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rexbrahh/lp-vault/events"
	natsx "github.com/rexbrahh/lp-vault/sinks/nats"
)

type rowWriter interface {
	WriteEvents(ctx context.Context, rows []EventRow) error
	WritePositions(ctx context.Context, rows []PositionRow) error
	Flush(ctx context.Context) error
}

// processor maps ledger events to table rows. Pools are only carried on
// position.opened, so the last seen pool per position is remembered.
type processor struct {
	writer    rowWriter
	snapshots bool
	pools     map[positionKey]string
}

type positionKey struct {
	owner string
	id    uint64
}

func newProcessor(writer rowWriter, snapshots bool) *processor {
	return &processor{
		writer:    writer,
		snapshots: snapshots,
		pools:     make(map[positionKey]string),
	}
}

func (p *processor) handleEvent(ctx context.Context, evt events.Event) error {
	ts := time.Unix(evt.Timestamp, 0).UTC()
	row := EventRow{
		EventID:         evt.ID,
		Kind:            string(evt.Kind),
		Owner:           evt.Owner.String(),
		PositionID:      evt.PositionID,
		Protocol:        evt.Protocol,
		InitialTVL:      evt.InitialTVL,
		FeePaid:         evt.FeePaid,
		TVL:             evt.TVL,
		FeesClaimed:     evt.FeesClaimed,
		TotalCompounded: evt.TotalCompounded,
		Revision:        evt.Revision,
		Timestamp:       ts,
	}
	if !evt.Attribution.IsZero() {
		row.Attribution = evt.Attribution.String()
	}
	if !evt.Pool.IsZero() {
		row.Pool = evt.Pool.String()
	}
	if err := p.writer.WriteEvents(ctx, []EventRow{row}); err != nil {
		return err
	}

	if !p.snapshots || !evt.IsPositionEvent() {
		return nil
	}
	key := positionKey{owner: row.Owner, id: evt.PositionID}
	if row.Pool != "" {
		p.pools[key] = row.Pool
	}
	snapshot := PositionRow{
		Owner:           row.Owner,
		PositionID:      evt.PositionID,
		Pool:            p.pools[key],
		TVL:             evt.TVL,
		FeesClaimed:     evt.FeesClaimed,
		TotalCompounded: evt.TotalCompounded,
		Closed:          evt.Kind == events.KindPositionClosed,
		Revision:        evt.Revision,
		Timestamp:       ts,
	}
	if snapshot.Closed {
		delete(p.pools, key)
	}
	return p.writer.WritePositions(ctx, []PositionRow{snapshot})
}

// Service consumes ledger events from JetStream into ClickHouse.
type Service struct {
	cfg       ServiceConfig
	conn      *nats.Conn
	sub       *nats.Subscription
	processor *processor
	logger    zerolog.Logger
}

func NewService(ctx context.Context, cfg ServiceConfig, logger zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	writer, err := NewWithConfig(ctx, cfg.Writer)
	if err != nil {
		return nil, err
	}
	if err := writer.EnsureSchema(ctx); err != nil {
		_ = writer.Close(ctx)
		return nil, err
	}

	conn, sub, err := natsx.Subscribe(cfg.Source)
	if err != nil {
		_ = writer.Close(ctx)
		return nil, err
	}

	log := logger.With().Str("component", "clickhouse_sink").Logger()
	log.Info().
		Str("subject", cfg.Source.FilterSubject()).
		Bool("snapshots", cfg.Snapshots).
		Msg("consuming ledger events")
	return &Service{
		cfg:       cfg,
		conn:      conn,
		sub:       sub,
		processor: newProcessor(writer, cfg.Snapshots),
		logger:    log,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	flushTicker := time.NewTicker(s.cfg.Writer.FlushInterval)
	defer flushTicker.Stop()
	defer s.conn.Drain()
	defer s.processor.writer.Flush(context.Background())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-flushTicker.C:
			if err := s.processor.writer.Flush(ctx); err != nil {
				return err
			}
		default:
		}

		msgs, err := s.sub.Fetch(s.cfg.Source.PullBatch, nats.MaxWait(s.cfg.Source.PullTimeout))
		if errors.Is(err, nats.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch messages: %w", err)
		}

		for _, msg := range msgs {
			evt, err := natsx.DecodeEvent(msg.Data)
			if err != nil {
				s.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable event")
				_ = msg.Term()
				continue
			}
			if err := s.processor.handleEvent(ctx, evt); err != nil {
				_ = msg.Nak()
				return err
			}
			_ = msg.Ack()
		}
	}
}
