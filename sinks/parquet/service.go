package parquet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	natsx "github.com/rexbrahh/lp-vault/sinks/nats"
)

// Service archives ledger events consumed from JetStream.
type Service struct {
	cfg       ServiceConfig
	conn      *nats.Conn
	sub       *nats.Subscription
	writer    *Writer
	flushTick *time.Ticker
	logger    zerolog.Logger
}

func NewService(ctx context.Context, cfg ServiceConfig, logger zerolog.Logger) (*Service, error) {
	writer, err := NewWriter(cfg.Writer)
	if err != nil {
		return nil, err
	}

	conn, sub, err := natsx.Subscribe(cfg.Source)
	if err != nil {
		return nil, err
	}

	log := logger.With().Str("component", "parquet_sink").Logger()
	log.Info().
		Str("subject", cfg.Source.FilterSubject()).
		Str("bucket", cfg.Writer.Bucket).
		Str("partition", string(cfg.Writer.Partition)).
		Msg("archiving ledger events")
	return &Service{
		cfg:       cfg,
		conn:      conn,
		sub:       sub,
		writer:    writer,
		flushTick: time.NewTicker(cfg.Writer.FlushInterval),
		logger:    log,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	defer s.flushTick.Stop()
	defer s.conn.Drain()
	defer s.writer.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.flushTick.C:
			if err := s.writer.Flush(ctx); err != nil {
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
			if err := s.writer.AppendEvent(ctx, evt); err != nil {
				_ = msg.Nak()
				return err
			}
			_ = msg.Ack()
		}
	}
}
