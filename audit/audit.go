// Package audit reconciles a vault's open-position counter against the
// position records it has issued.
package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/observability"
)

// maxScanAttempts bounds rescans when the vault changes mid-audit.
const maxScanAttempts = 3

// ErrVaultChanged is returned when every scan raced a committed write.
var ErrVaultChanged = errors.New("vault changed during audit")

// Range is an inclusive-exclusive window of position ids.
type Range struct {
	Start uint64
	End   uint64
}

func (r Range) valid() bool {
	return r.End > r.Start
}

// Reader is the read model the auditor scans.
type Reader interface {
	Vault(ctx context.Context, owner address.Address) (types.Vault, error)
	PositionRange(ctx context.Context, owner address.Address, start, end uint64) ([]types.Position, error)
}

// Report summarises one audit pass.
type Report struct {
	Owner           address.Address `json:"owner"`
	NextPositionID  uint64          `json:"next_position_id"`
	ActivePositions uint32          `json:"active_positions"`
	Scanned         uint64          `json:"scanned"`
	Missing         uint64          `json:"missing"`
	Open            uint64          `json:"open"`
	Closed          uint64          `json:"closed"`
	OpenTVL         uint64          `json:"open_tvl"`
	Consistent      bool            `json:"consistent"`
}

// Option customises an Auditor.
type Option func(*Auditor)

// WithLogger sets the auditor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Auditor) {
		a.logger = logger.With().Str("component", "audit").Logger()
	}
}

// WithMetricsRegisterer registers the mismatch counter on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(a *Auditor) {
		a.mismatches = newMismatchCounter(reg)
	}
}

// Auditor scans position records in batches across a worker pool.
type Auditor struct {
	cfg        Config
	reader     Reader
	logger     zerolog.Logger
	mismatches prometheus.Counter
}

// New creates an auditor with the provided configuration and reader.
func New(cfg Config, reader Reader, opts ...Option) (*Auditor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, errors.New("reader must not be nil")
	}
	a := &Auditor{cfg: cfg, reader: reader, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.mismatches == nil {
		a.mismatches = newMismatchCounter(nil)
	}
	return a, nil
}

// Run audits owner's vault. The vault is read again after the scan and the
// pass is repeated when a write committed in between, so counts in a
// report always come from one vault state.
func (a *Auditor) Run(ctx context.Context, owner address.Address) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	for attempt := 1; attempt <= maxScanAttempts; attempt++ {
		vault, err := a.reader.Vault(ctx, owner)
		if err != nil {
			return Report{}, err
		}
		report, err := a.scan(ctx, owner, vault)
		if err != nil {
			return Report{}, err
		}
		after, err := a.reader.Vault(ctx, owner)
		if err != nil {
			return Report{}, err
		}
		if after != vault {
			a.logger.Debug().Stringer("owner", owner).Int("attempt", attempt).Msg("vault changed during scan")
			continue
		}

		report.Consistent = report.Missing == 0 && report.Open == uint64(report.ActivePositions)
		if !report.Consistent {
			a.mismatches.Inc()
			a.logger.Warn().
				Stringer("owner", owner).
				Uint32("active_positions", report.ActivePositions).
				Uint64("open", report.Open).
				Uint64("missing", report.Missing).
				Msg("vault counters disagree with position records")
		}
		return report, nil
	}
	return Report{}, fmt.Errorf("%w: %s after %d attempts", ErrVaultChanged, owner, maxScanAttempts)
}

// scan tallies the positions issued by vault across the worker pool.
func (a *Auditor) scan(ctx context.Context, owner address.Address, vault types.Vault) (Report, error) {
	report := Report{
		Owner:           owner,
		NextPositionID:  vault.NextPositionID,
		ActivePositions: vault.ActivePositions,
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	workCh := make(chan Range)

	// Producer: slice [0, next_position_id) into batches.
	g.Go(func() error {
		defer close(workCh)

		limit := vault.NextPositionID
		for start := uint64(0); start < limit; {
			end, _ := addWithOverflow(start, a.cfg.BatchSize)
			if end > limit {
				end = limit
			}
			rng := Range{Start: start, End: end}
			if !rng.valid() {
				return fmt.Errorf("invalid range produced: start=%d end=%d", start, end)
			}

			select {
			case workCh <- rng:
			case <-ctx.Done():
				return ctx.Err()
			}
			start = end
		}
		return nil
	})

	for i := 0; i < a.cfg.Concurrency; i++ {
		g.Go(func() error {
			for rng := range workCh {
				positions, err := a.reader.PositionRange(ctx, owner, rng.Start, rng.End)
				if err != nil {
					return fmt.Errorf("positions %d-%d: %w", rng.Start, rng.End, err)
				}

				var open, closed, tvl uint64
				for _, p := range positions {
					switch p.Status {
					case types.PositionOpen:
						open++
						tvl = saturatingAdd(tvl, p.CurrentTVL)
					case types.PositionClosed:
						closed++
					}
				}

				mu.Lock()
				report.Scanned += rng.End - rng.Start
				report.Missing += rng.End - rng.Start - uint64(len(positions))
				report.Open += open
				report.Closed += closed
				report.OpenTVL = saturatingAdd(report.OpenTVL, tvl)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return Report{}, context.Canceled
		}
		return Report{}, err
	}

	return report, nil
}

// Config exposes a copy of the auditor config.
func (a *Auditor) Config() Config {
	return a.cfg
}

func newMismatchCounter(reg prometheus.Registerer) prometheus.Counter {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: observability.Namespace,
		Name:      observability.MetricAuditMismatches,
		Help:      "Audits whose vault counters disagreed with position records.",
	})
}

func addWithOverflow(start uint64, delta uint64) (uint64, bool) {
	if delta == 0 {
		return start, false
	}
	if math.MaxUint64-start < delta {
		return math.MaxUint64, true
	}
	return start + delta, false
}

func saturatingAdd(a, b uint64) uint64 {
	if math.MaxUint64-a < b {
		return math.MaxUint64
	}
	return a + b
}
