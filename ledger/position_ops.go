package ledger

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/fees"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/payments"
	"github.com/rexbrahh/lp-vault/store"
)

// OpenPositionParams opens the next position in Owner's vault.
// PositionAddress must be derived from the vault's next position id.
type OpenPositionParams struct {
	Owner           address.Address
	VaultAddress    address.Address
	PositionAddress address.Address
	ConfigAddress   address.Address
	Pool            address.Address
	BaseMint        address.Address
	QuoteMint       address.Address
	InitialTVL      uint64
	Protocol        types.Protocol
	Strategy        types.Strategy
}

// OpenPosition charges the open fee, records the position and books it on
// the vault. Fee destinations come from the stored config and vault, never
// from the caller.
func (e *Engine) OpenPosition(ctx context.Context, p OpenPositionParams) (types.Position, error) {
	var (
		position types.Position
		split    fees.Split
	)
	err := e.execute(ctx, "open_position", func(ctx context.Context, tx store.Tx, now int64) ([]events.Event, error) {
		if err := e.verify(p.ConfigAddress, "config", address.ConfigSeeds()...); err != nil {
			return nil, err
		}
		cfg, err := loadConfig(ctx, tx, p.ConfigAddress)
		if err != nil {
			return nil, err
		}
		if cfg.Paused {
			return nil, types.ErrProgramPaused
		}

		if err := e.verify(p.VaultAddress, "vault", address.VaultSeeds(p.Owner)...); err != nil {
			return nil, err
		}
		vault, err := loadOwnedVault(ctx, tx, p.VaultAddress, p.Owner)
		if err != nil {
			return nil, err
		}
		if err := vault.RequireActive(); err != nil {
			return nil, err
		}

		if !p.Protocol.Valid() {
			return nil, errorsmod.Wrapf(types.ErrInvalidProtocol, "protocol %d", uint8(p.Protocol))
		}
		if !p.Strategy.Valid() {
			return nil, errorsmod.Wrapf(types.ErrInvalidStrategy, "strategy %d", uint8(p.Strategy))
		}

		positionID := vault.NextPositionID
		if err := e.verify(p.PositionAddress, "position", address.PositionSeeds(p.Owner, positionID)...); err != nil {
			return nil, err
		}

		fee, err := fees.ComputeFee(p.InitialTVL, cfg.FeeBps)
		if err != nil {
			return nil, errorsmod.Wrap(types.ErrArithmeticOverflow, err.Error())
		}
		if split, err = fees.SplitFee(fee, cfg.ReferralPct, cfg.BuybackPct, vault.HasReferrer()); err != nil {
			return nil, errorsmod.Wrap(types.ErrInvalidFeePercentages, err.Error())
		}

		if err := vault.RecordPositionOpened(fee, p.InitialTVL, now); err != nil {
			return nil, err
		}

		transfers := make([]payments.Transfer, 0, 3)
		if split.Referral > 0 {
			transfers = append(transfers, payments.Transfer{From: p.Owner, To: vault.Referrer, Amount: split.Referral, Memo: "referral"})
		}
		transfers = append(transfers,
			payments.Transfer{From: p.Owner, To: cfg.BuybackWallet, Amount: split.Buyback, Memo: "buyback"},
			payments.Transfer{From: p.Owner, To: cfg.Treasury, Amount: split.Treasury, Memo: "treasury"},
		)
		if err := e.payments.Apply(ctx, tx, transfers); err != nil {
			return nil, err
		}

		position = types.Position{
			Owner:           p.Owner,
			Pool:            p.Pool,
			BaseMint:        p.BaseMint,
			QuoteMint:       p.QuoteMint,
			PositionID:      positionID,
			InitialTVL:      p.InitialTVL,
			CurrentTVL:      p.InitialTVL,
			FeePaid:         fee,
			OpenedAt:        now,
			LastRebalanceAt: now,
			Protocol:        p.Protocol,
			Strategy:        p.Strategy,
			Status:          types.PositionOpen,
		}
		if err := createRecord(ctx, tx, p.PositionAddress, position); err != nil {
			return nil, err
		}
		if err := putRecord(ctx, tx, p.VaultAddress, vault); err != nil {
			return nil, err
		}
		return []events.Event{
			events.PositionOpened(p.Owner, p.Pool, positionID, p.InitialTVL, fee, uint8(p.Protocol), now),
		}, nil
	})
	if err != nil {
		return types.Position{}, err
	}
	e.metrics.addFees(split)
	e.logger.Info().
		Stringer("owner", p.Owner).
		Uint64("position_id", position.PositionID).
		Uint64("initial_tvl", position.InitialTVL).
		Uint64("fee", position.FeePaid).
		Msg("position opened")
	return position, nil
}

// UpdatePositionTVLParams resyncs an open position's values. The values are
// absolute and overwrite the stored ones.
type UpdatePositionTVLParams struct {
	Owner           address.Address
	PositionAddress address.Address
	PositionID      uint64
	NewTVL          uint64
	FeesClaimed     uint64
	TotalCompounded uint64
}

// UpdatePositionTVL overwrites the position's current values. No funds move.
func (e *Engine) UpdatePositionTVL(ctx context.Context, p UpdatePositionTVLParams) (types.Position, error) {
	var position types.Position
	err := e.execute(ctx, "update_position_tvl", func(ctx context.Context, tx store.Tx, now int64) ([]events.Event, error) {
		var err error
		if position, err = e.loadOpenPosition(ctx, tx, p.PositionAddress, p.Owner, p.PositionID); err != nil {
			return nil, err
		}
		position.CurrentTVL = p.NewTVL
		position.FeesClaimed = p.FeesClaimed
		position.TotalCompounded = p.TotalCompounded
		position.Touch(now)
		if err := putRecord(ctx, tx, p.PositionAddress, position); err != nil {
			return nil, err
		}
		return []events.Event{
			events.PositionUpdated(p.Owner, p.PositionID, p.NewTVL, p.FeesClaimed, p.TotalCompounded, now).AtRevision(position.Revision),
		}, nil
	})
	if err != nil {
		return types.Position{}, err
	}
	e.logger.Info().Stringer("owner", p.Owner).Uint64("position_id", p.PositionID).Uint64("tvl", p.NewTVL).Msg("position updated")
	return position, nil
}

// ClosePositionParams closes one of Owner's open positions.
type ClosePositionParams struct {
	Owner           address.Address
	VaultAddress    address.Address
	PositionAddress address.Address
	PositionID      uint64
}

// ClosePosition marks the position Closed and moves its current TVL from the
// vault's locked total to its withdrawals.
func (e *Engine) ClosePosition(ctx context.Context, p ClosePositionParams) (types.Position, error) {
	var position types.Position
	err := e.execute(ctx, "close_position", func(ctx context.Context, tx store.Tx, now int64) ([]events.Event, error) {
		if err := e.verify(p.VaultAddress, "vault", address.VaultSeeds(p.Owner)...); err != nil {
			return nil, err
		}
		var err error
		if position, err = e.loadOpenPosition(ctx, tx, p.PositionAddress, p.Owner, p.PositionID); err != nil {
			return nil, err
		}
		vault, err := loadOwnedVault(ctx, tx, p.VaultAddress, p.Owner)
		if err != nil {
			return nil, err
		}
		if err := vault.RequireActive(); err != nil {
			return nil, err
		}

		position.Status = types.PositionClosed
		position.Revision++
		vault.RecordPositionClosed(position.CurrentTVL, now)

		if err := putRecord(ctx, tx, p.PositionAddress, position); err != nil {
			return nil, err
		}
		if err := putRecord(ctx, tx, p.VaultAddress, vault); err != nil {
			return nil, err
		}
		return []events.Event{
			events.PositionClosed(p.Owner, p.PositionID, position.CurrentTVL, position.FeesClaimed, now).AtRevision(position.Revision),
		}, nil
	})
	if err != nil {
		return types.Position{}, err
	}
	e.logger.Info().Stringer("owner", p.Owner).Uint64("position_id", p.PositionID).Uint64("final_tvl", position.CurrentTVL).Msg("position closed")
	return position, nil
}

func (e *Engine) loadOpenPosition(ctx context.Context, tx store.Tx, key, owner address.Address, id uint64) (types.Position, error) {
	if err := e.verify(key, "position", address.PositionSeeds(owner, id)...); err != nil {
		return types.Position{}, err
	}
	position, err := loadPosition(ctx, tx, key)
	if err != nil {
		return types.Position{}, err
	}
	if err := position.RequireOwner(owner); err != nil {
		return types.Position{}, err
	}
	if err := position.RequireOpen(); err != nil {
		return types.Position{}, err
	}
	return position, nil
}
