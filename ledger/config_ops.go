package ledger

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/store"
)

// InitializeConfigParams carries the one-time config initialisation.
type InitializeConfigParams struct {
	Admin         address.Address
	ConfigAddress address.Address
	Treasury      address.Address
	BuybackWallet address.Address
	FeeBps        uint16
	ReferralPct   uint8
	BuybackPct    uint8
	TreasuryPct   uint8

	// Seed, when set, runs in the same transaction after the config is
	// written. A Seed error rolls the config back.
	Seed func(ctx context.Context, tx store.Tx) error
}

// InitializeConfig creates the global config singleton. Admin becomes the
// only identity allowed to update it.
func (e *Engine) InitializeConfig(ctx context.Context, p InitializeConfigParams) (types.GlobalConfig, error) {
	cfg := types.GlobalConfig{
		Admin:         p.Admin,
		Treasury:      p.Treasury,
		BuybackWallet: p.BuybackWallet,
		FeeBps:        p.FeeBps,
		ReferralPct:   p.ReferralPct,
		BuybackPct:    p.BuybackPct,
		TreasuryPct:   p.TreasuryPct,
	}
	err := e.execute(ctx, "initialize_config", func(ctx context.Context, tx store.Tx, _ int64) ([]events.Event, error) {
		if err := cfg.ValidateFees(); err != nil {
			return nil, err
		}
		if err := e.verify(p.ConfigAddress, "config", address.ConfigSeeds()...); err != nil {
			return nil, err
		}
		if err := createRecord(ctx, tx, p.ConfigAddress, cfg); err != nil {
			return nil, err
		}
		if p.Seed != nil {
			return nil, p.Seed(ctx, tx)
		}
		return nil, nil
	})
	if err != nil {
		return types.GlobalConfig{}, err
	}
	e.logger.Info().Stringer("admin", p.Admin).Uint16("fee_bps", p.FeeBps).Msg("config initialized")
	return cfg, nil
}

// UpdateConfigParams overwrites every mutable config field.
type UpdateConfigParams struct {
	Caller        address.Address
	ConfigAddress address.Address
	Treasury      address.Address
	BuybackWallet address.Address
	FeeBps        uint16
	ReferralPct   uint8
	BuybackPct    uint8
	TreasuryPct   uint8
	Paused        bool
}

// UpdateConfig replaces the config fields atomically. Only the admin may
// call it and the admin itself is not changeable.
func (e *Engine) UpdateConfig(ctx context.Context, p UpdateConfigParams) (types.GlobalConfig, error) {
	var updated types.GlobalConfig
	err := e.execute(ctx, "update_config", func(ctx context.Context, tx store.Tx, _ int64) ([]events.Event, error) {
		candidate := types.GlobalConfig{
			Treasury:      p.Treasury,
			BuybackWallet: p.BuybackWallet,
			FeeBps:        p.FeeBps,
			ReferralPct:   p.ReferralPct,
			BuybackPct:    p.BuybackPct,
			TreasuryPct:   p.TreasuryPct,
			Paused:        p.Paused,
		}
		if err := candidate.ValidateFees(); err != nil {
			return nil, err
		}
		if err := e.verify(p.ConfigAddress, "config", address.ConfigSeeds()...); err != nil {
			return nil, err
		}
		current, err := loadConfig(ctx, tx, p.ConfigAddress)
		if err != nil {
			return nil, err
		}
		if current.Admin != p.Caller {
			return nil, errorsmod.Wrapf(types.ErrUnauthorized, "%s is not the config admin", p.Caller)
		}
		candidate.Admin = current.Admin
		updated = candidate
		return nil, putRecord(ctx, tx, p.ConfigAddress, updated)
	})
	if err != nil {
		return types.GlobalConfig{}, err
	}
	e.logger.Info().Uint16("fee_bps", updated.FeeBps).Bool("paused", updated.Paused).Msg("config updated")
	return updated, nil
}
