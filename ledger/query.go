package ledger

import (
	"context"
	"errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/store"
)

// Config returns the global config.
func (e *Engine) Config(ctx context.Context) (types.GlobalConfig, error) {
	key, err := e.deriver.Config()
	if err != nil {
		return types.GlobalConfig{}, err
	}
	var cfg types.GlobalConfig
	err = e.store.View(ctx, func(tx store.Tx) error {
		cfg, err = loadConfig(ctx, tx, key)
		return err
	})
	return cfg, err
}

// Vault returns owner's vault.
func (e *Engine) Vault(ctx context.Context, owner address.Address) (types.Vault, error) {
	key, err := e.deriver.Vault(owner)
	if err != nil {
		return types.Vault{}, err
	}
	var vault types.Vault
	err = e.store.View(ctx, func(tx store.Tx) error {
		vault, err = loadVault(ctx, tx, key)
		return err
	})
	return vault, err
}

// Position returns owner's position id.
func (e *Engine) Position(ctx context.Context, owner address.Address, id uint64) (types.Position, error) {
	key, err := e.deriver.Position(owner, id)
	if err != nil {
		return types.Position{}, err
	}
	var position types.Position
	err = e.store.View(ctx, func(tx store.Tx) error {
		position, err = loadPosition(ctx, tx, key)
		return err
	})
	return position, err
}

// PositionRange returns owner's positions with ids in [start, end). Ids
// that were never assigned are skipped.
func (e *Engine) PositionRange(ctx context.Context, owner address.Address, start, end uint64) ([]types.Position, error) {
	if end <= start {
		return nil, nil
	}
	keys := make([]address.Address, 0, end-start)
	for id := start; id < end; id++ {
		key, err := e.deriver.Position(owner, id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	var out []types.Position
	err := e.store.View(ctx, func(tx store.Tx) error {
		for _, key := range keys {
			raw, err := tx.Get(ctx, key)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var p types.Position
			if err := p.UnmarshalBinary(raw); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// Positions returns every position owner has opened, in id order.
func (e *Engine) Positions(ctx context.Context, owner address.Address) ([]types.Position, error) {
	vault, err := e.Vault(ctx, owner)
	if err != nil {
		return nil, err
	}
	return e.PositionRange(ctx, owner, 0, vault.NextPositionID)
}
