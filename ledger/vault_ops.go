package ledger

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/store"
)

// CreateVaultParams opens a vault for Owner. Referrer may be address.Zero.
type CreateVaultParams struct {
	Owner        address.Address
	Attribution  address.Address
	Referrer     address.Address
	VaultAddress address.Address
}

// CreateVault creates Owner's vault record.
func (e *Engine) CreateVault(ctx context.Context, p CreateVaultParams) (types.Vault, error) {
	var vault types.Vault
	err := e.execute(ctx, "create_vault", func(ctx context.Context, tx store.Tx, now int64) ([]events.Event, error) {
		if err := e.verify(p.VaultAddress, "vault", address.VaultSeeds(p.Owner)...); err != nil {
			return nil, err
		}
		vault = types.NewVault(p.Owner, p.Attribution, p.Referrer, now)
		if err := createRecord(ctx, tx, p.VaultAddress, vault); err != nil {
			return nil, err
		}
		return []events.Event{events.VaultCreated(p.Owner, p.Attribution, now)}, nil
	})
	if err != nil {
		return types.Vault{}, err
	}
	e.logger.Info().Stringer("owner", p.Owner).Bool("referred", vault.HasReferrer()).Msg("vault created")
	return vault, nil
}

// CloseVaultParams closes Owner's vault.
type CloseVaultParams struct {
	Owner        address.Address
	VaultAddress address.Address
}

// CloseVault moves an Active vault without open positions to Closed.
func (e *Engine) CloseVault(ctx context.Context, p CloseVaultParams) (types.Vault, error) {
	var vault types.Vault
	err := e.execute(ctx, "close_vault", func(ctx context.Context, tx store.Tx, now int64) ([]events.Event, error) {
		if err := e.verify(p.VaultAddress, "vault", address.VaultSeeds(p.Owner)...); err != nil {
			return nil, err
		}
		var err error
		if vault, err = loadOwnedVault(ctx, tx, p.VaultAddress, p.Owner); err != nil {
			return nil, err
		}
		if err := vault.Close(now); err != nil {
			return nil, err
		}
		if err := putRecord(ctx, tx, p.VaultAddress, vault); err != nil {
			return nil, err
		}
		return []events.Event{events.VaultClosed(p.Owner, now)}, nil
	})
	if err != nil {
		return types.Vault{}, err
	}
	e.logger.Info().Stringer("owner", p.Owner).Msg("vault closed")
	return vault, nil
}

func loadOwnedVault(ctx context.Context, tx store.Tx, key, owner address.Address) (types.Vault, error) {
	vault, err := loadVault(ctx, tx, key)
	if err != nil {
		return types.Vault{}, err
	}
	if vault.Owner != owner {
		return types.Vault{}, errorsmod.Wrapf(types.ErrUnauthorized, "vault belongs to %s", vault.Owner)
	}
	return vault, nil
}
