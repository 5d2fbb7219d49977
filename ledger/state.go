package ledger

import (
	"context"
	"encoding"
	"errors"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/store"
)

func getRecord(ctx context.Context, tx store.Tx, key address.Address, out encoding.BinaryUnmarshaler, missing error) error {
	raw, err := tx.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return errorsmod.Wrapf(missing, "no record at %s", key)
	}
	if err != nil {
		return err
	}
	return out.UnmarshalBinary(raw)
}

func createRecord(ctx context.Context, tx store.Tx, key address.Address, rec encoding.BinaryMarshaler) error {
	raw, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	if err := tx.Insert(ctx, key, raw); err != nil {
		if errors.Is(err, store.ErrExists) {
			return errorsmod.Wrapf(types.ErrAlreadyExists, "record at %s", key)
		}
		return err
	}
	return nil
}

func putRecord(ctx context.Context, tx store.Tx, key address.Address, rec encoding.BinaryMarshaler) error {
	raw, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.Put(ctx, key, raw)
}

func loadConfig(ctx context.Context, tx store.Tx, key address.Address) (types.GlobalConfig, error) {
	var cfg types.GlobalConfig
	err := getRecord(ctx, tx, key, &cfg, types.ErrConfigNotFound)
	return cfg, err
}

func loadVault(ctx context.Context, tx store.Tx, key address.Address) (types.Vault, error) {
	var v types.Vault
	err := getRecord(ctx, tx, key, &v, types.ErrVaultNotFound)
	return v, err
}

func loadPosition(ctx context.Context, tx store.Tx, key address.Address) (types.Position, error) {
	var p types.Position
	err := getRecord(ctx, tx, key, &p, types.ErrPositionNotFound)
	return p, err
}
