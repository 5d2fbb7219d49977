// Package payments moves lamport balances between identities. Balances are
// ledger records, so transfers join the caller's store transaction and roll
// back with it.
package payments

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/store"
)

// Transfer moves Amount from From to To.
type Transfer struct {
	From   address.Address
	To     address.Address
	Amount uint64
	Memo   string
}

// Balance is the stored balance record of one identity.
type Balance struct {
	Identity address.Address
	Amount   uint64
}

const balanceBodySize = address.Size + 8 + 32

// MarshalBinary encodes the fixed-width balance layout.
func (b Balance) MarshalBinary() ([]byte, error) {
	e := types.NewEncoder(types.KindBalance, balanceBodySize)
	e.Address(b.Identity)
	e.Uint64(b.Amount)
	e.Skip(32)
	return e.Bytes(), nil
}

// UnmarshalBinary decodes the fixed-width balance layout.
func (b *Balance) UnmarshalBinary(data []byte) error {
	d, err := types.NewDecoder(data, types.KindBalance, balanceBodySize)
	if err != nil {
		return err
	}
	b.Identity = d.Address()
	b.Amount = d.Uint64()
	return nil
}

// Bank applies transfers against balance records.
type Bank struct {
	deriver *address.Deriver
}

// NewBank returns a Bank storing balances at addresses derived by deriver.
func NewBank(deriver *address.Deriver) *Bank {
	return &Bank{deriver: deriver}
}

// Apply executes transfers in order. The first failure aborts and is
// returned; the enclosing transaction discards any earlier transfer.
func (b *Bank) Apply(ctx context.Context, tx store.Tx, transfers []Transfer) error {
	for _, t := range transfers {
		if t.Amount == 0 {
			continue
		}
		if err := b.debit(ctx, tx, t.From, t.Amount); err != nil {
			return errorsmod.Wrapf(err, "transfer %q", t.Memo)
		}
		if err := b.credit(ctx, tx, t.To, t.Amount); err != nil {
			return errorsmod.Wrapf(err, "transfer %q", t.Memo)
		}
	}
	return nil
}

// Deposit credits amount to identity, creating its balance record if needed.
func (b *Bank) Deposit(ctx context.Context, tx store.Tx, identity address.Address, amount uint64) error {
	return b.credit(ctx, tx, identity, amount)
}

// Balance returns identity's balance, zero when no record exists.
func (b *Bank) Balance(ctx context.Context, tx store.Tx, identity address.Address) (uint64, error) {
	bal, _, err := b.load(ctx, tx, identity)
	return bal.Amount, err
}

func (b *Bank) debit(ctx context.Context, tx store.Tx, identity address.Address, amount uint64) error {
	bal, exists, err := b.load(ctx, tx, identity)
	if err != nil {
		return err
	}
	if !exists || bal.Amount < amount {
		return errorsmod.Wrapf(types.ErrInsufficientFunds, "%s holds %d, needs %d", identity, bal.Amount, amount)
	}
	bal.Amount -= amount
	return b.save(ctx, tx, bal, true)
}

func (b *Bank) credit(ctx context.Context, tx store.Tx, identity address.Address, amount uint64) error {
	bal, exists, err := b.load(ctx, tx, identity)
	if err != nil {
		return err
	}
	if bal.Amount, err = types.CheckedAdd(bal.Amount, amount, "balance"); err != nil {
		return err
	}
	return b.save(ctx, tx, bal, exists)
}

func (b *Bank) load(ctx context.Context, tx store.Tx, identity address.Address) (Balance, bool, error) {
	key, err := b.deriver.Balance(identity)
	if err != nil {
		return Balance{}, false, err
	}
	raw, err := tx.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return Balance{Identity: identity}, false, nil
	}
	if err != nil {
		return Balance{}, false, err
	}
	var bal Balance
	if err := bal.UnmarshalBinary(raw); err != nil {
		return Balance{}, false, err
	}
	return bal, true, nil
}

func (b *Bank) save(ctx context.Context, tx store.Tx, bal Balance, exists bool) error {
	key, err := b.deriver.Balance(bal.Identity)
	if err != nil {
		return err
	}
	raw, err := bal.MarshalBinary()
	if err != nil {
		return err
	}
	if exists {
		return tx.Put(ctx, key, raw)
	}
	return tx.Insert(ctx, key, raw)
}
