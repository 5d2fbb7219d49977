package genesis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/payments"
	"github.com/rexbrahh/lp-vault/store"
)

var (
	admin    = address.Address{0xAD}
	treasury = address.Address{0x7E}
	buyback  = address.Address{0xBB}
	alice    = address.Address{0x01}
	bob      = address.Address{0x02}
)

func writeGenesis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := fmt.Sprintf(`admin: %s
treasury: %s
buyback_wallet: %s
fee_bps: 100
balances:
  - identity: %s
    amount: 5000000
  - identity: %s
    amount: 1
`, admin, treasury, buyback, alice, bob)

	g, err := Load(writeGenesis(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if g.Admin != admin || g.Treasury != treasury || g.BuybackWallet != buyback {
		t.Fatalf("unexpected wallets %+v", g)
	}
	if g.FeeBps != 100 {
		t.Fatalf("fee bps = %d", g.FeeBps)
	}
	if g.ReferralPct != 10 || g.BuybackPct != 45 || g.TreasuryPct != 45 {
		t.Fatalf("default split not applied: %d/%d/%d", g.ReferralPct, g.BuybackPct, g.TreasuryPct)
	}
	if len(g.Balances) != 2 || g.Balances[0].Identity != alice || g.Balances[0].Amount != 5_000_000 {
		t.Fatalf("unexpected balances %+v", g.Balances)
	}
	if !g.ProgramID.IsZero() {
		t.Fatalf("program id should be unset")
	}
}

func TestLoadEmpty(t *testing.T) {
	if _, err := Load(writeGenesis(t, "   \n")); err == nil {
		t.Fatal("expected error for empty genesis")
	}
}

func TestResolveCollectsErrors(t *testing.T) {
	bad := uint16(20_000)
	pct := uint8(50)
	f := File{
		Admin:       "not-base58-0OIl",
		FeeBps:      &bad,
		ReferralPct: &pct,
		Balances: []BalanceEntry{
			{Identity: alice.String(), Amount: 1},
			{Identity: alice.String(), Amount: 2},
		},
	}
	_, err := f.Resolve()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"admin", "treasury is required", "buyback_wallet is required", "balances[1]"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %q", msg, want)
		}
	}
	if strings.Count(msg, "\n  - ") < 6 {
		t.Fatalf("expected every problem listed, got %q", msg)
	}
}

func newLedger(t *testing.T) (*ledger.Engine, *payments.Bank) {
	t.Helper()
	deriver := address.NewDeriver(address.MustParse(ledger.DefaultProgramID))
	bank := payments.NewBank(deriver)
	return ledger.New(store.NewMemory(), bank, deriver), bank
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	engine, bank := newLedger(t)
	g := Genesis{
		Admin: admin, Treasury: treasury, BuybackWallet: buyback,
		FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45,
		Balances: []Balance{{Identity: alice, Amount: 42}},
	}

	applied, err := g.Apply(ctx, engine, bank)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !applied {
		t.Fatal("expected genesis to apply on empty ledger")
	}

	cfg, err := engine.Config(ctx)
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg.Admin != admin || cfg.FeeBps != 70 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	var balance uint64
	err = engine.Store().View(ctx, func(tx store.Tx) error {
		var err error
		balance, err = bank.Balance(ctx, tx, alice)
		return err
	})
	if err != nil || balance != 42 {
		t.Fatalf("balance = %d, err = %v", balance, err)
	}

	g.Admin = bob
	applied, err = g.Apply(ctx, engine, bank)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if applied {
		t.Fatal("expected existing config to be left untouched")
	}
	cfg, _ = engine.Config(ctx)
	if cfg.Admin != admin {
		t.Fatalf("admin overwritten: %s", cfg.Admin)
	}
}

func TestApplyProgramMismatch(t *testing.T) {
	engine, bank := newLedger(t)
	g := Genesis{ProgramID: address.Address{0x42}, Admin: admin, FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45}
	if _, err := g.Apply(context.Background(), engine, bank); err == nil {
		t.Fatal("expected program mismatch error")
	}
}

type failingDepositor struct {
	err error
}

func (f failingDepositor) Deposit(context.Context, store.Tx, address.Address, uint64) error {
	return f.err
}

func TestApplyIsAtomicAndRetryable(t *testing.T) {
	ctx := context.Background()
	engine, bank := newLedger(t)
	g := Genesis{
		Admin: admin, Treasury: treasury, BuybackWallet: buyback,
		FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45,
		Balances: []Balance{{Identity: alice, Amount: 42}},
	}

	boom := errors.New("disk full")
	applied, err := g.Apply(ctx, engine, failingDepositor{err: boom})
	if !errors.Is(err, boom) || applied {
		t.Fatalf("Apply() = %v, %v; want deposit failure", applied, err)
	}
	if _, err := engine.Config(ctx); !errors.Is(err, types.ErrConfigNotFound) {
		t.Fatalf("config must roll back with the failed deposits, got %v", err)
	}

	applied, err = g.Apply(ctx, engine, bank)
	if err != nil || !applied {
		t.Fatalf("retry Apply() = %v, %v", applied, err)
	}
	var balance uint64
	err = engine.Store().View(ctx, func(tx store.Tx) error {
		var err error
		balance, err = bank.Balance(ctx, tx, alice)
		return err
	})
	if err != nil || balance != 42 {
		t.Fatalf("balance = %d, err = %v", balance, err)
	}
}
