package instruction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/payments"
	"github.com/rexbrahh/lp-vault/store"
)

var (
	admin       = address.Address{0xAD}
	treasury    = address.Address{0x7E}
	buyback     = address.Address{0xBB}
	owner       = address.Address{0x01}
	attribution = address.Address{0x02}
	referrer    = address.Address{0x03}
)

type fixture struct {
	ctx       context.Context
	store     *store.Memory
	bank      *payments.Bank
	builder   *Builder
	processor *Processor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	deriver := address.NewDeriver(address.MustParse(ledger.DefaultProgramID))
	st := store.NewMemory()
	bank := payments.NewBank(deriver)
	engine := ledger.New(st, bank, deriver, ledger.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	return &fixture{
		ctx:       context.Background(),
		store:     st,
		bank:      bank,
		builder:   NewBuilder(deriver),
		processor: NewProcessor(engine, opts...),
	}
}

func (f *fixture) must(t *testing.T, ix Instruction, err error) Receipt {
	t.Helper()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	receipt, err := f.processor.Process(f.ctx, ix)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return receipt
}

func (f *fixture) fund(t *testing.T, who address.Address, amount uint64) {
	t.Helper()
	err := f.store.Update(f.ctx, func(tx store.Tx) error {
		return f.bank.Deposit(f.ctx, tx, who, amount)
	})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (f *fixture) bootstrap(t *testing.T) {
	t.Helper()
	ix, err := f.builder.InitializeConfig(admin, InitializeConfig{
		Treasury: treasury, BuybackWallet: buyback, FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45,
	})
	f.must(t, ix, err)
	ix, err = f.builder.CreateVault(attribution, owner, referrer)
	f.must(t, ix, err)
}

func TestProcessLifecycle(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.fund(t, owner, 100_000)

	ix, err := f.builder.OpenPosition(owner, 0, OpenPosition{
		Pool: address.Address{0x50}, InitialTVL: 1_000_000, Protocol: types.ProtocolDLMM, Strategy: types.StrategyManual,
	})
	receipt := f.must(t, ix, err)
	if receipt.Instruction != DiscOpenPosition || receipt.Owner != owner || receipt.PositionID != 0 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if receipt.Position == nil || receipt.Position.FeePaid != 7000 {
		t.Fatalf("unexpected position %+v", receipt.Position)
	}

	ix, err = f.builder.UpdatePositionTVL(owner, UpdatePositionTVL{PositionID: 0, NewTVL: 1_100_000, FeesClaimed: 12})
	receipt = f.must(t, ix, err)
	if receipt.Position.CurrentTVL != 1_100_000 {
		t.Fatalf("current tvl = %d", receipt.Position.CurrentTVL)
	}

	ix, err = f.builder.ClosePosition(owner, 0)
	receipt = f.must(t, ix, err)
	if receipt.Position.Status != types.PositionClosed {
		t.Fatalf("status = %s", receipt.Position.Status)
	}

	ix, err = f.builder.UpdateConfig(admin, UpdateConfig{
		Treasury: treasury, BuybackWallet: buyback, FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45, Paused: true,
	})
	receipt = f.must(t, ix, err)
	if receipt.Config == nil || !receipt.Config.Paused {
		t.Fatalf("config not paused: %+v", receipt.Config)
	}
	if !receipt.Owner.IsZero() {
		t.Fatalf("config receipt owner = %s", receipt.Owner)
	}
}

func TestProcessCreateVaultRoles(t *testing.T) {
	f := newFixture(t)
	ix, err := f.builder.CreateVault(attribution, owner, address.Zero)
	receipt := f.must(t, ix, err)
	if receipt.Vault.Owner != owner || receipt.Vault.Attribution != attribution {
		t.Fatalf("vault = %+v", receipt.Vault)
	}
	if receipt.Vault.HasReferrer() {
		t.Fatalf("zero referrer recorded as referrer")
	}
}

func TestProcessRejectsMissingSigner(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)

	tests := []struct {
		name  string
		build func() (Instruction, error)
		index int
	}{
		{name: "admin", build: func() (Instruction, error) {
			return f.builder.UpdateConfig(admin, UpdateConfig{FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45})
		}},
		{name: "attribution", build: func() (Instruction, error) {
			return f.builder.CreateVault(attribution, address.Address{0x09}, address.Zero)
		}},
		{name: "owner of new vault", index: 1, build: func() (Instruction, error) {
			return f.builder.CreateVault(attribution, address.Address{0x09}, address.Zero)
		}},
		{name: "position owner", build: func() (Instruction, error) {
			return f.builder.ClosePosition(owner, 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := tt.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			ix.Accounts[tt.index].IsSigner = false
			_, err = f.processor.Process(f.ctx, ix)
			if !errors.Is(err, types.ErrInvalidAuthority) {
				t.Fatalf("Process() error = %v, want InvalidAuthority", err)
			}
		})
	}
}

func TestProcessRejectsShortAccountList(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)

	ix, err := f.builder.OpenPosition(owner, 0, OpenPosition{InitialTVL: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ix.Accounts = ix.Accounts[:3]
	if _, err := f.processor.Process(f.ctx, ix); !errors.Is(err, types.ErrNotEnoughAccounts) {
		t.Fatalf("Process() error = %v, want NotEnoughAccounts", err)
	}
}

func TestProcessRejectsSubstitutedAccount(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.fund(t, owner, 100_000)

	ix, err := f.builder.OpenPosition(owner, 0, OpenPosition{InitialTVL: 1_000})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ix.Accounts[3].Address = treasury
	if _, err := f.processor.Process(f.ctx, ix); !errors.Is(err, types.ErrInvalidDerivedAddress) {
		t.Fatalf("Process() error = %v, want InvalidDerivedAddress", err)
	}
}

func TestCloseVaultGate(t *testing.T) {
	disabled := newFixture(t)
	disabled.bootstrap(t)
	ix, err := disabled.builder.CloseVault(owner)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := disabled.processor.Process(disabled.ctx, ix); !errors.Is(err, types.ErrUnsupportedInstruction) {
		t.Fatalf("Process() error = %v, want UnsupportedInstruction", err)
	}

	enabled := newFixture(t, WithCloseVault(true))
	enabled.bootstrap(t)
	receipt := enabled.must(t, ix, nil)
	if receipt.Vault.Status != types.VaultClosed {
		t.Fatalf("status = %s", receipt.Vault.Status)
	}
}

func TestProcessInvalidData(t *testing.T) {
	f := newFixture(t)
	_, err := f.processor.Process(f.ctx, Instruction{Data: []byte{9}})
	if !errors.Is(err, types.ErrInvalidInstructionData) {
		t.Fatalf("Process() error = %v", err)
	}
}
