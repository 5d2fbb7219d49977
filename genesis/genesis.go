// Package genesis bootstraps an empty ledger from a YAML file: the global
// config and an optional set of development balances.
package genesis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/fees"
	"github.com/rexbrahh/lp-vault/ledger"
	"github.com/rexbrahh/lp-vault/ledger/types"
	"github.com/rexbrahh/lp-vault/store"
)

// File is the on-disk layout. Fee fields fall back to the defaults when
// omitted.
type File struct {
	ProgramID     string         `yaml:"program_id"`
	Admin         string         `yaml:"admin"`
	Treasury      string         `yaml:"treasury"`
	BuybackWallet string         `yaml:"buyback_wallet"`
	FeeBps        *uint16        `yaml:"fee_bps"`
	ReferralPct   *uint8         `yaml:"referral_pct"`
	BuybackPct    *uint8         `yaml:"buyback_pct"`
	TreasuryPct   *uint8         `yaml:"treasury_pct"`
	Balances      []BalanceEntry `yaml:"balances"`
}

// BalanceEntry credits Amount lamports to Identity.
type BalanceEntry struct {
	Identity string `yaml:"identity"`
	Amount   uint64 `yaml:"amount"`
}

// Genesis is a validated File.
type Genesis struct {
	ProgramID     address.Address
	Admin         address.Address
	Treasury      address.Address
	BuybackWallet address.Address
	FeeBps        uint16
	ReferralPct   uint8
	BuybackPct    uint8
	TreasuryPct   uint8
	Balances      []Balance
}

// Balance is a resolved BalanceEntry.
type Balance struct {
	Identity address.Address
	Amount   uint64
}

// Load reads and validates the genesis file at path.
func Load(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Genesis{}, fmt.Errorf("genesis %q is empty", path)
	}
	return Parse(data)
}

// Parse decodes and validates genesis YAML.
func Parse(data []byte) (Genesis, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Genesis{}, fmt.Errorf("parse genesis: %w", err)
	}
	return f.Resolve()
}

// Resolve validates f, reporting every problem at once.
func (f File) Resolve() (Genesis, error) {
	var (
		g        Genesis
		problems []string
	)

	parse := func(field, value string, required bool) address.Address {
		if strings.TrimSpace(value) == "" {
			if required {
				problems = append(problems, fmt.Sprintf("%s is required", field))
			}
			return address.Zero
		}
		a, err := address.Parse(strings.TrimSpace(value))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", field, err))
		}
		return a
	}

	g.ProgramID = parse("program_id", f.ProgramID, false)
	g.Admin = parse("admin", f.Admin, true)
	g.Treasury = parse("treasury", f.Treasury, true)
	g.BuybackWallet = parse("buyback_wallet", f.BuybackWallet, true)

	g.FeeBps = valueOr(f.FeeBps, fees.DefaultFeeBps)
	g.ReferralPct = valueOr(f.ReferralPct, fees.DefaultReferralPct)
	g.BuybackPct = valueOr(f.BuybackPct, fees.DefaultBuybackPct)
	g.TreasuryPct = valueOr(f.TreasuryPct, fees.DefaultTreasuryPct)
	if err := fees.ValidateRate(g.FeeBps); err != nil {
		problems = append(problems, err.Error())
	}
	if err := fees.ValidatePercentages(g.ReferralPct, g.BuybackPct, g.TreasuryPct); err != nil {
		problems = append(problems, err.Error())
	}

	seen := make(map[address.Address]int, len(f.Balances))
	for i, entry := range f.Balances {
		id := parse(fmt.Sprintf("balances[%d].identity", i), entry.Identity, true)
		if prev, dup := seen[id]; dup && !id.IsZero() {
			problems = append(problems, fmt.Sprintf("balances[%d]: identity already listed at %d", i, prev))
			continue
		}
		seen[id] = i
		g.Balances = append(g.Balances, Balance{Identity: id, Amount: entry.Amount})
	}

	if len(problems) > 0 {
		return Genesis{}, fmt.Errorf("genesis validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return g, nil
}

func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// Ledger is the engine surface genesis needs.
type Ledger interface {
	Deriver() *address.Deriver
	Config(ctx context.Context) (types.GlobalConfig, error)
	InitializeConfig(ctx context.Context, p ledger.InitializeConfigParams) (types.GlobalConfig, error)
}

// Depositor credits balances inside a store transaction.
type Depositor interface {
	Deposit(ctx context.Context, tx store.Tx, identity address.Address, amount uint64) error
}

// Apply initializes the config and credits balances in one transaction
// when the ledger has no config yet. It reports whether anything was
// written; a failed apply leaves the ledger empty so it can be retried.
func (g Genesis) Apply(ctx context.Context, l Ledger, bank Depositor) (bool, error) {
	deriver := l.Deriver()
	if !g.ProgramID.IsZero() && g.ProgramID != deriver.Program() {
		return false, fmt.Errorf("genesis program %s does not match ledger program %s", g.ProgramID, deriver.Program())
	}

	if _, err := l.Config(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, types.ErrConfigNotFound) {
		return false, fmt.Errorf("load config: %w", err)
	}

	configAddr, err := deriver.Config()
	if err != nil {
		return false, err
	}
	_, err = l.InitializeConfig(ctx, ledger.InitializeConfigParams{
		Admin:         g.Admin,
		ConfigAddress: configAddr,
		Treasury:      g.Treasury,
		BuybackWallet: g.BuybackWallet,
		FeeBps:        g.FeeBps,
		ReferralPct:   g.ReferralPct,
		BuybackPct:    g.BuybackPct,
		TreasuryPct:   g.TreasuryPct,
		Seed: func(ctx context.Context, tx store.Tx) error {
			for _, b := range g.Balances {
				if err := bank.Deposit(ctx, tx, b.Identity, b.Amount); err != nil {
					return fmt.Errorf("credit %s: %w", b.Identity, err)
				}
			}
			return nil
		},
	})
	if errors.Is(err, types.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("initialize config: %w", err)
	}
	return true, nil
}
