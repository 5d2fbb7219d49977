package instruction

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger"
	"github.com/rexbrahh/lp-vault/ledger/types"
)

// AccountMeta is one entry of an instruction's ordered account list.
type AccountMeta struct {
	Address  address.Address `json:"address"`
	IsSigner bool            `json:"is_signer"`
}

// Instruction is a decoded-on-demand request to the ledger.
type Instruction struct {
	Accounts []AccountMeta
	Data     []byte
}

// Receipt describes what a processed instruction changed. Owner is zero for
// config instructions.
type Receipt struct {
	Instruction Discriminator
	Owner       address.Address
	PositionID  uint64
	Config      *types.GlobalConfig
	Vault       *types.Vault
	Position    *types.Position
}

// Ledger is the command surface the processor dispatches to.
type Ledger interface {
	InitializeConfig(ctx context.Context, p ledger.InitializeConfigParams) (types.GlobalConfig, error)
	UpdateConfig(ctx context.Context, p ledger.UpdateConfigParams) (types.GlobalConfig, error)
	CreateVault(ctx context.Context, p ledger.CreateVaultParams) (types.Vault, error)
	CloseVault(ctx context.Context, p ledger.CloseVaultParams) (types.Vault, error)
	OpenPosition(ctx context.Context, p ledger.OpenPositionParams) (types.Position, error)
	UpdatePositionTVL(ctx context.Context, p ledger.UpdatePositionTVLParams) (types.Position, error)
	ClosePosition(ctx context.Context, p ledger.ClosePositionParams) (types.Position, error)
}

// Option customises a Processor.
type Option func(*Processor)

// WithCloseVault enables the close_vault instruction.
func WithCloseVault(enabled bool) Option {
	return func(p *Processor) {
		p.closeVault = enabled
	}
}

// WithLogger sets the processor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger.With().Str("component", "instruction").Logger()
	}
}

// Processor validates account lists and signers and dispatches decoded
// instructions to the ledger.
type Processor struct {
	ledger     Ledger
	closeVault bool
	logger     zerolog.Logger
}

// NewProcessor returns a Processor for l. close_vault is disabled unless
// WithCloseVault(true) is supplied.
func NewProcessor(l Ledger, opts ...Option) *Processor {
	p := &Processor{ledger: l, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Process decodes ix and executes it.
func (p *Processor) Process(ctx context.Context, ix Instruction) (Receipt, error) {
	payload, err := Decode(ix.Data)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{Instruction: payload.Discriminator()}

	switch pl := payload.(type) {
	case InitializeConfig:
		accts, err := accounts(ix, 2)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "admin"); err != nil {
			return receipt, err
		}
		cfg, err := p.ledger.InitializeConfig(ctx, ledger.InitializeConfigParams{
			Admin:         accts[0].Address,
			ConfigAddress: accts[1].Address,
			Treasury:      pl.Treasury,
			BuybackWallet: pl.BuybackWallet,
			FeeBps:        pl.FeeBps,
			ReferralPct:   pl.ReferralPct,
			BuybackPct:    pl.BuybackPct,
			TreasuryPct:   pl.TreasuryPct,
		})
		if err != nil {
			return receipt, err
		}
		receipt.Config = &cfg

	case UpdateConfig:
		accts, err := accounts(ix, 2)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "admin"); err != nil {
			return receipt, err
		}
		cfg, err := p.ledger.UpdateConfig(ctx, ledger.UpdateConfigParams{
			Caller:        accts[0].Address,
			ConfigAddress: accts[1].Address,
			Treasury:      pl.Treasury,
			BuybackWallet: pl.BuybackWallet,
			FeeBps:        pl.FeeBps,
			ReferralPct:   pl.ReferralPct,
			BuybackPct:    pl.BuybackPct,
			TreasuryPct:   pl.TreasuryPct,
			Paused:        pl.Paused,
		})
		if err != nil {
			return receipt, err
		}
		receipt.Config = &cfg

	case CreateVault:
		accts, err := accounts(ix, 3)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "attribution"); err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[1], "owner"); err != nil {
			return receipt, err
		}
		receipt.Owner = accts[1].Address
		vault, err := p.ledger.CreateVault(ctx, ledger.CreateVaultParams{
			Owner:        accts[1].Address,
			Attribution:  accts[0].Address,
			Referrer:     pl.Referrer,
			VaultAddress: accts[2].Address,
		})
		if err != nil {
			return receipt, err
		}
		receipt.Vault = &vault

	case CloseVault:
		if !p.closeVault {
			return receipt, errorsmod.Wrap(types.ErrUnsupportedInstruction, "close_vault is disabled")
		}
		accts, err := accounts(ix, 2)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "owner"); err != nil {
			return receipt, err
		}
		receipt.Owner = accts[0].Address
		vault, err := p.ledger.CloseVault(ctx, ledger.CloseVaultParams{
			Owner:        accts[0].Address,
			VaultAddress: accts[1].Address,
		})
		if err != nil {
			return receipt, err
		}
		receipt.Vault = &vault

	case OpenPosition:
		accts, err := accounts(ix, 4)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "owner"); err != nil {
			return receipt, err
		}
		receipt.Owner = accts[0].Address
		position, err := p.ledger.OpenPosition(ctx, ledger.OpenPositionParams{
			Owner:           accts[0].Address,
			VaultAddress:    accts[1].Address,
			PositionAddress: accts[2].Address,
			ConfigAddress:   accts[3].Address,
			Pool:            pl.Pool,
			BaseMint:        pl.BaseMint,
			QuoteMint:       pl.QuoteMint,
			InitialTVL:      pl.InitialTVL,
			Protocol:        pl.Protocol,
			Strategy:        pl.Strategy,
		})
		if err != nil {
			return receipt, err
		}
		receipt.PositionID = position.PositionID
		receipt.Position = &position

	case ClosePosition:
		accts, err := accounts(ix, 3)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "owner"); err != nil {
			return receipt, err
		}
		receipt.Owner = accts[0].Address
		receipt.PositionID = pl.PositionID
		position, err := p.ledger.ClosePosition(ctx, ledger.ClosePositionParams{
			Owner:           accts[0].Address,
			VaultAddress:    accts[1].Address,
			PositionAddress: accts[2].Address,
			PositionID:      pl.PositionID,
		})
		if err != nil {
			return receipt, err
		}
		receipt.Position = &position

	case UpdatePositionTVL:
		accts, err := accounts(ix, 2)
		if err != nil {
			return receipt, err
		}
		if err := requireSigner(accts[0], "owner"); err != nil {
			return receipt, err
		}
		receipt.Owner = accts[0].Address
		receipt.PositionID = pl.PositionID
		position, err := p.ledger.UpdatePositionTVL(ctx, ledger.UpdatePositionTVLParams{
			Owner:           accts[0].Address,
			PositionAddress: accts[1].Address,
			PositionID:      pl.PositionID,
			NewTVL:          pl.NewTVL,
			FeesClaimed:     pl.FeesClaimed,
			TotalCompounded: pl.TotalCompounded,
		})
		if err != nil {
			return receipt, err
		}
		receipt.Position = &position
	}

	p.logger.Debug().
		Stringer("instruction", receipt.Instruction).
		Stringer("owner", receipt.Owner).
		Msg("instruction processed")
	return receipt, nil
}

func accounts(ix Instruction, n int) ([]AccountMeta, error) {
	if len(ix.Accounts) < n {
		return nil, errorsmod.Wrapf(types.ErrNotEnoughAccounts, "got %d, want %d", len(ix.Accounts), n)
	}
	return ix.Accounts[:n], nil
}

func requireSigner(meta AccountMeta, role string) error {
	if !meta.IsSigner {
		return errorsmod.Wrapf(types.ErrInvalidAuthority, "%s %s did not sign", role, meta.Address)
	}
	return nil
}
