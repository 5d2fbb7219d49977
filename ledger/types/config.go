package types

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/fees"
)

// GlobalConfig is the singleton fee and admin configuration.
type GlobalConfig struct {
	Admin         address.Address `json:"admin"`
	Treasury      address.Address `json:"treasury"`
	BuybackWallet address.Address `json:"buyback_wallet"`
	FeeBps        uint16          `json:"fee_bps"`
	ReferralPct   uint8           `json:"referral_percentage"`
	BuybackPct    uint8           `json:"buyback_percentage"`
	TreasuryPct   uint8           `json:"treasury_percentage"`
	Paused        bool            `json:"paused"`
}

// DefaultGlobalConfig returns the standard 70 bps, 10/45/45 configuration.
func DefaultGlobalConfig(admin, treasury, buyback address.Address) GlobalConfig {
	return GlobalConfig{
		Admin:         admin,
		Treasury:      treasury,
		BuybackWallet: buyback,
		FeeBps:        fees.DefaultFeeBps,
		ReferralPct:   fees.DefaultReferralPct,
		BuybackPct:    fees.DefaultBuybackPct,
		TreasuryPct:   fees.DefaultTreasuryPct,
	}
}

// ValidateFees enforces the percentage sum and the basis-point ceiling.
func (c GlobalConfig) ValidateFees() error {
	if err := fees.ValidatePercentages(c.ReferralPct, c.BuybackPct, c.TreasuryPct); err != nil {
		return errorsmod.Wrap(ErrInvalidFeePercentages, err.Error())
	}
	if err := fees.ValidateRate(c.FeeBps); err != nil {
		return errorsmod.Wrap(ErrInvalidFeeConfig, err.Error())
	}
	return nil
}

// MarshalBinary encodes the fixed-width config layout.
func (c GlobalConfig) MarshalBinary() ([]byte, error) {
	e := NewEncoder(KindConfig, ConfigBodySize)
	e.Address(c.Admin)
	e.Address(c.Treasury)
	e.Address(c.BuybackWallet)
	e.Uint16(c.FeeBps)
	e.Uint8(c.ReferralPct)
	e.Uint8(c.BuybackPct)
	e.Uint8(c.TreasuryPct)
	e.Bool(c.Paused)
	e.Skip(128)
	return e.Bytes(), nil
}

// UnmarshalBinary decodes the fixed-width config layout.
func (c *GlobalConfig) UnmarshalBinary(data []byte) error {
	d, err := NewDecoder(data, KindConfig, ConfigBodySize)
	if err != nil {
		return err
	}
	c.Admin = d.Address()
	c.Treasury = d.Address()
	c.BuybackWallet = d.Address()
	c.FeeBps = d.Uint16()
	c.ReferralPct = d.Uint8()
	c.BuybackPct = d.Uint8()
	c.TreasuryPct = d.Uint8()
	c.Paused = d.Bool()
	return nil
}
