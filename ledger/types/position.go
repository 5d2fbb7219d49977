package types

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
)

// Position is a single allocation into an external pool.
type Position struct {
	Owner           address.Address `json:"owner"`
	Pool            address.Address `json:"pool"`
	BaseMint        address.Address `json:"base_mint"`
	QuoteMint       address.Address `json:"quote_mint"`
	PositionID      uint64          `json:"position_id"`
	InitialTVL      uint64          `json:"initial_tvl"`
	CurrentTVL      uint64          `json:"current_tvl"`
	FeePaid         uint64          `json:"fee_paid"`
	FeesClaimed     uint64          `json:"fees_claimed"`
	TotalCompounded uint64          `json:"total_compounded"`
	OpenedAt        int64           `json:"opened_at"`
	LastRebalanceAt int64           `json:"last_rebalance_at"`
	Protocol        Protocol        `json:"protocol"`
	Strategy        Strategy        `json:"strategy"`
	Status          PositionStatus  `json:"status"`
	// Revision counts committed changes after open. It orders snapshots of
	// the same position downstream.
	Revision uint64 `json:"revision"`
}

// RequireOpen fails with ErrInvalidPositionStatus unless the position is Open.
func (p Position) RequireOpen() error {
	if p.Status != PositionOpen {
		return errorsmod.Wrapf(ErrInvalidPositionStatus, "position %d is %s", p.PositionID, p.Status)
	}
	return nil
}

// Touch bumps the revision after a committed change.
func (p *Position) Touch(now int64) {
	p.Revision++
	p.LastRebalanceAt = now
}

// RequireOwner fails with ErrUnauthorized when owner does not hold p.
func (p Position) RequireOwner(owner address.Address) error {
	if p.Owner != owner {
		return errorsmod.Wrapf(ErrUnauthorized, "position %d belongs to %s", p.PositionID, p.Owner)
	}
	return nil
}

// MarshalBinary encodes the fixed-width position layout.
func (p Position) MarshalBinary() ([]byte, error) {
	e := NewEncoder(KindPosition, PositionBodySize)
	e.Address(p.Owner)
	e.Address(p.Pool)
	e.Address(p.BaseMint)
	e.Address(p.QuoteMint)
	e.Uint64(p.PositionID)
	e.Uint64(p.InitialTVL)
	e.Uint64(p.CurrentTVL)
	e.Uint64(p.FeePaid)
	e.Uint64(p.FeesClaimed)
	e.Uint64(p.TotalCompounded)
	e.Int64(p.OpenedAt)
	e.Int64(p.LastRebalanceAt)
	e.Uint8(uint8(p.Protocol))
	e.Uint8(uint8(p.Strategy))
	e.Uint8(uint8(p.Status))
	e.Skip(5)
	e.Uint64(p.Revision)
	e.Skip(56)
	return e.Bytes(), nil
}

// UnmarshalBinary decodes the fixed-width position layout.
func (p *Position) UnmarshalBinary(data []byte) error {
	d, err := NewDecoder(data, KindPosition, PositionBodySize)
	if err != nil {
		return err
	}
	p.Owner = d.Address()
	p.Pool = d.Address()
	p.BaseMint = d.Address()
	p.QuoteMint = d.Address()
	p.PositionID = d.Uint64()
	p.InitialTVL = d.Uint64()
	p.CurrentTVL = d.Uint64()
	p.FeePaid = d.Uint64()
	p.FeesClaimed = d.Uint64()
	p.TotalCompounded = d.Uint64()
	p.OpenedAt = d.Int64()
	p.LastRebalanceAt = d.Int64()
	p.Protocol = Protocol(d.Uint8())
	p.Strategy = Strategy(d.Uint8())
	p.Status = PositionStatus(d.Uint8())
	d.Skip(5)
	p.Revision = d.Uint64()
	return nil
}
