package types

import (
	"math/bits"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
)

// Vault aggregates one owner's positions.
type Vault struct {
	Owner            address.Address `json:"owner"`
	Attribution      address.Address `json:"attribution"`
	Referrer         address.Address `json:"referrer"`
	TotalValueLocked uint64          `json:"total_value_locked"`
	TotalDeposits    uint64          `json:"total_deposits"`
	TotalWithdrawals uint64          `json:"total_withdrawals"`
	TotalFeesPaid    uint64          `json:"total_fees_paid"`
	NextPositionID   uint64          `json:"next_position_id"`
	CreatedAt        int64           `json:"created_at"`
	LastActivityAt   int64           `json:"last_activity_at"`
	ActivePositions  uint32          `json:"active_position_count"`
	Status           VaultStatus     `json:"status"`
}

// NewVault returns an Active vault with zeroed aggregates.
func NewVault(owner, attribution, referrer address.Address, now int64) Vault {
	return Vault{
		Owner:          owner,
		Attribution:    attribution,
		Referrer:       referrer,
		CreatedAt:      now,
		LastActivityAt: now,
		Status:         VaultActive,
	}
}

// HasReferrer reports whether fee referral shares apply.
func (v Vault) HasReferrer() bool {
	return !v.Referrer.IsZero()
}

// RequireActive fails with ErrInvalidVaultStatus unless the vault is Active.
func (v Vault) RequireActive() error {
	if v.Status != VaultActive {
		return errorsmod.Wrapf(ErrInvalidVaultStatus, "vault %s is %s", v.Owner, v.Status)
	}
	return nil
}

// RecordPositionOpened books a newly opened position. All increments are
// checked; on error the vault is left unchanged.
func (v *Vault) RecordPositionOpened(feePaid, initialTVL uint64, now int64) error {
	next := *v
	var err error
	if next.ActivePositions, err = checkedAdd32(v.ActivePositions, 1, "active positions"); err != nil {
		return err
	}
	if next.NextPositionID, err = checkedAdd64(v.NextPositionID, 1, "next position id"); err != nil {
		return err
	}
	if next.TotalFeesPaid, err = checkedAdd64(v.TotalFeesPaid, feePaid, "total fees paid"); err != nil {
		return err
	}
	if next.TotalValueLocked, err = checkedAdd64(v.TotalValueLocked, initialTVL, "total value locked"); err != nil {
		return err
	}
	next.LastActivityAt = now
	*v = next
	return nil
}

// RecordPositionClosed books a closed position. Decrements saturate at zero.
func (v *Vault) RecordPositionClosed(finalTVL uint64, now int64) {
	if v.ActivePositions > 0 {
		v.ActivePositions--
	}
	v.TotalValueLocked = saturatingSub(v.TotalValueLocked, finalTVL)
	v.TotalWithdrawals = saturatingAdd(v.TotalWithdrawals, finalTVL)
	v.LastActivityAt = now
}

// Close moves an Active vault with no open positions to Closed.
func (v *Vault) Close(now int64) error {
	if err := v.RequireActive(); err != nil {
		return err
	}
	if v.ActivePositions != 0 {
		return errorsmod.Wrapf(ErrVaultHasOpenPositions, "%d positions still open", v.ActivePositions)
	}
	v.Status = VaultClosed
	v.LastActivityAt = now
	return nil
}

// MarshalBinary encodes the fixed-width vault layout.
func (v Vault) MarshalBinary() ([]byte, error) {
	e := NewEncoder(KindVault, VaultBodySize)
	e.Address(v.Owner)
	e.Address(v.Attribution)
	e.Address(v.Referrer)
	e.Uint64(v.TotalValueLocked)
	e.Uint64(v.TotalDeposits)
	e.Uint64(v.TotalWithdrawals)
	e.Uint64(v.TotalFeesPaid)
	e.Uint64(v.NextPositionID)
	e.Int64(v.CreatedAt)
	e.Int64(v.LastActivityAt)
	e.Uint32(v.ActivePositions)
	e.Uint8(uint8(v.Status))
	e.Skip(3 + 128)
	return e.Bytes(), nil
}

// UnmarshalBinary decodes the fixed-width vault layout.
func (v *Vault) UnmarshalBinary(data []byte) error {
	d, err := NewDecoder(data, KindVault, VaultBodySize)
	if err != nil {
		return err
	}
	v.Owner = d.Address()
	v.Attribution = d.Address()
	v.Referrer = d.Address()
	v.TotalValueLocked = d.Uint64()
	v.TotalDeposits = d.Uint64()
	v.TotalWithdrawals = d.Uint64()
	v.TotalFeesPaid = d.Uint64()
	v.NextPositionID = d.Uint64()
	v.CreatedAt = d.Int64()
	v.LastActivityAt = d.Int64()
	v.ActivePositions = d.Uint32()
	v.Status = VaultStatus(d.Uint8())
	return nil
}

func checkedAdd64(a, b uint64, field string) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errorsmod.Wrapf(ErrArithmeticOverflow, "%s: %d + %d", field, a, b)
	}
	return sum, nil
}

func checkedAdd32(a, b uint32, field string) (uint32, error) {
	sum, carry := bits.Add32(a, b, 0)
	if carry != 0 {
		return 0, errorsmod.Wrapf(ErrArithmeticOverflow, "%s: %d + %d", field, a, b)
	}
	return sum, nil
}

// CheckedAdd is exported for the payments ledger.
func CheckedAdd(a, b uint64, field string) (uint64, error) {
	return checkedAdd64(a, b, field)
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}
