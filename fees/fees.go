// Package fees computes the open-position fee and its referral / buyback /
// treasury split. All arithmetic is exact integer math.
package fees

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

const (
	// BpsDenominator is the basis-point scale: 10000 bps = 100%.
	BpsDenominator = 10_000
	// PercentDenominator is the scale of split weights.
	PercentDenominator = 100

	DefaultFeeBps      uint16 = 70
	DefaultReferralPct uint8  = 10
	DefaultBuybackPct  uint8  = 45
	DefaultTreasuryPct uint8  = 45
)

var (
	// ErrOverflow is returned when a result does not fit in 64 bits.
	ErrOverflow = errors.New("fee arithmetic overflow")
	// ErrPercentages is returned when split weights do not sum to 100.
	ErrPercentages = errors.New("fee percentages must sum to 100")
	// ErrRate is returned when the basis-point rate exceeds 100%.
	ErrRate = errors.New("fee rate exceeds 10000 bps")
)

// Split is the three-way division of a fee. Referral + Buyback + Treasury
// always equals the fee that produced it.
type Split struct {
	Referral uint64
	Buyback  uint64
	Treasury uint64
}

// Total returns the sum of the shares.
func (s Split) Total() uint64 {
	return s.Referral + s.Buyback + s.Treasury
}

// ComputeFee returns floor(amount * rateBps / 10000). The product is formed
// in arbitrary precision so the full u64 range of amount is safe.
func ComputeFee(amount uint64, rateBps uint16) (uint64, error) {
	fee := sdkmath.NewIntFromUint64(amount).
		Mul(sdkmath.NewInt(int64(rateBps))).
		QuoRaw(BpsDenominator)
	if !fee.IsUint64() {
		return 0, fmt.Errorf("%w: %s * %d bps", ErrOverflow, sdkmath.NewIntFromUint64(amount), rateBps)
	}
	return fee.Uint64(), nil
}

// SplitFee divides fee by the referral and buyback weights. The referral share
// is zero when hasReferrer is false and the treasury absorbs every remainder.
func SplitFee(fee uint64, referralPct, buybackPct uint8, hasReferrer bool) (Split, error) {
	if uint16(referralPct)+uint16(buybackPct) > PercentDenominator {
		return Split{}, fmt.Errorf("%w: referral %d + buyback %d", ErrPercentages, referralPct, buybackPct)
	}
	total := sdkmath.NewIntFromUint64(fee)

	var referral uint64
	if hasReferrer {
		referral = share(total, referralPct)
	}
	buyback := share(total, buybackPct)

	return Split{
		Referral: referral,
		Buyback:  buyback,
		Treasury: fee - referral - buyback,
	}, nil
}

// ValidatePercentages checks the config invariant.
func ValidatePercentages(referralPct, buybackPct, treasuryPct uint8) error {
	sum := uint16(referralPct) + uint16(buybackPct) + uint16(treasuryPct)
	if sum != PercentDenominator {
		return fmt.Errorf("%w: got %d", ErrPercentages, sum)
	}
	return nil
}

// ValidateRate checks that a basis-point rate is at most 100%.
func ValidateRate(rateBps uint16) error {
	if rateBps > BpsDenominator {
		return fmt.Errorf("%w: %d", ErrRate, rateBps)
	}
	return nil
}

// share cannot exceed total because pct <= 100.
func share(total sdkmath.Int, pct uint8) uint64 {
	return total.MulRaw(int64(pct)).QuoRaw(PercentDenominator).Uint64()
}
