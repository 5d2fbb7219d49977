package fees

import (
	"errors"
	"math"
	"testing"
)

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		bps    uint16
		want   uint64
	}{
		{name: "default rate", amount: 1_000_000, bps: 70, want: 7000},
		{name: "floors remainder", amount: 142, bps: 70, want: 0},
		{name: "floors partial", amount: 1_429, bps: 70, want: 10},
		{name: "zero rate", amount: 1_000_000, bps: 0, want: 0},
		{name: "zero amount", amount: 0, bps: 70, want: 0},
		{name: "full rate", amount: math.MaxUint64, bps: 10_000, want: math.MaxUint64},
		{name: "max amount default rate", amount: math.MaxUint64, bps: 70, want: 129127208515966861},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeFee(tt.amount, tt.bps)
			if err != nil {
				t.Fatalf("ComputeFee() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ComputeFee(%d, %d) = %d, want %d", tt.amount, tt.bps, got, tt.want)
			}
		})
	}
}

func TestComputeFeeOverflow(t *testing.T) {
	if _, err := ComputeFee(math.MaxUint64, 10_001); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name        string
		fee         uint64
		referral    uint8
		buyback     uint8
		hasReferrer bool
		want        Split
	}{
		{name: "with referrer", fee: 7000, referral: 10, buyback: 45, hasReferrer: true, want: Split{700, 3150, 3150}},
		{name: "without referrer", fee: 7000, referral: 10, buyback: 45, hasReferrer: false, want: Split{0, 3150, 3850}},
		{name: "rounding goes to treasury", fee: 7, referral: 10, buyback: 45, hasReferrer: true, want: Split{0, 3, 4}},
		{name: "all buyback", fee: 99, referral: 0, buyback: 100, hasReferrer: true, want: Split{0, 99, 0}},
		{name: "zero fee", fee: 0, referral: 10, buyback: 45, hasReferrer: true, want: Split{}},
		{name: "max fee", fee: math.MaxUint64, referral: 50, buyback: 50, hasReferrer: true, want: Split{math.MaxUint64 / 2, math.MaxUint64 / 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitFee(tt.fee, tt.referral, tt.buyback, tt.hasReferrer)
			if err != nil {
				t.Fatalf("SplitFee() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("SplitFee() = %+v, want %+v", got, tt.want)
			}
			if got.Total() != tt.fee {
				t.Fatalf("shares sum to %d, want %d", got.Total(), tt.fee)
			}
		})
	}
}

func TestSplitFeeRejectsOversizedWeights(t *testing.T) {
	if _, err := SplitFee(100, 60, 60, true); !errors.Is(err, ErrPercentages) {
		t.Fatalf("expected ErrPercentages, got %v", err)
	}
}

func TestValidatePercentages(t *testing.T) {
	if err := ValidatePercentages(DefaultReferralPct, DefaultBuybackPct, DefaultTreasuryPct); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if err := ValidatePercentages(10, 45, 46); !errors.Is(err, ErrPercentages) {
		t.Fatalf("expected ErrPercentages, got %v", err)
	}
	if err := ValidatePercentages(200, 100, 56); !errors.Is(err, ErrPercentages) {
		t.Fatalf("wrapped u8 sum must still be rejected, got %v", err)
	}
}

func TestValidateRate(t *testing.T) {
	if err := ValidateRate(10_000); err != nil {
		t.Fatalf("ValidateRate(10000) error = %v", err)
	}
	if err := ValidateRate(10_001); !errors.Is(err, ErrRate) {
		t.Fatalf("expected ErrRate, got %v", err)
	}
}
