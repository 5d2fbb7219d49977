package types

import (
	"math"
	"testing"
)

func TestToSOL(t *testing.T) {
	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0.000000000"},
		{1, "0.000000001"},
		{1_000_000_000, "1.000000000"},
		{1_234_567_890, "1.234567890"},
		{math.MaxUint64, "18446744073.709551615"},
	}
	for _, tt := range tests {
		if got := ToSOL(tt.lamports); got != tt.want {
			t.Fatalf("ToSOL(%d) = %s, want %s", tt.lamports, got, tt.want)
		}
	}
}

func TestBpsToPercent(t *testing.T) {
	if got := BpsToPercent(70); got != "0.70" {
		t.Fatalf("BpsToPercent(70) = %s", got)
	}
	if got := BpsToPercent(10_000); got != "100.00" {
		t.Fatalf("BpsToPercent(10000) = %s", got)
	}
}
