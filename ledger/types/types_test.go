package types

import (
	"errors"
	"math"
	"testing"

	"github.com/rexbrahh/lp-vault/address"
)

func TestRecordSizes(t *testing.T) {
	cfg, _ := GlobalConfig{}.MarshalBinary()
	vault, _ := Vault{}.MarshalBinary()
	pos, _ := Position{}.MarshalBinary()

	tests := []struct {
		name string
		data []byte
		kind Kind
		size int
	}{
		{"config", cfg, KindConfig, 238},
		{"vault", vault, KindVault, 296},
		{"position", pos, KindPosition, 272},
	}
	for _, tt := range tests {
		if len(tt.data) != tt.size {
			t.Fatalf("%s: size %d, want %d", tt.name, len(tt.data), tt.size)
		}
		kind, err := KindOf(tt.data)
		if err != nil || kind != tt.kind {
			t.Fatalf("%s: KindOf() = %d, %v", tt.name, kind, err)
		}
		for i := 1; i < HeaderSize; i++ {
			if tt.data[i] != 0 {
				t.Fatalf("%s: header byte %d not zero", tt.name, i)
			}
		}
	}
}

func TestVaultLayoutOffsets(t *testing.T) {
	v := Vault{
		Owner:           address.Address{0xAA},
		NextPositionID:  0x0102030405060708,
		ActivePositions: 3,
		Status:          VaultPaused,
	}
	data, _ := v.MarshalBinary()
	// header(8) + 3 addresses(96) + tvl, deposits, withdrawals, fees(32)
	const nextIDOffset = 8 + 96 + 32
	if data[8] != 0xAA {
		t.Fatalf("owner not at body start")
	}
	if data[nextIDOffset] != 0x08 || data[nextIDOffset+7] != 0x01 {
		t.Fatalf("next position id not little-endian at %d: %x", nextIDOffset, data[nextIDOffset:nextIDOffset+8])
	}
	const statusOffset = nextIDOffset + 8 + 16 + 4
	if data[statusOffset] != byte(VaultPaused) {
		t.Fatalf("status byte = %d", data[statusOffset])
	}

	var decoded Vault
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if decoded != v {
		t.Fatalf("decoded %+v, want %+v", decoded, v)
	}
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	data, _ := Vault{}.MarshalBinary()
	var p Position
	if err := p.UnmarshalBinary(data); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	var c GlobalConfig
	if err := c.UnmarshalBinary(data[:4]); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for short data, got %v", err)
	}
}

func TestVaultRecordPositionOpenedChecked(t *testing.T) {
	v := NewVault(address.Address{1}, address.Address{2}, address.Zero, 100)
	if err := v.RecordPositionOpened(7000, 1_000_000, 200); err != nil {
		t.Fatalf("RecordPositionOpened() error = %v", err)
	}
	if v.ActivePositions != 1 || v.NextPositionID != 1 || v.TotalFeesPaid != 7000 || v.TotalValueLocked != 1_000_000 {
		t.Fatalf("unexpected vault %+v", v)
	}
	// Opening moves value into a position; it is not a deposit.
	if v.TotalDeposits != 0 || v.LastActivityAt != 200 {
		t.Fatalf("unexpected vault %+v", v)
	}

	before := v
	if err := v.RecordPositionOpened(0, math.MaxUint64, 300); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	if v != before {
		t.Fatalf("vault mutated on overflow: %+v", v)
	}
}

func TestVaultRecordPositionClosedSaturates(t *testing.T) {
	v := NewVault(address.Address{1}, address.Address{2}, address.Zero, 100)
	v.TotalValueLocked = 10
	v.TotalWithdrawals = math.MaxUint64 - 1
	v.RecordPositionClosed(50, 400)
	if v.ActivePositions != 0 || v.TotalValueLocked != 0 {
		t.Fatalf("decrements must saturate: %+v", v)
	}
	if v.TotalWithdrawals != math.MaxUint64 {
		t.Fatalf("withdrawals must saturate: %d", v.TotalWithdrawals)
	}
	if v.LastActivityAt != 400 {
		t.Fatalf("last activity not refreshed")
	}
}

func TestVaultClose(t *testing.T) {
	v := NewVault(address.Address{1}, address.Address{2}, address.Zero, 0)
	v.ActivePositions = 1
	if err := v.Close(5); !errors.Is(err, ErrVaultHasOpenPositions) {
		t.Fatalf("expected ErrVaultHasOpenPositions, got %v", err)
	}
	v.ActivePositions = 0
	if err := v.Close(5); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if v.Status != VaultClosed {
		t.Fatalf("status = %s", v.Status)
	}
	if err := v.Close(6); !errors.Is(err, ErrInvalidVaultStatus) {
		t.Fatalf("expected ErrInvalidVaultStatus on second close, got %v", err)
	}
}

func TestGlobalConfigValidateFees(t *testing.T) {
	cfg := DefaultGlobalConfig(address.Address{1}, address.Address{2}, address.Address{3})
	if err := cfg.ValidateFees(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
	cfg.TreasuryPct = 40
	if err := cfg.ValidateFees(); !errors.Is(err, ErrInvalidFeePercentages) {
		t.Fatalf("expected ErrInvalidFeePercentages, got %v", err)
	}
	cfg.TreasuryPct = 45
	cfg.FeeBps = 10_001
	if err := cfg.ValidateFees(); !errors.Is(err, ErrInvalidFeeConfig) {
		t.Fatalf("expected ErrInvalidFeeConfig, got %v", err)
	}
}

func TestEnumValidity(t *testing.T) {
	if !ProtocolAlphaVault.Valid() || Protocol(5).Valid() {
		t.Fatal("protocol range wrong")
	}
	if !StrategyAutoCompoundRebalance.Valid() || Strategy(6).Valid() {
		t.Fatal("strategy range wrong")
	}
	if ProtocolDAMMv2.String() != "damm_v2" {
		t.Fatalf("unexpected protocol name %s", ProtocolDAMMv2)
	}
}

func TestPositionRevisionRoundTrip(t *testing.T) {
	p := Position{
		Owner:      address.Address{0x01},
		PositionID: 9,
		CurrentTVL: 100,
		Status:     PositionOpen,
	}
	p.Touch(1_700_000_000)
	p.Touch(1_700_000_000)
	if p.Revision != 2 || p.LastRebalanceAt != 1_700_000_000 {
		t.Fatalf("unexpected position %+v", p)
	}

	data, _ := p.MarshalBinary()
	// header(8) + 4 addresses(128) + 6 amounts(48) + 2 times(16) + 3 tags + 5 pad
	const revisionOffset = 8 + 128 + 48 + 16 + 3 + 5
	if data[revisionOffset] != 2 {
		t.Fatalf("revision not at %d: %x", revisionOffset, data[revisionOffset:revisionOffset+8])
	}
	var decoded Position
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if decoded != p {
		t.Fatalf("decoded %+v, want %+v", decoded, p)
	}
}
