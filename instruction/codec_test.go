package instruction

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger/types"
)

func TestEncodeLayout(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    string
	}{
		{
			name:    "close position",
			payload: ClosePosition{PositionID: 5},
			want:    "040500000000000000",
		},
		{
			name:    "close vault",
			payload: CloseVault{},
			want:    "02",
		},
		{
			name:    "update tvl",
			payload: UpdatePositionTVL{PositionID: 1, NewTVL: 0x0102, FeesClaimed: 3, TotalCompounded: 4},
			want: "05" +
				"0100000000000000" +
				"0201000000000000" +
				"0300000000000000" +
				"0400000000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hex.EncodeToString(Encode(tt.payload))
			if got != tt.want {
				t.Fatalf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpenPositionOffsets(t *testing.T) {
	p := OpenPosition{
		Pool:       address.Address{0x01},
		BaseMint:   address.Address{0x02},
		QuoteMint:  address.Address{0x03},
		InitialTVL: 1_000_000,
		Protocol:   types.ProtocolDAMMv2,
		Strategy:   types.StrategyStopLoss,
	}
	data := Encode(p)
	if len(data) != 1+OpenPositionSize {
		t.Fatalf("len = %d, want %d", len(data), 1+OpenPositionSize)
	}
	body := data[1:]
	if body[0] != 0x01 || body[32] != 0x02 || body[64] != 0x03 {
		t.Fatalf("address offsets wrong: %x %x %x", body[0], body[32], body[64])
	}
	if got := hex.EncodeToString(body[96:104]); got != "40420f0000000000" {
		t.Fatalf("initial tvl bytes = %s", got)
	}
	if body[104] != uint8(types.ProtocolDAMMv2) || body[105] != uint8(types.StrategyStopLoss) {
		t.Fatalf("protocol/strategy = %d/%d", body[104], body[105])
	}
	for i := 106; i < OpenPositionSize; i++ {
		if body[i] != 0 {
			t.Fatalf("padding byte %d = %d", i, body[i])
		}
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != p {
		t.Fatalf("Decode() = %+v, want %+v", decoded, p)
	}
}

func TestUpdateConfigPausedFlag(t *testing.T) {
	p := UpdateConfig{
		Treasury:      address.Address{0x7E},
		BuybackWallet: address.Address{0xBB},
		FeeBps:        70,
		ReferralPct:   10,
		BuybackPct:    45,
		TreasuryPct:   45,
		Paused:        true,
	}
	data := Encode(p)
	if len(data) != 1+UpdateConfigSize {
		t.Fatalf("len = %d", len(data))
	}
	if data[0] != byte(DiscUpdateConfig) {
		t.Fatalf("discriminator = %d", data[0])
	}
	if got := hex.EncodeToString(data[65:71]); got != "46000a2d2d01" {
		t.Fatalf("config tail = %s", got)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != p {
		t.Fatalf("Decode() = %+v, want %+v", decoded, p)
	}

	init := Encode(InitializeConfig{Treasury: p.Treasury, BuybackWallet: p.BuybackWallet, FeeBps: 70, ReferralPct: 10, BuybackPct: 45, TreasuryPct: 45})
	if len(init) != 1+InitializeConfigSize || init[70] != 0 {
		t.Fatalf("initialize config layout: len %d, byte 69 = %d", len(init), init[70])
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "unknown discriminator", data: []byte{7}},
		{name: "close vault with payload", data: []byte{2, 0}},
		{name: "short close position", data: []byte{4, 1, 0, 0}},
		{name: "long create vault", data: append([]byte{1}, make([]byte, 33)...)},
		{name: "update tvl missing id", data: append([]byte{5}, make([]byte, 24)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, types.ErrInvalidInstructionData) {
				t.Fatalf("Decode() error = %v, want InvalidInstructionData", err)
			}
		})
	}
}

func TestDiscriminatorString(t *testing.T) {
	if DiscOpenPosition.String() != "open_position" {
		t.Fatalf("got %s", DiscOpenPosition)
	}
	if Discriminator(42).String() != "unknown" {
		t.Fatalf("got %s", Discriminator(42))
	}
}
