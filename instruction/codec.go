// Package instruction decodes and executes binary ledger instructions. Each
// instruction is a one-byte discriminator followed by a fixed-size
// little-endian payload and an ordered account list.
package instruction

import (
	"encoding/binary"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/ledger/types"
)

// Discriminator identifies the instruction in the first data byte.
type Discriminator uint8

const (
	DiscInitializeConfig Discriminator = iota
	DiscCreateVault
	DiscCloseVault
	DiscOpenPosition
	DiscClosePosition
	DiscUpdatePositionTVL
	DiscUpdateConfig
)

// Payload sizes in bytes, excluding the discriminator.
const (
	InitializeConfigSize  = 72
	CreateVaultSize       = 32
	CloseVaultSize        = 0
	OpenPositionSize      = 112
	ClosePositionSize     = 8
	UpdatePositionTVLSize = 32
	UpdateConfigSize      = 72
)

var discriminatorNames = map[Discriminator]string{
	DiscInitializeConfig:  "initialize_config",
	DiscCreateVault:       "create_vault",
	DiscCloseVault:        "close_vault",
	DiscOpenPosition:      "open_position",
	DiscClosePosition:     "close_position",
	DiscUpdatePositionTVL: "update_position_tvl",
	DiscUpdateConfig:      "update_config",
}

func (d Discriminator) String() string {
	if name, ok := discriminatorNames[d]; ok {
		return name
	}
	return "unknown"
}

// Payload is a decoded instruction body.
type Payload interface {
	Discriminator() Discriminator
	encode(buf []byte)
	size() int
}

// InitializeConfig layout:
//
//	[0:32]  treasury
//	[32:64] buyback wallet
//	[64:66] fee bps (u16)
//	[66]    referral pct
//	[67]    buyback pct
//	[68]    treasury pct
//	[69:72] padding
type InitializeConfig struct {
	Treasury      address.Address
	BuybackWallet address.Address
	FeeBps        uint16
	ReferralPct   uint8
	BuybackPct    uint8
	TreasuryPct   uint8
}

// CreateVault carries the optional referrer; the zero address means none.
type CreateVault struct {
	Referrer address.Address
}

// CloseVault has an empty payload.
type CloseVault struct{}

// OpenPosition layout:
//
//	[0:32]    pool
//	[32:64]   base mint
//	[64:96]   quote mint
//	[96:104]  initial tvl (u64)
//	[104]     protocol
//	[105]     strategy
//	[106:112] padding
type OpenPosition struct {
	Pool       address.Address
	BaseMint   address.Address
	QuoteMint  address.Address
	InitialTVL uint64
	Protocol   types.Protocol
	Strategy   types.Strategy
}

// ClosePosition names the position by id.
type ClosePosition struct {
	PositionID uint64
}

// UpdatePositionTVL carries four u64 values in field order.
type UpdatePositionTVL struct {
	PositionID      uint64
	NewTVL          uint64
	FeesClaimed     uint64
	TotalCompounded uint64
}

// UpdateConfig shares the InitializeConfig layout with the paused flag at
// byte 69.
type UpdateConfig struct {
	Treasury      address.Address
	BuybackWallet address.Address
	FeeBps        uint16
	ReferralPct   uint8
	BuybackPct    uint8
	TreasuryPct   uint8
	Paused        bool
}

func (InitializeConfig) Discriminator() Discriminator  { return DiscInitializeConfig }
func (CreateVault) Discriminator() Discriminator       { return DiscCreateVault }
func (CloseVault) Discriminator() Discriminator        { return DiscCloseVault }
func (OpenPosition) Discriminator() Discriminator      { return DiscOpenPosition }
func (ClosePosition) Discriminator() Discriminator     { return DiscClosePosition }
func (UpdatePositionTVL) Discriminator() Discriminator { return DiscUpdatePositionTVL }
func (UpdateConfig) Discriminator() Discriminator      { return DiscUpdateConfig }

func (InitializeConfig) size() int  { return InitializeConfigSize }
func (CreateVault) size() int       { return CreateVaultSize }
func (CloseVault) size() int        { return CloseVaultSize }
func (OpenPosition) size() int      { return OpenPositionSize }
func (ClosePosition) size() int     { return ClosePositionSize }
func (UpdatePositionTVL) size() int { return UpdatePositionTVLSize }
func (UpdateConfig) size() int      { return UpdateConfigSize }

func (p InitializeConfig) encode(buf []byte) {
	copy(buf[0:32], p.Treasury[:])
	copy(buf[32:64], p.BuybackWallet[:])
	binary.LittleEndian.PutUint16(buf[64:66], p.FeeBps)
	buf[66] = p.ReferralPct
	buf[67] = p.BuybackPct
	buf[68] = p.TreasuryPct
}

func (p CreateVault) encode(buf []byte) {
	copy(buf[0:32], p.Referrer[:])
}

func (CloseVault) encode([]byte) {}

func (p OpenPosition) encode(buf []byte) {
	copy(buf[0:32], p.Pool[:])
	copy(buf[32:64], p.BaseMint[:])
	copy(buf[64:96], p.QuoteMint[:])
	binary.LittleEndian.PutUint64(buf[96:104], p.InitialTVL)
	buf[104] = uint8(p.Protocol)
	buf[105] = uint8(p.Strategy)
}

func (p ClosePosition) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], p.PositionID)
}

func (p UpdatePositionTVL) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], p.PositionID)
	binary.LittleEndian.PutUint64(buf[8:16], p.NewTVL)
	binary.LittleEndian.PutUint64(buf[16:24], p.FeesClaimed)
	binary.LittleEndian.PutUint64(buf[24:32], p.TotalCompounded)
}

func (p UpdateConfig) encode(buf []byte) {
	InitializeConfig{
		Treasury:      p.Treasury,
		BuybackWallet: p.BuybackWallet,
		FeeBps:        p.FeeBps,
		ReferralPct:   p.ReferralPct,
		BuybackPct:    p.BuybackPct,
		TreasuryPct:   p.TreasuryPct,
	}.encode(buf)
	if p.Paused {
		buf[69] = 1
	}
}

// Encode serialises p with its discriminator. Padding bytes are zero.
func Encode(p Payload) []byte {
	buf := make([]byte, 1+p.size())
	buf[0] = byte(p.Discriminator())
	p.encode(buf[1:])
	return buf
}

// Decode parses instruction data. Unknown discriminators and payloads of the
// wrong size fail with ErrInvalidInstructionData.
func Decode(data []byte) (Payload, error) {
	if len(data) == 0 {
		return nil, errorsmod.Wrap(types.ErrInvalidInstructionData, "empty instruction data")
	}
	disc := Discriminator(data[0])
	body := data[1:]

	want, ok := payloadSizes[disc]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrInvalidInstructionData, "unknown discriminator %d", data[0])
	}
	if len(body) != want {
		return nil, errorsmod.Wrapf(types.ErrInvalidInstructionData, "%s payload: got %d bytes, want %d", disc, len(body), want)
	}

	switch disc {
	case DiscInitializeConfig:
		return InitializeConfig{
			Treasury:      readAddress(body[0:32]),
			BuybackWallet: readAddress(body[32:64]),
			FeeBps:        binary.LittleEndian.Uint16(body[64:66]),
			ReferralPct:   body[66],
			BuybackPct:    body[67],
			TreasuryPct:   body[68],
		}, nil
	case DiscCreateVault:
		return CreateVault{Referrer: readAddress(body[0:32])}, nil
	case DiscCloseVault:
		return CloseVault{}, nil
	case DiscOpenPosition:
		return OpenPosition{
			Pool:       readAddress(body[0:32]),
			BaseMint:   readAddress(body[32:64]),
			QuoteMint:  readAddress(body[64:96]),
			InitialTVL: binary.LittleEndian.Uint64(body[96:104]),
			Protocol:   types.Protocol(body[104]),
			Strategy:   types.Strategy(body[105]),
		}, nil
	case DiscClosePosition:
		return ClosePosition{PositionID: binary.LittleEndian.Uint64(body[0:8])}, nil
	case DiscUpdatePositionTVL:
		return UpdatePositionTVL{
			PositionID:      binary.LittleEndian.Uint64(body[0:8]),
			NewTVL:          binary.LittleEndian.Uint64(body[8:16]),
			FeesClaimed:     binary.LittleEndian.Uint64(body[16:24]),
			TotalCompounded: binary.LittleEndian.Uint64(body[24:32]),
		}, nil
	default:
		return UpdateConfig{
			Treasury:      readAddress(body[0:32]),
			BuybackWallet: readAddress(body[32:64]),
			FeeBps:        binary.LittleEndian.Uint16(body[64:66]),
			ReferralPct:   body[66],
			BuybackPct:    body[67],
			TreasuryPct:   body[68],
			Paused:        body[69] != 0,
		}, nil
	}
}

var payloadSizes = map[Discriminator]int{
	DiscInitializeConfig:  InitializeConfigSize,
	DiscCreateVault:       CreateVaultSize,
	DiscCloseVault:        CloseVaultSize,
	DiscOpenPosition:      OpenPositionSize,
	DiscClosePosition:     ClosePositionSize,
	DiscUpdatePositionTVL: UpdatePositionTVLSize,
	DiscUpdateConfig:      UpdateConfigSize,
}

func readAddress(b []byte) address.Address {
	var a address.Address
	copy(a[:], b)
	return a
}
