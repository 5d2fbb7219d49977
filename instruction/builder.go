package instruction

import (
	"github.com/rexbrahh/lp-vault/address"
)

// Builder assembles instructions with their derived account lists.
type Builder struct {
	deriver *address.Deriver
}

// NewBuilder returns a Builder deriving addresses with deriver.
func NewBuilder(deriver *address.Deriver) *Builder {
	return &Builder{deriver: deriver}
}

func (b *Builder) InitializeConfig(admin address.Address, p InitializeConfig) (Instruction, error) {
	config, err := b.deriver.Config()
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{{Address: admin, IsSigner: true}, {Address: config}},
		Data:     Encode(p),
	}, nil
}

func (b *Builder) UpdateConfig(admin address.Address, p UpdateConfig) (Instruction, error) {
	config, err := b.deriver.Config()
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{{Address: admin, IsSigner: true}, {Address: config}},
		Data:     Encode(p),
	}, nil
}

// CreateVault builds a vault for owner attributed to the attribution wallet.
// Both must sign.
func (b *Builder) CreateVault(attribution, owner, referrer address.Address) (Instruction, error) {
	vault, err := b.deriver.Vault(owner)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{
			{Address: attribution, IsSigner: true},
			{Address: owner, IsSigner: true},
			{Address: vault},
		},
		Data: Encode(CreateVault{Referrer: referrer}),
	}, nil
}

func (b *Builder) CloseVault(owner address.Address) (Instruction, error) {
	vault, err := b.deriver.Vault(owner)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{{Address: owner, IsSigner: true}, {Address: vault}},
		Data:     Encode(CloseVault{}),
	}, nil
}

// OpenPosition needs the vault's next position id to derive the position
// address.
func (b *Builder) OpenPosition(owner address.Address, nextPositionID uint64, p OpenPosition) (Instruction, error) {
	vault, err := b.deriver.Vault(owner)
	if err != nil {
		return Instruction{}, err
	}
	position, err := b.deriver.Position(owner, nextPositionID)
	if err != nil {
		return Instruction{}, err
	}
	config, err := b.deriver.Config()
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{
			{Address: owner, IsSigner: true},
			{Address: vault},
			{Address: position},
			{Address: config},
		},
		Data: Encode(p),
	}, nil
}

func (b *Builder) ClosePosition(owner address.Address, positionID uint64) (Instruction, error) {
	vault, err := b.deriver.Vault(owner)
	if err != nil {
		return Instruction{}, err
	}
	position, err := b.deriver.Position(owner, positionID)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{
			{Address: owner, IsSigner: true},
			{Address: vault},
			{Address: position},
		},
		Data: Encode(ClosePosition{PositionID: positionID}),
	}, nil
}

func (b *Builder) UpdatePositionTVL(owner address.Address, p UpdatePositionTVL) (Instruction, error) {
	position, err := b.deriver.Position(owner, p.PositionID)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Accounts: []AccountMeta{{Address: owner, IsSigner: true}, {Address: position}},
		Data:     Encode(p),
	}, nil
}
