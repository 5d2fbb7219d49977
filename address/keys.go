package address

import "encoding/binary"

// PositionIDSeed encodes a position id the way it appears in position seeds.
func PositionIDSeed(id uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return buf[:]
}

// ConfigSeeds returns the seeds of the global config singleton.
func ConfigSeeds() [][]byte {
	return [][]byte{NamespaceConfig}
}

// VaultSeeds returns the seeds of owner's vault record.
func VaultSeeds(owner Address) [][]byte {
	return [][]byte{NamespaceVault, owner[:]}
}

// PositionSeeds returns the seeds of owner's position id.
func PositionSeeds(owner Address, id uint64) [][]byte {
	return [][]byte{NamespacePosition, owner[:], PositionIDSeed(id)}
}

// BalanceSeeds returns the seeds of identity's balance record.
func BalanceSeeds(identity Address) [][]byte {
	return [][]byte{NamespaceBalance, identity[:]}
}

// Config derives the global config address.
func (d *Deriver) Config() (Address, error) {
	addr, _, err := d.Derive(ConfigSeeds()...)
	return addr, err
}

// Vault derives owner's vault address.
func (d *Deriver) Vault(owner Address) (Address, error) {
	addr, _, err := d.Derive(VaultSeeds(owner)...)
	return addr, err
}

// Position derives the address of owner's position id.
func (d *Deriver) Position(owner Address, id uint64) (Address, error) {
	addr, _, err := d.Derive(PositionSeeds(owner, id)...)
	return addr, err
}

// Balance derives identity's balance address.
func (d *Deriver) Balance(identity Address) (Address, error) {
	addr, _, err := d.Derive(BalanceSeeds(identity)...)
	return addr, err
}
