package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds bounds the number of seed components per derivation.
	MaxSeeds = 16
	// MaxSeedLen bounds the length of each seed component.
	MaxSeedLen = 32

	derivationMarker = "ProgramDerivedAddress"
)

// Namespaces used as the first seed of every ledger record address.
var (
	NamespaceConfig   = []byte("config")
	NamespaceVault    = []byte("vault_metadata")
	NamespacePosition = []byte("position")
	NamespaceBalance  = []byte("balance")
)

var (
	// ErrMaxSeedLength is returned when a seed component exceeds MaxSeedLen.
	ErrMaxSeedLength = errors.New("seed component exceeds 32 bytes")
	// ErrTooManySeeds is returned when more than MaxSeeds components are supplied.
	ErrTooManySeeds = errors.New("too many seed components")
	// ErrOnCurve is returned when a candidate address is a valid ed25519 point.
	ErrOnCurve = errors.New("derived address lies on the ed25519 curve")
	// ErrNoViableBump is returned when every bump yields an on-curve point.
	ErrNoViableBump = errors.New("unable to find a viable bump seed")
	// ErrMismatch is returned by Verify when the supplied address differs
	// from the derived one.
	ErrMismatch = errors.New("address does not match derivation")
)

// Deriver computes program-derived addresses for a fixed program identity.
// Every derived address is off the ed25519 curve.
type Deriver struct {
	program Address
}

// NewDeriver returns a Deriver bound to program.
func NewDeriver(program Address) *Deriver {
	return &Deriver{program: program}
}

// Program returns the program identity the deriver is bound to.
func (d *Deriver) Program() Address {
	return d.program
}

// Derive searches bump values from 255 downwards and returns the first
// off-curve address for seeds together with the bump that produced it.
func (d *Deriver) Derive(seeds ...[]byte) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	candidate := make([][]byte, 0, len(seeds)+1)
	candidate = append(candidate, seeds...)
	bump := []byte{0}
	for b := 255; b >= 0; b-- {
		bump[0] = byte(b)
		addr, err := d.Create(append(candidate[:len(seeds)], bump)...)
		if err == nil {
			return addr, byte(b), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// Create hashes seeds with the program identity without searching for a bump.
// It fails with ErrOnCurve when the digest is a valid curve point.
func (d *Deriver) Create(seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Address{}, fmt.Errorf("%w: %d", ErrMaxSeedLength, len(seed))
		}
		h.Write(seed)
	}
	h.Write(d.program[:])
	h.Write([]byte(derivationMarker))

	var out Address
	copy(out[:], h.Sum(nil))
	if OnCurve(out) {
		return Address{}, ErrOnCurve
	}
	return out, nil
}

// Verify re-derives the address for seeds and compares it with supplied.
func (d *Deriver) Verify(supplied Address, seeds ...[]byte) (uint8, error) {
	expected, bump, err := d.Derive(seeds...)
	if err != nil {
		return 0, err
	}
	if expected != supplied {
		return 0, fmt.Errorf("%w: expected %s, got %s", ErrMismatch, expected, supplied)
	}
	return bump, nil
}

// OnCurve reports whether a decodes to a point on edwards25519.
func OnCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
