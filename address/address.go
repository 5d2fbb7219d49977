package address

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the width of every identity and record address in bytes.
const Size = 32

// ErrInvalidLength is returned when decoded bytes are not exactly Size long.
var ErrInvalidLength = errors.New("address must be 32 bytes")

// Address is a 32-byte identity or derived storage location.
type Address [Size]byte

// Zero is the empty identity, used to mean "no referrer".
var Zero Address

// FromBytes copies b into an Address.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Parse decodes a base58 string.
func Parse(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode base58 %q: %w", s, err)
	}
	return FromBytes(raw)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the empty identity.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the underlying bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses render as base58
// in JSON and YAML.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
