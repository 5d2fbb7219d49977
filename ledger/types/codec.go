package types

import (
	"encoding/binary"

	errorsmod "cosmossdk.io/errors"

	"github.com/rexbrahh/lp-vault/address"
)

// Kind is the record discriminator stored in the first header byte.
type Kind uint8

const (
	KindVault Kind = iota
	KindPosition
	KindConfig
	KindBalance
)

// HeaderSize is the discriminator header in front of every record body.
const HeaderSize = 8

// Record body sizes, reserved tails included.
const (
	ConfigBodySize   = 3*address.Size + 2 + 4 + 128
	VaultBodySize    = 3*address.Size + 5*8 + 2*8 + 4 + 1 + 3 + 128
	PositionBodySize = 4*address.Size + 6*8 + 2*8 + 3 + 5 + 64
)

// KindOf returns the discriminator of an encoded record.
func KindOf(data []byte) (Kind, error) {
	if len(data) < HeaderSize {
		return 0, errorsmod.Wrapf(ErrInvalidRecord, "record shorter than header: %d bytes", len(data))
	}
	return Kind(data[0]), nil
}

// Encoder writes a fixed-width little-endian record.
type Encoder struct {
	buf []byte
	off int
}

// NewEncoder allocates header + bodySize bytes and writes the header.
func NewEncoder(kind Kind, bodySize int) *Encoder {
	buf := make([]byte, HeaderSize+bodySize)
	buf[0] = byte(kind)
	return &Encoder{buf: buf, off: HeaderSize}
}

func (e *Encoder) Address(a address.Address) {
	copy(e.buf[e.off:], a[:])
	e.off += address.Size
}

func (e *Encoder) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

func (e *Encoder) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *Encoder) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[e.off:], v)
	e.off += 2
}

func (e *Encoder) Uint8(v uint8) {
	e.buf[e.off] = v
	e.off++
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
		return
	}
	e.Uint8(0)
}

// Skip leaves n zero bytes for padding or reserved space.
func (e *Encoder) Skip(n int) {
	e.off += n
}

// Bytes returns the encoded record.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads a record written by Encoder.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder checks the header and length of data.
func NewDecoder(data []byte, kind Kind, bodySize int) (*Decoder, error) {
	got, err := KindOf(data)
	if err != nil {
		return nil, err
	}
	if got != kind {
		return nil, errorsmod.Wrapf(ErrInvalidRecord, "kind %d, want %d", got, kind)
	}
	if len(data) != HeaderSize+bodySize {
		return nil, errorsmod.Wrapf(ErrInvalidRecord, "length %d, want %d", len(data), HeaderSize+bodySize)
	}
	return &Decoder{buf: data, off: HeaderSize}, nil
}

func (d *Decoder) Address() address.Address {
	var a address.Address
	copy(a[:], d.buf[d.off:d.off+address.Size])
	d.off += address.Size
	return a
}

func (d *Decoder) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *Decoder) Int64() int64 {
	return int64(d.Uint64())
}

func (d *Decoder) Uint32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *Decoder) Uint16() uint16 {
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *Decoder) Uint8() uint8 {
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *Decoder) Bool() bool {
	return d.Uint8() != 0
}

func (d *Decoder) Skip(n int) {
	d.off += n
}
