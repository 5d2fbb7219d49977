// Package store persists ledger records keyed by their derived address.
// Every command runs inside one Update call so that its reads, writes and
// balance transfers commit together or not at all.
package store

import (
	"context"
	"errors"

	"github.com/rexbrahh/lp-vault/address"
)

var (
	// ErrNotFound is returned when no record exists at an address.
	ErrNotFound = errors.New("store: record not found")
	// ErrExists is returned by Insert when the address is already occupied.
	ErrExists = errors.New("store: record already exists")
	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("store: read-only transaction")
)

// Tx is the record view available inside a transaction.
type Tx interface {
	// Get returns the encoded record at key or ErrNotFound.
	Get(ctx context.Context, key address.Address) ([]byte, error)
	// Insert creates a record and fails with ErrExists if key is occupied.
	Insert(ctx context.Context, key address.Address, value []byte) error
	// Put overwrites an existing record and fails with ErrNotFound otherwise.
	Put(ctx context.Context, key address.Address, value []byte) error
}

// Store runs transactions against the record set.
type Store interface {
	// Update runs fn in a read-write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}
