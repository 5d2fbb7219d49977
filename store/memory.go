package store

import (
	"context"
	"sync"

	"github.com/rexbrahh/lp-vault/address"
)

// Memory is an in-process Store. Update calls are serialised by a single
// writer lock and buffer their writes until fn succeeds.
type Memory struct {
	mu      sync.RWMutex
	records map[address.Address][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[address.Address][]byte)}
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{base: m.records, pending: make(map[address.Address][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for key, value := range tx.pending {
		m.records[key] = value
	}
	return nil
}

// View implements Store.
func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{base: m.records, readOnly: true})
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}

// Len reports the number of committed records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

type memoryTx struct {
	base     map[address.Address][]byte
	pending  map[address.Address][]byte
	readOnly bool
}

func (t *memoryTx) lookup(key address.Address) ([]byte, bool) {
	if v, ok := t.pending[key]; ok {
		return v, true
	}
	v, ok := t.base[key]
	return v, ok
}

func (t *memoryTx) Get(_ context.Context, key address.Address) ([]byte, error) {
	v, ok := t.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (t *memoryTx) Insert(_ context.Context, key address.Address, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, ok := t.lookup(key); ok {
		return ErrExists
	}
	t.pending[key] = clone(value)
	return nil
}

func (t *memoryTx) Put(_ context.Context, key address.Address, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, ok := t.lookup(key); !ok {
		return ErrNotFound
	}
	t.pending[key] = clone(value)
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
