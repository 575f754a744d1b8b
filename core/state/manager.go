package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"mapchain/storage"
)

// Manager mediates typed record access on top of the raw key-value store.
// Values are RLP encoded. Modules derive their own record keys; the manager
// stores records under exactly the key bytes it is handed, so the derived
// addresses published by each module double as the on-disk layout.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	ok, err := m.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVHas reports whether a record exists under the supplied key.
func (m *Manager) KVHas(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return m.db.Has(key)
}

// Batch stages typed record writes that commit through a single database
// write. Transitions touching more than one record use a batch so the store
// never exposes a partially applied transition.
type Batch struct {
	inner storage.Batch
}

// NewBatch opens an empty staging area against the manager's database.
func (m *Manager) NewBatch() *Batch {
	return &Batch{inner: m.db.NewBatch()}
}

// KVPut stages the provided value under the supplied key using RLP encoding.
func (b *Batch) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	b.inner.Put(key, encoded)
	return nil
}

// Commit applies every staged write atomically.
func (b *Batch) Commit() error {
	return b.inner.Write()
}
