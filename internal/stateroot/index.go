// Package stateroot implements C2: an append-only height -> state-root
// index enabling archival reads of past state (spec §4.2).
package stateroot

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Store is the backing-store port: any ordered KV with durable writes.
type Store interface {
	Get(height uint64) (common.Hash, bool, error)
	Put(height uint64, root common.Hash) error
}

// Index is C2. Writes must happen in height order 0,1,2,... (invariant 4).
type Index struct {
	mu      sync.RWMutex
	store   Store
	latest  uint64
	hasLatest bool
}

func New(store Store) *Index {
	return &Index{store: store}
}

// Record appends root at height. height must be exactly latest+1 (or 0
// for the very first record); anything else is a programmer error since
// the block builder only ever calls this once per committed block, in
// order.
func (idx *Index) Record(height uint64, root common.Hash) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.hasLatest && height != idx.latest+1 {
		return fmt.Errorf("stateroot: out-of-order write at height %d, expected %d", height, idx.latest+1)
	}
	if !idx.hasLatest && height != 0 {
		return fmt.Errorf("stateroot: out-of-order write at height %d, expected 0", height)
	}
	if err := idx.store.Put(height, root); err != nil {
		return err
	}
	idx.latest = height
	idx.hasLatest = true
	return nil
}

// RootAt returns the state root committed at height, or false if no
// root has been recorded yet (e.g. before genesis).
func (idx *Index) RootAt(height uint64) (common.Hash, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.Get(height)
}

// Latest returns the most recently recorded (height, root) pair.
func (idx *Index) Latest() (uint64, common.Hash, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.hasLatest {
		return 0, common.Hash{}, false
	}
	root, _, _ := idx.store.Get(idx.latest)
	return idx.latest, root, true
}

// MemoryStore is an in-memory Store, used by the in-memory CLI db
// backend and by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[uint64]common.Hash
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{data: make(map[uint64]common.Hash)} }

func (m *MemoryStore) Get(height uint64) (common.Hash, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[height]
	return r, ok, nil
}

func (m *MemoryStore) Put(height uint64, root common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[height] = root
	return nil
}
