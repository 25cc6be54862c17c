package trie

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryNodeStore is an in-memory NodeStore, used by tests and by the
// `in-memory` CLI db backend (spec §6).
type MemoryNodeStore struct {
	mu    sync.RWMutex
	nodes map[common.Hash][]byte
}

func NewMemoryNodeStore() *MemoryNodeStore {
	return &MemoryNodeStore{nodes: make(map[common.Hash][]byte)}
}

func (m *MemoryNodeStore) Get(hash common.Hash) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.nodes[hash]
	return b, ok, nil
}

func (m *MemoryNodeStore) Put(hash common.Hash, encoded []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[hash] = encoded
	return nil
}
