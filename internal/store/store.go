// Package store defines the persistence ports the rest of the node
// depends on, plus in-memory implementations for tests and the
// `in-memory` CLI db backend. This package has no durable
// (cosmos-db-backed) implementation. The ports keep
// every other component free of storage-engine concerns, the same
// separation the teacher draws between its keeper logic and the
// underlying `cosmos-db`/IAVL store it's layered on.
package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/moved-network/moved/internal/types"
)

type BlockStore interface {
	PutBlock(b *types.ExtendedBlock) error
	BlockByHash(hash common.Hash) (*types.ExtendedBlock, bool, error)
	BlockByNumber(number uint64) (*types.ExtendedBlock, bool, error)
	Latest() (*types.ExtendedBlock, bool, error)
}

type TransactionStore interface {
	PutTransaction(blockHash common.Hash, index uint64, tx *types.Transaction) error
	TransactionByHash(hash common.Hash) (*types.Transaction, common.Hash, uint64, bool, error)
}

type ReceiptStore interface {
	PutReceipt(r *types.Receipt) error
	ReceiptByHash(txHash common.Hash) (*types.Receipt, bool, error)
	ReceiptsByBlockHash(blockHash common.Hash) ([]*types.Receipt, error)
}

// MemoryStore implements BlockStore, TransactionStore and ReceiptStore
// in memory, guarded by a single mutex since it is always accessed
// either by the single writer or by readers taking a consistent
// snapshot (spec §5).
type MemoryStore struct {
	mu sync.RWMutex

	byHash   map[common.Hash]*types.ExtendedBlock
	byNumber map[uint64]*types.ExtendedBlock
	latest   uint64
	hasLatest bool

	txs       map[common.Hash]*types.Transaction
	txLoc     map[common.Hash][2]interface{} // [blockHash, index]
	receipts  map[common.Hash]*types.Receipt
	byBlock   map[common.Hash][]*types.Receipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash:   make(map[common.Hash]*types.ExtendedBlock),
		byNumber: make(map[uint64]*types.ExtendedBlock),
		txs:      make(map[common.Hash]*types.Transaction),
		txLoc:    make(map[common.Hash][2]interface{}),
		receipts: make(map[common.Hash]*types.Receipt),
		byBlock:  make(map[common.Hash][]*types.Receipt),
	}
}

func (m *MemoryStore) PutBlock(b *types.ExtendedBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := b.Hash()
	m.byHash[h] = b
	m.byNumber[b.Number()] = b
	n := b.Number()
	if !m.hasLatest || n > m.latest {
		m.latest = n
		m.hasLatest = true
	}
	return nil
}

func (m *MemoryStore) BlockByHash(hash common.Hash) (*types.ExtendedBlock, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byHash[hash]
	return b, ok, nil
}

func (m *MemoryStore) BlockByNumber(number uint64) (*types.ExtendedBlock, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byNumber[number]
	return b, ok, nil
}

func (m *MemoryStore) Latest() (*types.ExtendedBlock, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasLatest {
		return nil, false, nil
	}
	b, ok := m.byNumber[m.latest]
	return b, ok, nil
}

func (m *MemoryStore) PutTransaction(blockHash common.Hash, index uint64, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := tx.Hash()
	m.txs[h] = tx
	m.txLoc[h] = [2]interface{}{blockHash, index}
	return nil
}

func (m *MemoryStore) TransactionByHash(hash common.Hash) (*types.Transaction, common.Hash, uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[hash]
	if !ok {
		return nil, common.Hash{}, 0, false, nil
	}
	loc := m.txLoc[hash]
	return tx, loc[0].(common.Hash), loc[1].(uint64), true, nil
}

func (m *MemoryStore) PutReceipt(r *types.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := r.Inner.TxHash
	m.receipts[h] = r
	m.byBlock[r.BlockHash] = append(m.byBlock[r.BlockHash], r)
	return nil
}

func (m *MemoryStore) ReceiptByHash(txHash common.Hash) (*types.Receipt, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[txHash]
	return r, ok, nil
}

func (m *MemoryStore) ReceiptsByBlockHash(blockHash common.Hash) ([]*types.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byBlock[blockHash], nil
}
