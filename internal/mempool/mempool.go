// Package mempool implements C4: a hash-keyed pending-transaction pool
// feeding block builds, grounded on the teacher's mempool package
// idiom (cosmossdk.io/log-tagged logger, sync.Mutex-guarded pool,
// fee-priority iteration order).
package mempool

import (
	"errors"
	"sort"
	"sync"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/moved-network/moved/internal/types"
)

var (
	ErrAlreadyKnown = errors.New("mempool: transaction already known")
	ErrPoolFull     = errors.New("mempool: pool is at capacity")
)

// Pool is C4. Transactions are keyed by hash and held until they are
// drained into a block build or explicitly evicted.
type Pool struct {
	mtx     sync.Mutex
	logger  log.Logger
	pending map[common.Hash]*types.Transaction
	order   []common.Hash // insertion order, for FIFO fallback
	maxSize int
}

func New(logger log.Logger, maxSize int) *Pool {
	return &Pool{
		logger:  logger.With(log.ModuleKey, "mempool"),
		pending: make(map[common.Hash]*types.Transaction),
		maxSize: maxSize,
	}
}

// Add inserts tx into the pool. Returns ErrAlreadyKnown for a duplicate
// hash and ErrPoolFull once maxSize is reached (0 means unbounded).
func (p *Pool) Add(tx *types.Transaction) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	h := tx.Hash()
	if _, ok := p.pending[h]; ok {
		return ErrAlreadyKnown
	}
	if p.maxSize > 0 && len(p.pending) >= p.maxSize {
		return ErrPoolFull
	}
	p.pending[h] = tx
	p.order = append(p.order, h)
	p.logger.Debug("transaction added", "hash", h, "pending", len(p.pending))
	return nil
}

// Remove evicts a transaction, e.g. after it lands in a committed block
// or is displaced by a re-org.
func (p *Pool) Remove(hash common.Hash) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash common.Hash) {
	if _, ok := p.pending[hash]; !ok {
		return
	}
	delete(p.pending, hash)
	for i, h := range p.order {
		if h == hash {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Get returns a pending transaction by hash.
func (p *Pool) Get(hash common.Hash) (*types.Transaction, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	tx, ok := p.pending[hash]
	return tx, ok
}

// Len reports the number of pending transactions.
func (p *Pool) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.pending)
}

// Drain removes and returns up to limit pending transactions, ordered
// by effective gas price (descending) and then by insertion order for
// ties, mirroring the teacher's price-and-nonce iterator without the
// cross-pool EVM/Cosmos merge this node has no use for. limit <= 0
// means "all of them".
func (p *Pool) Drain(limit int) []*types.Transaction {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	ordered := make([]common.Hash, len(p.order))
	copy(ordered, p.order)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := p.pending[ordered[i]], p.pending[ordered[j]]
		return effectiveGasPrice(a) > effectiveGasPrice(b)
	})

	if limit <= 0 || limit > len(ordered) {
		limit = len(ordered)
	}
	out := make([]*types.Transaction, 0, limit)
	for _, h := range ordered[:limit] {
		out = append(out, p.pending[h])
		p.removeLocked(h)
	}
	return out
}

// Iter returns a snapshot of all pending transactions without removing
// them, used by JSON-RPC pending-block queries.
func (p *Pool) Iter() []*types.Transaction {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]*types.Transaction, 0, len(p.order))
	for _, h := range p.order {
		out = append(out, p.pending[h])
	}
	return out
}

func effectiveGasPrice(tx *types.Transaction) uint64 {
	if tx == nil || tx.Canonical == nil || tx.Canonical.Raw == nil {
		return 0
	}
	return tx.Canonical.Raw.GasPrice().Uint64()
}
