package actor

import (
	"github.com/moved-network/moved/internal/blockhash"
	"github.com/moved-network/moved/internal/mempool"
	"github.com/moved-network/moved/internal/payload"
	"github.com/moved-network/moved/internal/stateroot"
	"github.com/moved-network/moved/internal/store"
	"github.com/moved-network/moved/internal/trie"
)

// Reader is the ApplicationReader handle of spec §5: a read-only view
// over the same underlying stores the writer owns, cheap to clone and
// safe to share across concurrently-executing RPC requests since every
// field here is either immutable after construction or already
// synchronized by its own concurrency-safe type (trie.StateTrie nodes
// are content-addressed and never mutated in place; the stores guard
// themselves).
type Reader struct {
	ChainID  uint64
	State    *trie.StateTrie
	Blocks   store.BlockStore
	Txs      store.TransactionStore
	Receipts store.ReceiptStore
	Roots    *stateroot.Index
	Hashes   *blockhash.Ring
	Registry *payload.Registry
	Mempool  *mempool.Pool
}

// NewReader builds a Reader over the same stores an Application wraps.
func NewReader(chainID uint64, app *Application) *Reader {
	return &Reader{
		ChainID:  chainID,
		State:    app.State,
		Blocks:   app.Blocks,
		Txs:      app.Txs,
		Receipts: app.Receipts,
		Roots:    app.Roots,
		Hashes:   app.Hashes,
		Registry: app.Registry,
		Mempool:  app.Mempool,
	}
}

// Resolver returns a state-tree reader fixed at root.
func (r *Reader) Resolver(root [32]byte) *trie.Resolver {
	return r.State.Resolver(root)
}

// LatestRoot returns the most recently committed state root, or the
// trie's current root if no block has been committed yet (genesis).
func (r *Reader) LatestRoot() [32]byte {
	if _, root, ok := r.Roots.Latest(); ok {
		return root
	}
	return r.State.StateRoot()
}
