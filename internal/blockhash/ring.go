// Package blockhash implements C3: a bounded ring buffer of the most
// recent block hashes, backing the EVM BLOCKHASH opcode (spec §4.3)
// which only defines results for the last 256 blocks.
package blockhash

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Size is the window the EVM BLOCKHASH opcode can see, mirroring
// go-ethereum's own 256-block rule.
const Size = 256

// Ring is C3: push is called once per committed block, in order;
// HashByNumber answers "what was the hash at height n" for n within
// the trailing Size-block window, and common.Hash{} otherwise.
type Ring struct {
	mu      sync.RWMutex
	hashes  [Size]common.Hash
	heights [Size]uint64
	valid   [Size]bool
	head    uint64
	hasHead bool
}

func New() *Ring { return &Ring{} }

// Push records the hash of the block at height. Must be called in
// strictly increasing height order.
func (r *Ring) Push(height uint64, hash common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := height % Size
	r.hashes[slot] = hash
	r.heights[slot] = height
	r.valid[slot] = true
	r.head = height
	r.hasHead = true
}

// HashByNumber returns the hash recorded at height, if it is still
// within the trailing window and has been pushed.
func (r *Ring) HashByNumber(height uint64) (common.Hash, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasHead || height > r.head {
		return common.Hash{}, false
	}
	if r.head-height >= Size {
		return common.Hash{}, false
	}
	slot := height % Size
	if !r.valid[slot] || r.heights[slot] != height {
		return common.Hash{}, false
	}
	return r.hashes[slot], true
}
