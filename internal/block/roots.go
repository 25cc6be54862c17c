package block

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/moved-network/moved/internal/trie"
)

// orderedTrieRoot builds a throwaway trie keyed by the RLP encoding of
// each item's index (go-ethereum's DeriveSha scheme for transactions
// and receipts roots) and returns its root hash. Reusing this node's
// own hex-radix trie here, instead of go-ethereum's internal
// DeriveSha/TrieHasher plumbing, keeps the ordered-root computation on
// the same stable primitives (Keccak256 + RLP) the rest of C1 is built
// from.
// OrderedTrieRoot is exported so the engine API's new_payload
// validation (C11) can recompute transactions_root from a payload's
// raw transaction bytes the same way the block builder does.
func OrderedTrieRoot(items [][]byte) common.Hash {
	return orderedTrieRoot(items)
}

func orderedTrieRoot(items [][]byte) common.Hash {
	t := trie.New(trie.NewMemoryNodeStore(), common.Hash{})
	for i, item := range items {
		key, err := rlp.EncodeToBytes(uint(i))
		if err != nil {
			continue
		}
		_ = t.Put(key, item)
	}
	return t.Hash()
}
