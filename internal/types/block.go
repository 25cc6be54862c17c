package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Header is the Ethereum-shaped block header described in spec §3. We
// reuse go-ethereum's header layout (and its RLP/hash rules) directly,
// since the node's block hash is defined as keccak256(RLP(header)) over
// exactly this canonical layout (spec §6).
type Header = ethtypes.Header

// Block pairs a header with the hashes of the transactions it commits.
// Full transaction bodies live in the transaction store, indexed by
// hash; a Block only needs the ordered hash list to compute
// transactions_root and to answer block_by_hash(include_txs=false).
type Block struct {
	Header *Header
	TxHashes []common.Hash
}

// Hash returns keccak256(RLP(header)), the canonical block hash.
func (b *Block) Hash() common.Hash {
	return b.Header.Hash()
}

// Number returns the block height.
func (b *Block) Number() uint64 {
	return b.Header.Number.Uint64()
}

// ExtendedBlock adds the builder-attributed fields spec §3 calls for:
// total tip value, the payload id the block was built under, and the
// RLP-encoded size.
type ExtendedBlock struct {
	*Block
	Txs   []*Transaction

	Value            *big.Int
	PayloadID        PayloadID
	RLPSize          uint64
}

// EncodedSize RLP-encodes the header to compute ExtendedBlock.RLPSize.
func EncodedSize(h *Header) uint64 {
	b, err := rlp.EncodeToBytes(h)
	if err != nil {
		return 0
	}
	return uint64(len(b))
}

// EmptyRootHash is the RLP-encoded-empty-list keccak, used for
// transactions_root/receipts_root/withdrawals_root of an empty block.
var EmptyRootHash = ethtypes.EmptyRootHash
