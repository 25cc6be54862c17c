package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ExecutionPayload is the Engine API V3 execution payload shape
// new_payload validates (spec §4.11). Blob fields are always expected
// zero/empty by this node (spec §3: no blobs), carried here only so
// new_payload can reject a non-empty value explicitly rather than
// silently ignoring it.
type ExecutionPayload struct {
	ParentHash    common.Hash
	FeeRecipient  common.Address
	StateRoot     common.Hash
	ReceiptsRoot  common.Hash
	LogsBloom     ethtypes.Bloom
	PrevRandao    common.Hash
	BlockNumber   uint64
	GasLimit      uint64
	GasUsed       uint64
	Timestamp     uint64
	ExtraData     []byte
	BaseFeePerGas *big.Int
	BlockHash     common.Hash
	Transactions  [][]byte
	Withdrawals   []*Withdrawal

	BlobGasUsed   *uint64
	ExcessBlobGas *uint64
}

// ToHeader reconstructs the canonical header this payload claims to
// represent, for recomputing and comparing its hash (spec §4.11 step
// a). txRoot, withdrawalsHash and parentBeaconRoot are threaded in
// separately since transactions_root must be derived from
// Transactions by the caller (this package cannot depend on the trie
// package without an import cycle), and the beacon root lives outside
// the payload's own fields in the Engine API V3 wire format.
func (p *ExecutionPayload) ToHeader(txRoot, withdrawalsHash common.Hash, parentBeaconRoot *common.Hash) *Header {
	return &Header{
		ParentHash:       p.ParentHash,
		UncleHash:        ethtypes.EmptyUncleHash,
		Coinbase:         p.FeeRecipient,
		Root:             p.StateRoot,
		TxHash:           txRoot,
		ReceiptHash:      p.ReceiptsRoot,
		Bloom:            p.LogsBloom,
		Difficulty:       new(big.Int),
		Number:           new(big.Int).SetUint64(p.BlockNumber),
		GasLimit:         p.GasLimit,
		GasUsed:          p.GasUsed,
		Time:             p.Timestamp,
		Extra:            p.ExtraData,
		MixDigest:        p.PrevRandao,
		BaseFee:          p.BaseFeePerGas,
		WithdrawalsHash:  &withdrawalsHash,
		BlobGasUsed:      p.BlobGasUsed,
		ExcessBlobGas:    p.ExcessBlobGas,
		ParentBeaconRoot: parentBeaconRoot,
	}
}
