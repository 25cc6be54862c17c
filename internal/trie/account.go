package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// AccountSummary is the EVM account representation stored as a Move
// resource at the EVM-native pseudo-account (spec §3, §4.1).
type AccountSummary struct {
	Nonce       uint64
	Balance     *uint256.Int
	CodeHash    common.Hash
	StorageRoot common.Hash
}

// rlpAccountSummary is the wire shape (uint256 has no native RLP
// encoder, so it is carried as big-endian bytes).
type rlpAccountSummary struct {
	Nonce       uint64
	Balance     []byte
	CodeHash    common.Hash
	StorageRoot common.Hash
}

// EmptyAccountSummary returns a freshly materialized, zero-value summary.
func EmptyAccountSummary() *AccountSummary {
	return &AccountSummary{Balance: new(uint256.Int)}
}

// Encode RLP-encodes the summary for storage as the EVM-account tree
// value.
func (a *AccountSummary) Encode() []byte {
	b, err := rlp.EncodeToBytes(&rlpAccountSummary{
		Nonce:       a.Nonce,
		Balance:     a.Balance.Bytes(),
		CodeHash:    a.CodeHash,
		StorageRoot: a.StorageRoot,
	})
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeAccountSummary inverts Encode.
func DecodeAccountSummary(b []byte) (*AccountSummary, error) {
	var raw rlpAccountSummary
	if err := rlp.DecodeBytes(b, &raw); err != nil {
		return nil, err
	}
	return &AccountSummary{
		Nonce:       raw.Nonce,
		Balance:     new(uint256.Int).SetBytes(raw.Balance),
		CodeHash:    raw.CodeHash,
		StorageRoot: raw.StorageRoot,
	}, nil
}
