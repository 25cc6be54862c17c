package types

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// PayloadID is the 8-byte identifier derived from payload attributes and
// head, per spec §3. Modeled as op-program's engine.PayloadID is
// (other_examples/..._l2_engine_api.go.go), the closest structural match
// in the retrieval pack for this exact id scheme.
type PayloadID [8]byte

// payloadIDVersion overwrites byte 0 of the SHA-256 digest, distinguishing
// this node's id derivation from other payload-id schemes sharing the
// same input shape.
const payloadIDVersion = byte(3)

func (id PayloadID) String() string {
	return "0x" + common.Bytes2Hex(id[:])
}

// Withdrawal mirrors the Ethereum withdrawal shape. This node never
// produces non-empty withdrawals (spec §3), but the field is carried
// through payload attributes for Engine API compatibility.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        common.Address
	Amount         uint64
}

// PayloadAttributes is the Engine API forkchoice_updated attributes
// payload (spec §4.11).
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao             common.Hash
	SuggestedFeeRecipient  common.Address
	Withdrawals            []*Withdrawal
	ParentBeaconBlockRoot  *common.Hash
	Transactions           [][]byte
	NoTxPool               bool
	GasLimit               *uint64
}

// ForkchoiceState is the Engine API forkchoice_updated head/safe/final
// triple (spec §4.11). Only Head is interpreted by this node; the
// others are accepted but not acted upon (finality is the driver's
// concern, spec §1).
type ForkchoiceState struct {
	HeadBlockHash      common.Hash
	SafeBlockHash      common.Hash
	FinalizedBlockHash common.Hash
}

// NewPayloadID derives the deterministic payload id described in spec
// §3: SHA-256 over (parent_hash || timestamp_be || prev_randao ||
// fee_recipient || RLP(withdrawals) || [beacon_root] || [no_tx_pool ||
// n || tx_hashes] || gas_limit_be); byte 0 of the digest is overwritten
// with the version, and the first 8 bytes become the id.
func NewPayloadID(parentHash common.Hash, attrs *PayloadAttributes) PayloadID {
	h := sha256.New()
	h.Write(parentHash[:])

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], attrs.Timestamp)
	h.Write(tsBuf[:])

	h.Write(attrs.PrevRandao[:])
	h.Write(attrs.SuggestedFeeRecipient[:])

	wBytes, _ := rlp.EncodeToBytes(withdrawalsForRLP(attrs.Withdrawals))
	h.Write(wBytes)

	if attrs.ParentBeaconBlockRoot != nil {
		h.Write(attrs.ParentBeaconBlockRoot[:])
	}

	if attrs.NoTxPool || len(attrs.Transactions) > 0 {
		var flagBuf [1]byte
		if attrs.NoTxPool {
			flagBuf[0] = 1
		}
		h.Write(flagBuf[:])

		var nBuf [8]byte
		binary.BigEndian.PutUint64(nBuf[:], uint64(len(attrs.Transactions)))
		h.Write(nBuf[:])

		for _, tx := range attrs.Transactions {
			h.Write(crypto.Keccak256(tx))
		}
	}

	var glBuf [8]byte
	if attrs.GasLimit != nil {
		binary.BigEndian.PutUint64(glBuf[:], *attrs.GasLimit)
	}
	h.Write(glBuf[:])

	sum := h.Sum(nil)
	sum[0] = payloadIDVersion

	var id PayloadID
	copy(id[:], sum[:8])
	return id
}

// rlpWithdrawal is the RLP-encodable withdrawal shape (Withdrawal itself
// stays a plain Go struct so callers outside this package don't need the
// rlp tags).
type rlpWithdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        common.Address
	Amount         uint64
}

func withdrawalsForRLP(ws []*Withdrawal) []rlpWithdrawal {
	out := make([]rlpWithdrawal, len(ws))
	for i, w := range ws {
		out[i] = rlpWithdrawal{w.Index, w.ValidatorIndex, w.Address, w.Amount}
	}
	return out
}
