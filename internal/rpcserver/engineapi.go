package rpcserver

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/moved-network/moved/internal/engineapi"
	"github.com/moved-network/moved/internal/types"
)

// ForkchoiceStateV1 is the Engine API forkchoice_updated head/safe/final
// wire shape (spec §4.11).
type ForkchoiceStateV1 struct {
	HeadBlockHash      common.Hash `json:"headBlockHash"`
	SafeBlockHash      common.Hash `json:"safeBlockHash"`
	FinalizedBlockHash common.Hash `json:"finalizedBlockHash"`
}

// PayloadAttributesV3 is the forkchoice_updated attributes wire shape,
// extended (non-standard, Optimism-style) with transactions/noTxPool/
// gasLimit, which this node's sequencer-driven build (spec §4.9) needs.
type PayloadAttributesV3 struct {
	Timestamp             hexutil.Uint64    `json:"timestamp"`
	PrevRandao            common.Hash       `json:"prevRandao"`
	SuggestedFeeRecipient common.Address    `json:"suggestedFeeRecipient"`
	Withdrawals           []*WithdrawalV1   `json:"withdrawals"`
	ParentBeaconBlockRoot *common.Hash      `json:"parentBeaconBlockRoot"`
	Transactions          []hexutil.Bytes   `json:"transactions,omitempty"`
	NoTxPool              bool              `json:"noTxPool,omitempty"`
	GasLimit              *hexutil.Uint64   `json:"gasLimit,omitempty"`
}

type WithdrawalV1 struct {
	Index          hexutil.Uint64 `json:"index"`
	ValidatorIndex hexutil.Uint64 `json:"validatorIndex"`
	Address        common.Address `json:"address"`
	Amount         hexutil.Uint64 `json:"amount"`
}

// PayloadStatusV1 is the Engine API response status wire shape.
type PayloadStatusV1 struct {
	Status          string       `json:"status"`
	LatestValidHash *common.Hash `json:"latestValidHash"`
	ValidationError *string      `json:"validationError"`
}

// ForkchoiceUpdatedResultV1 is forkchoice_updated's response shape.
type ForkchoiceUpdatedResultV1 struct {
	PayloadStatus PayloadStatusV1 `json:"payloadStatus"`
	PayloadID     *hexutil.Bytes  `json:"payloadId"`
}

// ExecutionPayloadV3 is the Engine API execution payload wire shape
// new_payload/get_payload exchange.
type ExecutionPayloadV3 struct {
	ParentHash    common.Hash     `json:"parentHash"`
	FeeRecipient  common.Address  `json:"feeRecipient"`
	StateRoot     common.Hash     `json:"stateRoot"`
	ReceiptsRoot  common.Hash     `json:"receiptsRoot"`
	LogsBloom     hexutil.Bytes   `json:"logsBloom"`
	PrevRandao    common.Hash     `json:"prevRandao"`
	BlockNumber   hexutil.Uint64  `json:"blockNumber"`
	GasLimit      hexutil.Uint64  `json:"gasLimit"`
	GasUsed       hexutil.Uint64  `json:"gasUsed"`
	Timestamp     hexutil.Uint64  `json:"timestamp"`
	ExtraData     hexutil.Bytes   `json:"extraData"`
	BaseFeePerGas *hexutil.Big    `json:"baseFeePerGas"`
	BlockHash     common.Hash     `json:"blockHash"`
	Transactions  []hexutil.Bytes `json:"transactions"`
	Withdrawals   []*WithdrawalV1 `json:"withdrawals"`
	BlobGasUsed   *hexutil.Uint64 `json:"blobGasUsed,omitempty"`
	ExcessBlobGas *hexutil.Uint64 `json:"excessBlobGas,omitempty"`
}

// EngineNamespace implements the "engine" namespace, translating
// between the Engine API's JSON wire shapes and this node's internal
// engineapi.EngineAPI (C11), which operates on plain Go types.
type EngineNamespace struct {
	Inner *engineapi.EngineAPI
}

func (e *EngineNamespace) ForkchoiceUpdatedV3(ctx context.Context, fc ForkchoiceStateV1, attrs *PayloadAttributesV3) (*ForkchoiceUpdatedResultV1, error) {
	state := &types.ForkchoiceState{
		HeadBlockHash:      fc.HeadBlockHash,
		SafeBlockHash:      fc.SafeBlockHash,
		FinalizedBlockHash: fc.FinalizedBlockHash,
	}
	res, err := e.Inner.ForkchoiceUpdated(ctx, state, toInternalAttrs(attrs))
	if err != nil {
		return nil, translateErr(err)
	}
	return toWireFCUResult(res), nil
}

func (e *EngineNamespace) GetPayloadV3(ctx context.Context, id hexutil.Bytes) (*ExecutionPayloadV3, error) {
	var payloadID types.PayloadID
	copy(payloadID[:], id)
	eb, err := e.Inner.GetPayload(ctx, payloadID)
	if err != nil {
		return nil, newRPCError(codeUnknownPayload, err.Error())
	}
	return toWirePayload(eb), nil
}

func (e *EngineNamespace) NewPayloadV3(payload *ExecutionPayloadV3, blobHashes []common.Hash, parentBeaconRoot *common.Hash) (*PayloadStatusV1, error) {
	status, err := e.Inner.NewPayload(toInternalPayload(payload), blobHashes, parentBeaconRoot)
	if err != nil {
		return nil, translateErr(err)
	}
	return &PayloadStatusV1{Status: status.Status, LatestValidHash: status.LatestValidHash, ValidationError: status.ValidationError}, nil
}

func toInternalAttrs(a *PayloadAttributesV3) *types.PayloadAttributes {
	if a == nil {
		return nil
	}
	out := &types.PayloadAttributes{
		Timestamp:             uint64(a.Timestamp),
		PrevRandao:            a.PrevRandao,
		SuggestedFeeRecipient: a.SuggestedFeeRecipient,
		ParentBeaconBlockRoot: a.ParentBeaconBlockRoot,
		NoTxPool:              a.NoTxPool,
	}
	for _, w := range a.Withdrawals {
		out.Withdrawals = append(out.Withdrawals, &types.Withdrawal{
			Index: uint64(w.Index), ValidatorIndex: uint64(w.ValidatorIndex), Address: w.Address, Amount: uint64(w.Amount),
		})
	}
	for _, tx := range a.Transactions {
		out.Transactions = append(out.Transactions, []byte(tx))
	}
	if a.GasLimit != nil {
		gl := uint64(*a.GasLimit)
		out.GasLimit = &gl
	}
	return out
}

func toWireFCUResult(r *engineapi.ForkchoiceUpdatedResult) *ForkchoiceUpdatedResultV1 {
	out := &ForkchoiceUpdatedResultV1{
		PayloadStatus: PayloadStatusV1{
			Status:          r.PayloadStatus.Status,
			LatestValidHash: r.PayloadStatus.LatestValidHash,
			ValidationError: r.PayloadStatus.ValidationError,
		},
	}
	if r.PayloadID != nil {
		b := hexutil.Bytes(r.PayloadID[:])
		out.PayloadID = &b
	}
	return out
}

func toWirePayload(eb *types.ExtendedBlock) *ExecutionPayloadV3 {
	h := eb.Block.Header
	out := &ExecutionPayloadV3{
		ParentHash:    h.ParentHash,
		FeeRecipient:  h.Coinbase,
		StateRoot:     h.Root,
		ReceiptsRoot:  h.ReceiptHash,
		LogsBloom:     h.Bloom[:],
		PrevRandao:    h.MixDigest,
		BlockNumber:   hexutil.Uint64(h.Number.Uint64()),
		GasLimit:      hexutil.Uint64(h.GasLimit),
		GasUsed:       hexutil.Uint64(h.GasUsed),
		Timestamp:     hexutil.Uint64(h.Time),
		ExtraData:     h.Extra,
		BaseFeePerGas: (*hexutil.Big)(h.BaseFee),
		BlockHash:     eb.Block.Hash(),
		Withdrawals:   []*WithdrawalV1{},
	}
	for _, tx := range eb.Txs {
		if tx.Canonical != nil {
			b, _ := tx.Canonical.Raw.MarshalBinary()
			out.Transactions = append(out.Transactions, b)
		}
	}
	return out
}

func toInternalPayload(p *ExecutionPayloadV3) *types.ExecutionPayload {
	out := &types.ExecutionPayload{
		ParentHash:    p.ParentHash,
		FeeRecipient:  p.FeeRecipient,
		StateRoot:     p.StateRoot,
		ReceiptsRoot:  p.ReceiptsRoot,
		PrevRandao:    p.PrevRandao,
		BlockNumber:   uint64(p.BlockNumber),
		GasLimit:      uint64(p.GasLimit),
		GasUsed:       uint64(p.GasUsed),
		Timestamp:     uint64(p.Timestamp),
		ExtraData:     p.ExtraData,
		BaseFeePerGas: baseFeeOf(p.BaseFeePerGas),
		BlockHash:     p.BlockHash,
	}
	copy(out.LogsBloom[:], p.LogsBloom)
	for _, tx := range p.Transactions {
		out.Transactions = append(out.Transactions, []byte(tx))
	}
	for _, w := range p.Withdrawals {
		out.Withdrawals = append(out.Withdrawals, &types.Withdrawal{
			Index: uint64(w.Index), ValidatorIndex: uint64(w.ValidatorIndex), Address: w.Address, Amount: uint64(w.Amount),
		})
	}
	if p.BlobGasUsed != nil {
		v := uint64(*p.BlobGasUsed)
		out.BlobGasUsed = &v
	}
	if p.ExcessBlobGas != nil {
		v := uint64(*p.ExcessBlobGas)
		out.ExcessBlobGas = &v
	}
	return out
}

func baseFeeOf(b *hexutil.Big) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return b.ToInt()
}
