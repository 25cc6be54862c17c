package rpcserver

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/moved-network/moved/internal/execution"
	"github.com/moved-network/moved/internal/types"
)

// CallArgs is the eth_call/eth_estimateGas transaction-shape argument,
// mirroring go-ethereum's ethapi.TransactionArgs wire shape closely
// enough for this node's simulation needs without pulling in its much
// larger access-list/blob-tx surface.
type CallArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

// toCanonicalTx builds an unsigned CanonicalTx for simulation: Signer is
// taken directly from args.From rather than recovered from a signature,
// since eth_call/eth_estimateGas never carry one (spec §4.10).
func (a CallArgs) toCanonicalTx(chainID uint64) *types.CanonicalTx {
	var from common.Address
	if a.From != nil {
		from = *a.From
	}
	var gas uint64 = 50_000_000
	if a.Gas != nil {
		gas = uint64(*a.Gas)
	}
	gasPrice := new(big.Int)
	if a.GasPrice != nil {
		gasPrice = a.GasPrice.ToInt()
	}
	value := new(big.Int)
	if a.Value != nil {
		value = a.Value.ToInt()
	}
	data := dataOf(a.Input, a.Data)

	raw := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    0,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       a.To,
		Value:    value,
		Data:     data,
	})

	tx := &types.CanonicalTx{Raw: raw, Signer: from}
	_ = types.Classify(tx, execution.DecodeCreatePayload, execution.DecodeCallPayload)
	return tx
}

func dataOf(input, data *hexutil.Bytes) []byte {
	if input != nil {
		return []byte(*input)
	}
	if data != nil {
		return []byte(*data)
	}
	return nil
}

// blockJSON renders an ExtendedBlock in the eth_getBlockBy* response
// shape (spec §6), matching go-ethereum's field names so existing
// client libraries parse it unmodified.
func blockJSON(eb *types.ExtendedBlock, fullTx bool) map[string]interface{} {
	h := eb.Block.Header
	out := map[string]interface{}{
		"number":           hexutil.Uint64(h.Number.Uint64()),
		"hash":             eb.Block.Hash(),
		"parentHash":       h.ParentHash,
		"nonce":            ethtypes.BlockNonce{},
		"mixHash":          h.MixDigest,
		"sha3Uncles":       h.UncleHash,
		"logsBloom":        h.Bloom,
		"stateRoot":        h.Root,
		"miner":            h.Coinbase,
		"difficulty":       (*hexutil.Big)(h.Difficulty),
		"extraData":        hexutil.Bytes(h.Extra),
		"size":             hexutil.Uint64(types.EncodedSize(h)),
		"gasLimit":         hexutil.Uint64(h.GasLimit),
		"gasUsed":          hexutil.Uint64(h.GasUsed),
		"timestamp":        hexutil.Uint64(h.Time),
		"transactionsRoot": h.TxHash,
		"receiptsRoot":     h.ReceiptHash,
		"uncles":           []common.Hash{},
		"baseFeePerGas":    (*hexutil.Big)(h.BaseFee),
		"withdrawalsRoot":  h.WithdrawalsHash,
		"withdrawals":      []*types.Withdrawal{},
	}
	if fullTx {
		txs := make([]map[string]interface{}, 0, len(eb.Txs))
		for i, tx := range eb.Txs {
			txs = append(txs, transactionJSON(tx, eb.Block.Hash(), h.Number.Uint64(), uint64(i)))
		}
		out["transactions"] = txs
	} else {
		out["transactions"] = eb.Block.TxHashes
	}
	return out
}

// transactionJSON renders one transaction in the eth_getTransactionBy*
// response shape.
func transactionJSON(tx *types.Transaction, blockHash common.Hash, blockNumber, index uint64) map[string]interface{} {
	if tx.Canonical != nil {
		raw := tx.Canonical.Raw
		v, r, s := raw.RawSignatureValues()
		out := map[string]interface{}{
			"hash":             raw.Hash(),
			"nonce":            hexutil.Uint64(raw.Nonce()),
			"blockHash":        blockHash,
			"blockNumber":      hexutil.Uint64(blockNumber),
			"transactionIndex": hexutil.Uint64(index),
			"from":             tx.Canonical.Signer,
			"to":               raw.To(),
			"value":            (*hexutil.Big)(raw.Value()),
			"gas":              hexutil.Uint64(raw.Gas()),
			"gasPrice":         (*hexutil.Big)(raw.GasPrice()),
			"input":            hexutil.Bytes(raw.Data()),
			"type":             hexutil.Uint64(raw.Type()),
			"chainId":          (*hexutil.Big)(raw.ChainId()),
			"v":                (*hexutil.Big)(v),
			"r":                (*hexutil.Big)(r),
			"s":                (*hexutil.Big)(s),
		}
		if raw.Type() == ethtypes.DynamicFeeTxType {
			out["maxFeePerGas"] = (*hexutil.Big)(raw.GasFeeCap())
			out["maxPriorityFeePerGas"] = (*hexutil.Big)(raw.GasTipCap())
		}
		return out
	}
	d := tx.Deposited
	return map[string]interface{}{
		"hash":                 d.SourceHash,
		"nonce":                hexutil.Uint64(0),
		"blockHash":            blockHash,
		"blockNumber":          hexutil.Uint64(blockNumber),
		"transactionIndex":     hexutil.Uint64(index),
		"from":                 d.From,
		"to":                   d.To,
		"value":                (*hexutil.Big)(d.Value.ToBig()),
		"mint":                 (*hexutil.Big)(d.Mint.ToBig()),
		"gas":                  hexutil.Uint64(d.GasLimit),
		"gasPrice":             (*hexutil.Big)(new(big.Int)),
		"input":                hexutil.Bytes(d.Data),
		"type":                 hexutil.Uint64(types.DepositTxType),
		"sourceHash":           d.SourceHash,
		"isSystemTx":           d.IsSystemTx,
	}
}

// receiptJSON renders a receipt in the eth_getTransactionReceipt shape.
func receiptJSON(r *types.Receipt) map[string]interface{} {
	out := map[string]interface{}{
		"transactionHash":   r.Inner.TxHash,
		"transactionIndex":  hexutil.Uint64(r.TransactionIndex),
		"blockHash":         r.BlockHash,
		"blockNumber":       hexutil.Uint64(r.BlockNumber),
		"from":              r.From,
		"to":                r.To,
		"cumulativeGasUsed": hexutil.Uint64(r.Inner.CumulativeGasUsed),
		"gasUsed":           hexutil.Uint64(r.GasUsed),
		"contractAddress":   r.ContractAddress,
		"logs":              logsOrEmpty(r.Inner.Logs),
		"logsBloom":         r.Inner.Bloom,
		"status":            hexutil.Uint64(r.Status()),
		"type":              hexutil.Uint64(r.Inner.Type),
		"effectiveGasPrice": (*hexutil.Big)(r.EffectiveGasPrice),
	}
	if r.IsDeposit {
		out["depositNonce"] = r.DepositNonce
		out["depositReceiptVersion"] = r.DepositReceiptVersion
	}
	return out
}

func logsOrEmpty(logs []*ethtypes.Log) []*ethtypes.Log {
	if logs == nil {
		return []*ethtypes.Log{}
	}
	return logs
}

