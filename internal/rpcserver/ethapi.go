package rpcserver

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/moved-network/moved/internal/actor"
	"github.com/moved-network/moved/internal/execution"
	"github.com/moved-network/moved/internal/query"
)

// EthAPI implements the "eth" namespace (spec §6): go-ethereum's
// rpc.Server turns each exported method into eth_<lowerCamelMethod>,
// the same registration idiom the teacher's server/json_rpc.go uses
// for the Cosmos EVM's own eth namespace.
type EthAPI struct {
	Query *query.Service
	Actor *actor.Actor
}

func (a *EthAPI) ChainId() hexutil.Uint64 { return hexutil.Uint64(a.Query.ChainID()) }

func (a *EthAPI) BlockNumber() (hexutil.Uint64, error) {
	height, ok := a.Query.LatestHeight()
	if !ok {
		return 0, nil
	}
	return hexutil.Uint64(height), nil
}

func (a *EthAPI) GetBlockByHash(hash common.Hash, fullTx bool) (map[string]interface{}, error) {
	eb, found, err := a.Query.BlockByHash(hash)
	if err != nil {
		return nil, translateErr(err)
	}
	if !found {
		return nil, nil
	}
	return blockJSON(eb, fullTx), nil
}

func (a *EthAPI) GetBlockByNumber(tag string, fullTx bool) (map[string]interface{}, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	height, err := a.Query.ResolveHeight(t)
	if err != nil {
		return nil, translateErr(err)
	}
	eb, found, err := a.Query.BlockByNumber(height)
	if err != nil {
		return nil, translateErr(err)
	}
	if !found {
		return nil, nil
	}
	return blockJSON(eb, fullTx), nil
}

func (a *EthAPI) GetTransactionByHash(hash common.Hash) (map[string]interface{}, error) {
	tx, blockHash, index, found, err := a.Query.TransactionByHash(hash)
	if err != nil {
		return nil, translateErr(err)
	}
	if !found {
		return nil, nil
	}
	eb, blockFound, err := a.Query.BlockByHash(blockHash)
	if err != nil || !blockFound {
		return nil, translateErr(err)
	}
	return transactionJSON(tx, blockHash, eb.Number(), index), nil
}

func (a *EthAPI) GetTransactionReceipt(hash common.Hash) (map[string]interface{}, error) {
	r, found, err := a.Query.Receipt(hash)
	if err != nil {
		return nil, translateErr(err)
	}
	if !found {
		return nil, nil
	}
	return receiptJSON(r), nil
}

func (a *EthAPI) GetBalance(addr common.Address, tag string) (*hexutil.Big, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	bal, err := a.Query.BalanceAt(addr, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return (*hexutil.Big)(bal), nil
}

func (a *EthAPI) GetTransactionCount(addr common.Address, tag string) (hexutil.Uint64, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return 0, translateErr(err)
	}
	n, err := a.Query.NonceAt(addr, t)
	if err != nil {
		return 0, translateErr(err)
	}
	return hexutil.Uint64(n), nil
}

func (a *EthAPI) GetCode(addr common.Address, tag string) (hexutil.Bytes, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	code, err := a.Query.EvmBytecodeAt(addr, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return hexutil.Bytes(code), nil
}

func (a *EthAPI) GetStorageAt(addr common.Address, slot common.Hash, tag string) (common.Hash, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return common.Hash{}, translateErr(err)
	}
	val, err := a.Query.EvmStorageAt(addr, slot, t)
	if err != nil {
		return common.Hash{}, translateErr(err)
	}
	return val, nil
}

func (a *EthAPI) GetProof(addr common.Address, slots []common.Hash, tag string) (interface{}, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	proof, err := a.Query.Proof(addr, slots, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return proof, nil
}

func (a *EthAPI) Call(args CallArgs, tag string) (hexutil.Bytes, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	tx := args.toCanonicalTx(a.Query.ChainID())
	out, err := a.Query.Call(tx, t)
	if err != nil {
		return nil, translateCallErr(err)
	}
	return hexutil.Bytes(out), nil
}

func (a *EthAPI) EstimateGas(args CallArgs) (hexutil.Uint64, error) {
	tx := args.toCanonicalTx(a.Query.ChainID())
	gas, err := a.Query.EstimateGas(tx, query.Latest())
	if err != nil {
		return 0, translateCallErr(err)
	}
	return hexutil.Uint64(gas), nil
}

func (a *EthAPI) GasPrice() (*hexutil.Big, error) {
	p, err := a.Query.GasPrice()
	if err != nil {
		return nil, translateErr(err)
	}
	return (*hexutil.Big)(p), nil
}

func (a *EthAPI) MaxPriorityFeePerGas() (*hexutil.Big, error) {
	p, err := a.Query.MaxPriorityFeePerGas()
	if err != nil {
		return nil, translateErr(err)
	}
	return (*hexutil.Big)(p), nil
}

// FeeHistoryResult is the eth_feeHistory wire shape.
type FeeHistoryResult struct {
	OldestBlock   hexutil.Uint64     `json:"oldestBlock"`
	BaseFeePerGas []*hexutil.Big     `json:"baseFeePerGas"`
	GasUsedRatio  []float64          `json:"gasUsedRatio"`
	Reward        [][]*hexutil.Big   `json:"reward,omitempty"`
}

func (a *EthAPI) FeeHistory(count hexutil.Uint64, tag string, percentiles []float64) (*FeeHistoryResult, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	res, err := a.Query.FeeHistory(uint64(count), t, percentiles)
	if err != nil {
		return nil, translateErr(err)
	}
	out := &FeeHistoryResult{OldestBlock: hexutil.Uint64(res.OldestBlock), GasUsedRatio: res.GasUsedRatio}
	for _, b := range res.BaseFeePerGas {
		out.BaseFeePerGas = append(out.BaseFeePerGas, (*hexutil.Big)(b))
	}
	for _, row := range res.Reward {
		var r []*hexutil.Big
		for _, v := range row {
			r = append(r, (*hexutil.Big)(v))
		}
		out.Reward = append(out.Reward, r)
	}
	return out, nil
}

func (a *EthAPI) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	tx, err := execution.DecodeTransaction(data, a.Query.ChainID())
	if err != nil {
		return common.Hash{}, translateErr(err)
	}
	if err := a.Actor.AddTransaction(context.Background(), tx); err != nil {
		return common.Hash{}, translateErr(err)
	}
	return tx.Hash(), nil
}
