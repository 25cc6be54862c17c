package evmvm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// Message is the minimal call description the EVM adapter executes,
// mirroring go-ethereum's core.Message fields this node actually uses.
type Message struct {
	From      common.Address
	To        *common.Address // nil for contract creation
	Nonce     uint64
	Value     *uint256.Int
	GasLimit  uint64
	GasPrice  *big.Int
	Data      []byte
}

// BlockContext carries the per-block values the EVM needs for opcodes
// like COINBASE, NUMBER, TIMESTAMP, BASEFEE, BLOCKHASH.
type BlockContext struct {
	Coinbase    common.Address
	BlockNumber *big.Int
	Timestamp   uint64
	Difficulty  *big.Int
	BaseFee     *big.Int
	GasLimit    uint64
	GetHash     func(n uint64) common.Hash
}

// Result is the outcome of executing one Message.
type Result struct {
	UsedGas         uint64
	ReturnData      []byte
	ContractAddress common.Address
	Reverted        bool
	Err             error
}

var ErrIntrinsicGas = errors.New("evmvm: intrinsic gas exceeds gas limit")

// Execute runs msg against db using go-ethereum's EVM interpreter,
// translating Message into the vm.Contract call go-ethereum's own
// core.StateTransition performs, condensed to what this node needs
// (no Cosmos SDK ante-layer fee deduction — that happens in
// internal/execution before Execute is ever called).
func Execute(db *StateDB, bctx BlockContext, msg Message, chainRules params.Rules) *Result {
	blockCtx := vm.BlockContext{
		CanTransfer: func(sdb vm.StateDB, addr common.Address, amount *uint256.Int) bool {
			return sdb.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(sdb vm.StateDB, from, to common.Address, amount *uint256.Int) {
			sdb.SubBalance(from, amount)
			sdb.AddBalance(to, amount)
		},
		GetHash:     bctx.GetHash,
		Coinbase:    bctx.Coinbase,
		BlockNumber: bctx.BlockNumber,
		Time:        bctx.Timestamp,
		Difficulty:  bctx.Difficulty,
		BaseFee:     bctx.BaseFee,
		GasLimit:    bctx.GasLimit,
	}
	txCtx := vm.TxContext{Origin: msg.From, GasPrice: msg.GasPrice}

	cfg := vm.Config{}
	evm := vm.NewEVM(blockCtx, db, params.AllEthashProtocolChanges, cfg)
	evm.TxContext = txCtx

	db.AddAddressToAccessList(msg.From)
	if msg.To != nil {
		db.AddAddressToAccessList(*msg.To)
	}

	gas := msg.GasLimit
	var (
		ret  []byte
		err  error
		addr common.Address
	)
	if msg.To == nil {
		var contractAddr common.Address
		ret, contractAddr, gas, err = evm.Create(msg.From, msg.Data, gas, msg.Value)
		addr = contractAddr
	} else {
		ret, gas, err = evm.Call(msg.From, *msg.To, msg.Data, gas, msg.Value)
	}

	used := msg.GasLimit - gas
	return &Result{
		UsedGas:         used,
		ReturnData:      ret,
		ContractAddress: addr,
		Reverted:        errors.Is(err, vm.ErrExecutionReverted),
		Err:             err,
	}
}
