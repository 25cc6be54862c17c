package execution

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
	"github.com/moved-network/moved/internal/vm/evmvm"
	"github.com/moved-network/moved/internal/vm/movevm"
)

// ErrDepositFailure wraps a failed deposited-transaction EVM call,
// mirroring Optimism's DepositFailure(output) user error (spec §4.5).
type ErrDepositFailure struct{ Output []byte }

func (e *ErrDepositFailure) Error() string { return "execution: deposit failed" }

// ExecuteDeposited runs an L1->L2 deposit: no chain-id check, no gas
// charge, no nonce check. If Mint > 0 it is added directly to From's
// Move base-token balance before the EVM call runs; there is no
// separate mint to the EVM-native pseudo-account and no cross-VM
// replication step.
func (e *Executor) ExecuteDeposited(cfg Config, tx *types.DepositedTx, resolver *trie.Resolver, txIndex uint64, blockHash common.Hash, blockNumber, blockTime uint64) *Outcome {
	change := &trie.Changes{}

	if tx.Mint != nil && !tx.Mint.IsZero() {
		moveAddr := types.ToMoveAddress(tx.From)
		if bal, err := movevm.BalanceOf(resolver, moveAddr); err == nil {
			newBal := new(uint256.Int).Add(bal, tx.Mint)
			change.Resources = append(change.Resources, movevm.SetBalanceChange(moveAddr, newBal))
		}
	}

	db := evmvm.New(resolver)
	msg := evmvm.Message{
		From:     tx.From,
		To:       tx.To,
		Value:    valueOrZero(tx.Value),
		GasLimit: tx.GasLimit,
		GasPrice: new(big.Int),
		Data:     tx.Data,
	}
	result := evmvm.Execute(db, cfg.BlockContext, msg, params.Rules{})

	status := uint64(1)
	if result.Err != nil {
		status = 0
	} else {
		db.Finalise()
		evmChanges := db.Changes()
		change.Accounts = append(change.Accounts, evmChanges.Accounts...)
		change.Storage = append(change.Storage, evmChanges.Storage...)
		change.Code = append(change.Code, evmChanges.Code...)
	}

	depositNonce := uint64(0)
	depositVersion := types.DepositReceiptVersionValue
	inner := &ethtypes.Receipt{
		Type:             types.DepositTxType,
		Status:           status,
		TxHash:           tx.SourceHash,
		GasUsed:          tx.GasLimit,
		BlockHash:        blockHash,
		BlockNumber:      new(big.Int).SetUint64(blockNumber),
		TransactionIndex: uint(txIndex),
	}
	receipt := &types.Receipt{
		Inner:                 inner,
		To:                    tx.To,
		From:                  tx.From,
		GasUsed:               tx.GasLimit,
		EffectiveGasPrice:     new(big.Int),
		TransactionIndex:      txIndex,
		BlockHash:             blockHash,
		BlockNumber:           blockNumber,
		BlockTimestamp:        blockTime,
		IsDeposit:             true,
		DepositNonce:          &depositNonce,
		DepositReceiptVersion: &depositVersion,
	}
	return &Outcome{Receipt: receipt, Changes: change}
}

func valueOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
