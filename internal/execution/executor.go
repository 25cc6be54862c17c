// Package execution implements C5: the transaction classifier and
// executor pipeline — verify, execute, charge IO gas, refund — per
// spec §4.5. No cross-VM reconciliation is performed and no logs are
// emitted: canonical receipts carry an empty log list.
package execution

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/moved-network/moved/internal/gas"
	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
	"github.com/moved-network/moved/internal/vm/evmvm"
	"github.com/moved-network/moved/internal/vm/movevm"
)

// Drop-worthy verify failures: the transaction never enters the block,
// no receipt is produced (spec §4.5 step 1b).
var (
	ErrChainIDMismatch = errors.New("execution: chain id mismatch")
	ErrIntrinsicGas    = errors.New("execution: intrinsic gas exceeds gas limit")
)

// InvalidTx failures: each carries a typed reason and, like the verify
// failures above, is returned as a dropped Outcome with the error as
// its DropReason (no receipt, no state change).
var (
	ErrFailedToPayL1Fee = errors.New("execution: FailedToPayL1Fee")
	ErrFailedToPayL2Fee = errors.New("execution: FailedToPayL2Fee")
	ErrNonceTooLow      = errors.New("execution: NonceTooLow")
	ErrNonceTooHigh     = errors.New("execution: NonceTooHigh")
	ErrExhaustedAccount = errors.New("execution: ExhaustedAccount")
)

// Config bundles the chain-wide parameters the executor needs per
// block, refreshed by the block builder from genesis/governance state.
type Config struct {
	ChainID      uint64
	BaseFee      *big.Int
	L1FeeParams  gas.L1FeeParams
	BlockContext evmvm.BlockContext
}

// Executor is C5.
type Executor struct {
	moveVM *movevm.VM
}

func New(moveVM *movevm.VM) *Executor {
	return &Executor{moveVM: moveVM}
}

// Outcome is the result of executing one canonical transaction.
type Outcome struct {
	// Dropped means the tx must not appear in the block at all (spec
	// §4.5 step 1b): no receipt, no state change, no fee charged.
	Dropped    bool
	DropReason error

	Receipt *types.Receipt
	Changes *trie.Changes
}

// ExecuteCanonical runs the verify/execute/charge/refund pipeline for
// one already-classified canonical transaction. It does not reconcile
// cross-VM state, and the receipt it builds has no logs.
func (e *Executor) ExecuteCanonical(cfg Config, tx *types.CanonicalTx, resolver *trie.Resolver, txIndex uint64, blockHash common.Hash, blockNumber, blockTime uint64) *Outcome {
	raw := tx.Raw

	if raw.ChainId() != nil && raw.ChainId().Uint64() != cfg.ChainID {
		return &Outcome{Dropped: true, DropReason: ErrChainIDMismatch}
	}

	isCreate := raw.To() == nil
	intrinsic := IntrinsicGas(raw.Data(), isCreate)
	if raw.Gas() < intrinsic {
		return &Outcome{Dropped: true, DropReason: ErrIntrinsicGas}
	}

	moveAddr := types.ToMoveAddress(tx.Signer)
	change := &trie.Changes{}

	l1Fee := gas.L1DataFee(cfg.L1FeeParams, mustRLP(raw))
	l1FeeOcta, _ := gas.WeiToOcta(uint256.MustFromBig(l1Fee))
	signerBal, err := movevm.BalanceOf(resolver, moveAddr)
	if err != nil {
		return &Outcome{Dropped: true, DropReason: err}
	}
	if signerBal.Lt(l1FeeOcta) {
		return &Outcome{Dropped: true, DropReason: ErrFailedToPayL1Fee}
	}
	signerBal = new(uint256.Int).Sub(signerBal, l1FeeOcta)

	effectivePrice := gas.EffectiveGasPrice(effectiveFeeCap(raw), effectiveTipCap(raw), cfg.BaseFee)
	l2Cost := gas.L2Fee(raw.Gas(), effectivePrice)
	l2CostOcta, _ := gas.WeiToOcta(uint256.MustFromBig(l2Cost))
	if signerBal.Lt(l2CostOcta) {
		return &Outcome{Dropped: true, DropReason: ErrFailedToPayL2Fee}
	}
	signerBal = new(uint256.Int).Sub(signerBal, l2CostOcta)

	moveNonce, err := movevm.NonceOf(resolver, moveAddr)
	if err != nil {
		return &Outcome{Dropped: true, DropReason: err}
	}
	switch {
	case raw.Nonce() < moveNonce:
		return &Outcome{Dropped: true, DropReason: ErrNonceTooLow}
	case raw.Nonce() > moveNonce:
		return &Outcome{Dropped: true, DropReason: ErrNonceTooHigh}
	case moveNonce == ^uint64(0):
		return &Outcome{Dropped: true, DropReason: ErrExhaustedAccount}
	}

	change.Resources = append(change.Resources,
		movevm.SetBalanceChange(moveAddr, signerBal),
		movevm.SetNonceChange(moveAddr, moveNonce+1),
	)

	status := uint64(1)
	var (
		contractAddr *common.Address
		logs         []*ethtypes.Log
		usedGas      = intrinsic
	)

	execChanges, execErr := e.execute(cfg, tx, resolver, moveAddr)
	if execErr != nil {
		status = 0
	} else if execChanges != nil {
		change.Resources = append(change.Resources, execChanges.Resources...)
		change.Modules = append(change.Modules, execChanges.Modules...)
		change.Tables = append(change.Tables, execChanges.Tables...)
		change.Accounts = append(change.Accounts, execChanges.Accounts...)
		change.Storage = append(change.Storage, execChanges.Storage...)
		change.Code = append(change.Code, execChanges.Code...)
		usedGas += ioGas(execChanges)
		if tx.Mode == types.ModeEvmCreate {
			contractAddr = execContractAddress(execChanges)
		}
	}

	if usedGas > raw.Gas() {
		usedGas = raw.Gas()
	}
	usedCost := gas.L2Fee(usedGas, effectivePrice)
	refundWei := new(big.Int).Sub(l2Cost, usedCost)
	if refundWei.Sign() > 0 {
		refundOcta, _ := gas.WeiToOcta(uint256.MustFromBig(refundWei))
		signerBal = new(uint256.Int).Add(signerBal, refundOcta)
		change.Resources = append(change.Resources, movevm.SetBalanceChange(moveAddr, signerBal))
	}

	receipt := buildReceipt(tx, status, usedGas, effectivePrice, txIndex, blockHash, blockNumber, blockTime, contractAddr, logs)
	return &Outcome{Receipt: receipt, Changes: change}
}

// SimResult is the outcome of a non-committing simulation (estimate_gas
// or call, spec §4.10): gas consumed and any returned bytes, with no
// fee charge, nonce check or state commitment — resolver is read
// against whatever root the caller already fixed it to.
type SimResult struct {
	GasUsed    uint64
	ReturnData []byte
	Err        error
}

// Simulate runs tx against resolver without charging fees, checking
// nonces, or returning any Changes, for estimate_gas/call (spec
// §4.10). Move-side entry functions and scripts have no return-value
// concept in this node's native-registry VM, so ReturnData is always
// empty for Move modes; reverts/aborts are reported through Err, not
// as a dropped transaction.
func (e *Executor) Simulate(cfg Config, tx *types.CanonicalTx, resolver *trie.Resolver) *SimResult {
	raw := tx.Raw
	isCreate := raw.To() == nil
	intrinsic := IntrinsicGas(raw.Data(), isCreate)

	switch tx.Mode {
	case types.ModeEvmCreate, types.ModeEvmCall, types.ModeEvmPredeployCall, types.ModeEOATransfer:
		db := evmvm.New(resolver)
		msg := evmvm.Message{
			From:     tx.Signer,
			To:       tx.Raw.To(),
			Nonce:    tx.Raw.Nonce(),
			Value:    valueOf(tx.Raw),
			GasLimit: tx.Raw.Gas(),
			GasPrice: tx.Raw.GasPrice(),
			Data:     tx.Raw.Data(),
		}
		if tx.EvmCall != nil {
			msg.Data = tx.EvmCall.Data
		}
		result := evmvm.Execute(db, cfg.BlockContext, msg, params.Rules{})
		return &SimResult{GasUsed: result.UsedGas, ReturnData: result.ReturnData, Err: result.Err}
	case types.ModeMoveEntryFunction:
		moveAddr := types.ToMoveAddress(tx.Signer)
		_, err := e.moveVM.ExecuteEntryFunction(moveAddr, tx.EntryFn, resolver)
		return &SimResult{GasUsed: intrinsic, Err: err}
	case types.ModeMoveScript:
		moveAddr := types.ToMoveAddress(tx.Signer)
		_, err := e.moveVM.ExecuteScript(moveAddr, tx.ScriptCall, resolver)
		return &SimResult{GasUsed: intrinsic, Err: err}
	case types.ModeMoveModuleDeployment:
		return &SimResult{GasUsed: intrinsic}
	default:
		return &SimResult{Err: errors.New("execution: unclassified transaction")}
	}
}

// execute dispatches to the Move VM or EVM VM depending on tx.Mode.
func (e *Executor) execute(cfg Config, tx *types.CanonicalTx, resolver *trie.Resolver, moveAddr types.MoveAddress) (*trie.Changes, error) {
	switch tx.Mode {
	case types.ModeMoveEntryFunction:
		return e.moveVM.ExecuteEntryFunction(moveAddr, tx.EntryFn, resolver)
	case types.ModeMoveScript:
		return e.moveVM.ExecuteScript(moveAddr, tx.ScriptCall, resolver)
	case types.ModeMoveModuleDeployment:
		return movevm.PublishModules(moveAddr, tx.ModuleDeploy.Modules), nil
	case types.ModeEvmCreate, types.ModeEvmCall, types.ModeEvmPredeployCall, types.ModeEOATransfer:
		return e.executeEVM(cfg, tx, resolver)
	default:
		return nil, errors.New("execution: unclassified transaction")
	}
}

func (e *Executor) executeEVM(cfg Config, tx *types.CanonicalTx, resolver *trie.Resolver) (*trie.Changes, error) {
	db := evmvm.New(resolver)
	msg := evmvm.Message{
		From:     tx.Signer,
		To:       tx.Raw.To(),
		Nonce:    tx.Raw.Nonce(),
		Value:    valueOf(tx.Raw),
		GasLimit: tx.Raw.Gas(),
		GasPrice: tx.Raw.GasPrice(),
		Data:     tx.Raw.Data(),
	}
	if tx.EvmCall != nil {
		msg.Data = tx.EvmCall.Data
	}
	result := evmvm.Execute(db, cfg.BlockContext, msg, params.Rules{})
	if result.Err != nil {
		return nil, result.Err
	}
	db.Finalise()
	return db.Changes(), nil
}

func valueOf(raw *ethtypes.Transaction) *uint256.Int {
	v, overflow := uint256.FromBig(raw.Value())
	if overflow {
		return new(uint256.Int)
	}
	return v
}

func effectiveFeeCap(raw *ethtypes.Transaction) *big.Int {
	if raw.Type() == ethtypes.DynamicFeeTxType {
		return raw.GasFeeCap()
	}
	return raw.GasPrice()
}

func effectiveTipCap(raw *ethtypes.Transaction) *big.Int {
	if raw.Type() == ethtypes.DynamicFeeTxType {
		return raw.GasTipCap()
	}
	return raw.GasPrice()
}

func mustRLP(raw *ethtypes.Transaction) []byte {
	b, err := raw.MarshalBinary()
	if err != nil {
		return nil
	}
	return b
}

// ioGas tallies byte-length-proportional IO gas for resource/module/
// table writes (spec §4.5 step 4), using the same per-byte coefficient
// across kinds for simplicity; heavier coefficients are a gas-schedule
// tuning question, not a correctness one.
const ioGasPerByte = 5

func ioGas(c *trie.Changes) uint64 {
	var total uint64
	for _, r := range c.Resources {
		total += uint64(len(r.Value)) * ioGasPerByte
	}
	for _, m := range c.Modules {
		total += uint64(len(m.Code)) * ioGasPerByte
	}
	for _, t := range c.Tables {
		total += uint64(len(t.Value)) * ioGasPerByte
	}
	return total
}

func execContractAddress(c *trie.Changes) *common.Address {
	for _, a := range c.Accounts {
		addr := a.Address
		return &addr
	}
	return nil
}

func buildReceipt(tx *types.CanonicalTx, status, gasUsed uint64, effectivePrice *big.Int, txIndex uint64, blockHash common.Hash, blockNumber, blockTime uint64, contractAddr *common.Address, logs []*ethtypes.Log) *types.Receipt {
	inner := &ethtypes.Receipt{
		Type:              tx.Raw.Type(),
		Status:            status,
		CumulativeGasUsed: gasUsed,
		Logs:              logs,
		TxHash:            tx.Raw.Hash(),
		GasUsed:           gasUsed,
		BlockHash:         blockHash,
		BlockNumber:       new(big.Int).SetUint64(blockNumber),
		TransactionIndex:  uint(txIndex),
	}
	if contractAddr != nil {
		inner.ContractAddress = *contractAddr
	}
	inner.Bloom = ethtypes.CreateBloom(inner)

	return &types.Receipt{
		Inner:             inner,
		To:                tx.Raw.To(),
		From:              tx.Signer,
		GasUsed:           gasUsed,
		EffectiveGasPrice: effectivePrice,
		TransactionIndex:  txIndex,
		ContractAddress:   contractAddr,
		BlockHash:         blockHash,
		BlockNumber:       blockNumber,
		BlockTimestamp:    blockTime,
	}
}
