package types

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ExecMode is the execution mode a transaction's payload classifies to,
// per the table in spec §4.5.
type ExecMode int

const (
	ModeUnknown ExecMode = iota
	ModeMoveScript
	ModeMoveModuleDeployment
	ModeEvmCreate
	ModeEvmPredeployCall
	ModeEOATransfer
	ModeMoveEntryFunction
	ModeEvmCall
)

// ErrInvalidPayload is returned when a transaction's (to, input) pair
// does not classify into any supported execution mode.
var ErrInvalidPayload = errors.New("invalid payload: unsupported transaction shape")

// DepositTxType is the EIP-2718 typed-transaction envelope byte for a
// deposited (L1->L2) transaction, matching Optimism's convention; the
// underlying go-ethereum fork this node builds on has no native
// concept of deposit transactions, so this node defines its own type
// byte rather than depend on one.
const DepositTxType uint8 = 0x7E

// PayloadKind distinguishes the BCS-decoded variants that a Create
// transaction's input, or a contract-call's input, may carry.
type PayloadKind int

const (
	PayloadScript PayloadKind = iota
	PayloadModuleDeployment
	PayloadEvmContract
	PayloadEntryFunction
)

// EntryFunction is a Move entry-function invocation: the target module,
// the function name, type arguments and BCS-encoded arguments.
type EntryFunction struct {
	Module   ModuleID
	Function string
	TypeArgs []string
	Args     [][]byte
}

// Script is a Move script invocation: compiled bytecode plus arguments.
type Script struct {
	Code     []byte
	TypeArgs []string
	Args     [][]byte
}

// ModuleDeployment publishes one or more Move modules under the sender's
// address.
type ModuleDeployment struct {
	Modules [][]byte
}

// EvmContract carries raw EVM calldata, used both for EVM CREATE (via a
// Create transaction) and for EVM calls dispatched through a contract
// address whose input parses as this BCS variant.
type EvmContract struct {
	Data []byte
}

// CanonicalTx is a signed legacy/EIP-2930/EIP-1559 Ethereum transaction.
// It is classified into one of the ExecMode values by inspecting `to`
// and `input`; see Classify.
type CanonicalTx struct {
	Raw *ethtypes.Transaction

	// Signer is recovered once during verification and cached here.
	Signer common.Address

	// Decoded, set by Classify once the payload kind is known.
	Mode          ExecMode
	EntryFn       *EntryFunction
	ScriptCall    *Script
	ModuleDeploy  *ModuleDeployment
	EvmCall       *EvmContract
}

// DepositedTx is an L1->L2 deposit: always gas-free, always executed
// first in its block.
type DepositedTx struct {
	SourceHash common.Hash
	From       common.Address
	To         *common.Address
	Mint       *uint256Compat
	Value      *uint256Compat
	GasLimit   uint64
	IsSystemTx bool
	Data       []byte
}

// uint256Compat avoids importing uint256 into this file's public surface
// beyond what's needed; defined in amount.go.
type uint256Compat = Amount

// Transaction is the variant spec §3 describes: canonical or deposited.
type Transaction struct {
	Canonical *CanonicalTx
	Deposited *DepositedTx
}

// Hash returns the transaction hash used for mempool dedup, receipt
// indexing and inclusion in transactions_root.
func (t *Transaction) Hash() common.Hash {
	switch {
	case t.Canonical != nil:
		return t.Canonical.Raw.Hash()
	case t.Deposited != nil:
		return t.Deposited.SourceHash
	default:
		return common.Hash{}
	}
}

// IsDeposit reports whether this transaction is a deposited (gas-free)
// transaction.
func (t *Transaction) IsDeposit() bool {
	return t.Deposited != nil
}

// To returns the transaction's destination, or nil for contract creation.
func (t *Transaction) To() *common.Address {
	if t.Canonical != nil {
		return t.Canonical.Raw.To()
	}
	if t.Deposited != nil {
		return t.Deposited.To
	}
	return nil
}

// Classify inspects (to, input) and assigns CanonicalTx.Mode plus the
// decoded payload, per the table in spec §4.5. decodeCreate and
// decodeCall are supplied by the execution package (they depend on the
// entry-function/script/module
// BCS schema, which this package does not need to know about).
func Classify(tx *CanonicalTx, decodeCreate func([]byte) (PayloadKind, any, error), decodeCall func([]byte) (PayloadKind, any, error)) error {
	to := tx.Raw.To()
	input := tx.Raw.Data()

	switch {
	case to == nil:
		kind, val, err := decodeCreate(input)
		if err != nil {
			return ErrInvalidPayload
		}
		switch kind {
		case PayloadScript:
			tx.Mode = ModeMoveScript
			tx.ScriptCall = val.(*Script)
		case PayloadModuleDeployment:
			tx.Mode = ModeMoveModuleDeployment
			tx.ModuleDeploy = val.(*ModuleDeployment)
		case PayloadEvmContract:
			tx.Mode = ModeEvmCreate
			tx.EvmCall = val.(*EvmContract)
		default:
			return ErrInvalidPayload
		}
		return nil

	case IsL2Predeploy(*to):
		tx.Mode = ModeEvmPredeployCall
		tx.EvmCall = &EvmContract{Data: input}
		return nil

	case len(input) == 0:
		tx.Mode = ModeEOATransfer
		return nil

	default:
		kind, val, err := decodeCall(input)
		if err != nil {
			return ErrInvalidPayload
		}
		switch kind {
		case PayloadEntryFunction:
			ef := val.(*EntryFunction)
			if ef.Module.Address != ToMoveAddress(*to) {
				return ErrInvalidPayload
			}
			tx.Mode = ModeMoveEntryFunction
			tx.EntryFn = ef
		case PayloadEvmContract:
			tx.Mode = ModeEvmCall
			tx.EvmCall = val.(*EvmContract)
		default:
			return ErrInvalidPayload
		}
		return nil
	}
}
