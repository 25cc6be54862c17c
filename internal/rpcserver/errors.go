// Package rpcserver wires the JSON-RPC (spec §6 "Ethereum JSON-RPC"
// plus the mv_ extensions) and Engine API HTTP/WS transports on top of
// go-ethereum's own reflection-based rpc.Server, the same server the
// teacher's server/json_rpc.go registers its namespaces on — this node
// registers "eth", "mv" and "engine" services instead of the teacher's
// Cosmos-backed ones, but reuses the identical server/transport shape.
package rpcserver

import (
	"errors"

	"github.com/moved-network/moved/internal/execution"
	"github.com/moved-network/moved/internal/query"
	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
)

// rpcError implements go-ethereum rpc.Error (and, optionally,
// rpc.DataError), carrying the domain error codes spec §6 assigns.
type rpcError struct {
	code int
	msg  string
	data interface{}
}

func (e *rpcError) Error() string        { return e.msg }
func (e *rpcError) ErrorCode() int       { return e.code }
func (e *rpcError) ErrorData() interface{} { return e.data }

func newRPCError(code int, msg string) *rpcError { return &rpcError{code: code, msg: msg} }

// Error codes named in spec §6.
const (
	codeVMError                = -32015
	codeExecutionReverted      = -32000
	codeInvalidParams          = -32602
	codeInternalError          = -32603
	codeUnknownMethod          = -32601
	codeNonceTooHigh           = -38011
	codeNonceTooLow            = -38010
	codeInsufficientIntrinsic  = -38013
	codeInsufficientFunds      = -38014
	codeInvalidBlockHeightEtc  = -38020
	codeUnknownPayload         = -38001
	codeInvalidForkchoiceState = -38002
	codeInvalidPayloadAttrs    = -38003
)

// translateErr maps a domain error from query/execution into the JSON-RPC
// error envelope spec §6 defines. Errors with no specific mapping fall
// back to -32603 Internal error.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, query.ErrUnknownBlock),
		errors.Is(err, query.ErrUnknownTransaction),
		errors.Is(err, query.ErrInvalidBlockHeight),
		errors.Is(err, trie.ErrOutOfRange),
		errors.Is(err, query.ErrInvalidFeeHistoryRequest):
		return newRPCError(codeInvalidBlockHeightEtc, err.Error())
	case errors.Is(err, execution.ErrNonceTooHigh):
		return newRPCError(codeNonceTooHigh, "nonce too high")
	case errors.Is(err, execution.ErrNonceTooLow):
		return newRPCError(codeNonceTooLow, "nonce too low")
	case errors.Is(err, execution.ErrIntrinsicGas):
		return newRPCError(codeInsufficientIntrinsic, "insufficient intrinsic gas")
	case errors.Is(err, execution.ErrFailedToPayL1Fee), errors.Is(err, execution.ErrFailedToPayL2Fee), errors.Is(err, execution.ErrExhaustedAccount):
		return newRPCError(codeInsufficientFunds, err.Error())
	case errors.Is(err, types.ErrInvalidPayload), errors.Is(err, execution.ErrUnsupportedType):
		return newRPCError(codeInvalidParams, err.Error())
	default:
		return newRPCError(codeInternalError, err.Error())
	}
}

// translateCallErr maps an eth_call/estimateGas simulation error: a VM
// revert/abort surfaces distinctly from an internal failure (spec §6).
func translateCallErr(err error) error {
	if err == nil {
		return nil
	}
	return &rpcError{code: codeExecutionReverted, msg: "execution reverted: " + err.Error()}
}
