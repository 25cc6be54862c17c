// Package types holds the node's wire and domain types: addresses, the
// dual-VM transaction variants, blocks, receipts and payload identifiers.
package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte EVM address. Move account addresses are 32 bytes;
// the canonical injection into that space left-pads with zeros, see
// ToMoveAddress.
type Address = common.Address

// MoveAddress is the 32-byte Move account address space.
type MoveAddress [32]byte

// ToMoveAddress performs the canonical injection of an EVM address into
// the Move account address space used for cross-VM identity.
func ToMoveAddress(addr Address) MoveAddress {
	var out MoveAddress
	copy(out[12:], addr[:])
	return out
}

// FromMoveAddress recovers an EVM address from a Move address that was
// produced by ToMoveAddress. Move addresses with nonzero bytes in the
// first 12 positions have no EVM counterpart.
func FromMoveAddress(addr MoveAddress) (Address, bool) {
	for _, b := range addr[:12] {
		if b != 0 {
			return Address{}, false
		}
	}
	var out Address
	copy(out[:], addr[12:])
	return out, true
}

// predeployPrefix holds the leading bytes 0x42 0x00 of the inclusive L2
// predeploy range 0x4200...0000 .. 0x4200...00FF; IsL2Predeploy checks
// the address bytes directly.
var (
	predeployPrefix = [18]byte{0x42, 0x00}
)

// IsL2Predeploy reports whether addr falls in the 0x4200...0000..00FF range.
func IsL2Predeploy(addr Address) bool {
	for i := 2; i < 19; i++ {
		if addr[i] != 0 {
			return false
		}
	}
	return addr[0] == 0x42 && addr[1] == 0x00
}

// EVMNativeAddress is the pseudo-account 0x0000...EE that owns EVM
// account summaries as Move resources.
var EVMNativeAddress = Address{19: 0xEE}

// PredeployAddress builds the predeploy address for index i in [0, 255].
func PredeployAddress(i uint8) Address {
	addr := Address{0: 0x42, 1: 0x00}
	addr[19] = i
	return addr
}

var _ = predeployPrefix

// Uint64ToBytes32 big-endian encodes v into a 32-byte slot key source,
// used for EVM storage-trie keys (keccak256(slot_index_be)).
func Uint64ToBytes32(v uint64) []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[24:], v)
	return buf
}
