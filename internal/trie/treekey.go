package trie

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/moved-network/moved/internal/types"
)

// Tree-key kind tags, mixed into every hash so the four kinds never
// collide even when their source material overlaps (spec §4.1 table).
const (
	tagMoveResource   byte = 1
	tagMoveModule     byte = 2
	tagMoveTableEntry byte = 3
	tagEVMAccount     byte = 4
	tagSkipListHead   byte = 5
	tagSkipListNode   byte = 6
)

func resourceTreeKey(addr types.MoveAddress, tag types.StructTag) common.Hash {
	return crypto.Keccak256Hash([]byte{tagMoveResource}, addr[:], []byte(tag.CanonicalString()))
}

func moduleTreeKey(id types.ModuleID) common.Hash {
	return crypto.Keccak256Hash([]byte{tagMoveModule}, id.Address[:], []byte(id.Name))
}

func tableTreeKey(handle [32]byte, key []byte) common.Hash {
	return crypto.Keccak256Hash([]byte{tagMoveTableEntry}, handle[:], key)
}

func accountTreeKey(addr common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte{tagEVMAccount}, addr[:])
}

// storageSlotKey computes the per-account storage-trie key for a slot
// index, per spec §4.1: keccak256(slot_index_be).
func storageSlotKey(slot common.Hash) common.Hash {
	return crypto.Keccak256Hash(slot[:])
}

func skipListHeadKey(owner []byte, kind byte) common.Hash {
	return crypto.Keccak256Hash([]byte{tagSkipListHead}, []byte{kind}, owner)
}

func skipListNodeKey(owner []byte, kind byte, sortKey []byte) common.Hash {
	return crypto.Keccak256Hash([]byte{tagSkipListNode}, []byte{kind}, owner, sortKey)
}

func u64be(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
