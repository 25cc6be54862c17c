package trie

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// SkipListKind distinguishes the two enumerable namespaces per account
// (spec §4.1: "for each (account, kind in {StructTag, Identifier})").
type SkipListKind byte

const (
	SkipListStructTag  SkipListKind = 1
	SkipListIdentifier SkipListKind = 2
)

// skipListMaxLevel bounds the number of forward-pointer levels a node
// may occupy; level selection is deterministic (derived from the
// sort key's hash) so every replica that applies the same changes in
// the same order converges on the same skip list shape and therefore
// the same root hash.
const skipListMaxLevel = 16

// levelFor derives a node's level from keccak256(sortKey), approximating
// a p=1/2 geometric distribution: level is 1 plus the number of leading
// set bits in the digest before the first zero bit, capped at
// skipListMaxLevel.
func levelFor(sortKey []byte) int {
	h := crypto.Keccak256(sortKey)
	lvl := 1
	for i := 0; i < skipListMaxLevel-1; i++ {
		if h[i/8]&(1<<uint(i%8)) == 0 {
			break
		}
		lvl++
	}
	return lvl
}

func lessSortKey(a, b []byte) bool { return bytes.Compare(a, b) < 0 }

func getForward(t *Trie, key [32]byte) ([][]byte, error) {
	raw, err := t.Get(key[:])
	if err != nil || raw == nil {
		return nil, err
	}
	var fwd [][]byte
	if err := rlp.DecodeBytes(raw, &fwd); err != nil {
		return nil, err
	}
	for i, p := range fwd {
		if len(p) == 0 {
			fwd[i] = nil
		}
	}
	return fwd, nil
}

func putForward(t *Trie, key [32]byte, fwd [][]byte) error {
	for i, p := range fwd {
		if p == nil {
			fwd[i] = []byte{}
		}
	}
	raw, err := rlp.EncodeToBytes(fwd)
	if err != nil {
		return err
	}
	return t.Put(key[:], raw)
}

// skipListInsert splices sortKey into the (owner, kind) skip list.
func skipListInsert(t *Trie, owner []byte, kind SkipListKind, sortKey []byte) error {
	headKey := skipListHeadKey(owner, byte(kind))
	head, err := getForward(t, headKey)
	if err != nil {
		return err
	}
	if head == nil {
		head = make([][]byte, skipListMaxLevel)
	}

	level := levelFor(sortKey)
	newFwd := make([][]byte, level)

	curKey, curFwd := headKey, head
	for l := skipListMaxLevel - 1; l >= 0; l-- {
		for curFwd[l] != nil && lessSortKey(curFwd[l], sortKey) {
			nextKey := skipListNodeKey(owner, byte(kind), curFwd[l])
			nextFwd, err := getForward(t, nextKey)
			if err != nil {
				return err
			}
			curKey, curFwd = nextKey, nextFwd
		}
		if l < level {
			newFwd[l] = curFwd[l]
			curFwd[l] = sortKey
			if err := putForward(t, curKey, curFwd); err != nil {
				return err
			}
		}
	}
	return putForward(t, skipListNodeKey(owner, byte(kind), sortKey), newFwd)
}

// skipListDelete removes sortKey, re-splicing predecessors at every
// level it occupied (spec §4.1).
func skipListDelete(t *Trie, owner []byte, kind SkipListKind, sortKey []byte) error {
	headKey := skipListHeadKey(owner, byte(kind))
	head, err := getForward(t, headKey)
	if err != nil || head == nil {
		return err
	}
	target, err := getForward(t, skipListNodeKey(owner, byte(kind), sortKey))
	if err != nil || target == nil {
		return err
	}
	level := len(target)

	curKey, curFwd := headKey, head
	for l := skipListMaxLevel - 1; l >= 0; l-- {
		for curFwd[l] != nil && lessSortKey(curFwd[l], sortKey) {
			nextKey := skipListNodeKey(owner, byte(kind), curFwd[l])
			nextFwd, err := getForward(t, nextKey)
			if err != nil {
				return err
			}
			curKey, curFwd = nextKey, nextFwd
		}
		if l < level && curFwd[l] != nil && bytes.Equal(curFwd[l], sortKey) {
			curFwd[l] = target[l]
			if err := putForward(t, curKey, curFwd); err != nil {
				return err
			}
		}
	}
	return t.Delete(skipListNodeKey(owner, byte(kind), sortKey)[:])
}

// skipListEnumerate returns up to limit sort keys strictly greater than
// after (nil means "from the start"), ascending.
func skipListEnumerate(t *Trie, owner []byte, kind SkipListKind, after []byte, limit int) ([][]byte, error) {
	headKey := skipListHeadKey(owner, byte(kind))
	curFwd, err := getForward(t, headKey)
	if err != nil || curFwd == nil {
		return nil, err
	}

	if after != nil {
		for l := skipListMaxLevel - 1; l >= 0; l-- {
			for curFwd[l] != nil && bytes.Compare(curFwd[l], after) <= 0 {
				nextFwd, err := getForward(t, skipListNodeKey(owner, byte(kind), curFwd[l]))
				if err != nil {
					return nil, err
				}
				curFwd = nextFwd
			}
		}
	}

	var out [][]byte
	for curFwd[0] != nil && len(out) < limit {
		out = append(out, curFwd[0])
		nextFwd, err := getForward(t, skipListNodeKey(owner, byte(kind), curFwd[0]))
		if err != nil {
			return nil, err
		}
		curFwd = nextFwd
	}
	return out, nil
}
