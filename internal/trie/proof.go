package trie

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrProofMismatch is returned by VerifyProof when a proof node's hash
// does not match the expected link from its parent (or from root).
var ErrProofMismatch = errors.New("trie: proof hash mismatch")

// Prove walks from the root to key, collecting the encoding of every
// node visited. The result is self-verifying via VerifyProof and is
// the EIP-1186-style "AccountProof"/"StorageProof" array (spec I3).
func (t *Trie) Prove(key []byte) ([][]byte, error) {
	var proof [][]byte
	path := keyToNibbles(key)
	h := t.root

	for h != (common.Hash{}) {
		enc, ok, err := t.store.Get(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCorruptNode
		}
		proof = append(proof, enc)

		n, err := decodeNode(enc)
		if err != nil {
			return nil, err
		}
		switch nd := n.(type) {
		case *leafNode:
			return proof, nil
		case *extensionNode:
			if len(path) < len(nd.path) || !bytes.Equal(path[:len(nd.path)], nd.path) {
				return proof, nil
			}
			path = path[len(nd.path):]
			h = nd.child
		case *branchNode:
			if len(path) == 0 {
				return proof, nil
			}
			h = nd.children[path[0]]
			path = path[1:]
		default:
			return nil, ErrCorruptNode
		}
	}
	return proof, nil
}

// VerifyProof replays a proof produced by Prove against root, returning
// the proved value (nil for a non-membership proof).
func VerifyProof(root common.Hash, key []byte, proof [][]byte) ([]byte, error) {
	path := keyToNibbles(key)
	expected := root

	for _, enc := range proof {
		if hashNode(enc) != expected {
			return nil, ErrProofMismatch
		}
		n, err := decodeNode(enc)
		if err != nil {
			return nil, err
		}
		switch nd := n.(type) {
		case *leafNode:
			if bytes.Equal(nd.path, path) {
				return nd.value, nil
			}
			return nil, nil
		case *extensionNode:
			if len(path) < len(nd.path) || !bytes.Equal(path[:len(nd.path)], nd.path) {
				return nil, nil
			}
			path = path[len(nd.path):]
			expected = nd.child
		case *branchNode:
			if len(path) == 0 {
				return nd.value, nil
			}
			expected = nd.children[path[0]]
			path = path[1:]
		default:
			return nil, ErrCorruptNode
		}
	}
	if expected == (common.Hash{}) {
		return nil, nil
	}
	return nil, errors.New("trie: incomplete proof")
}
