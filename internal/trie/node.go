package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// node is the shared shape of the three node kinds this trie stores:
// leaf, extension and (16-ary) branch. Every node is content-addressed:
// its on-disk key is keccak256 of its RLP encoding (spec §4.1 "the node
// store is immutable and deduplicated").
type node interface {
	encode() []byte
}

type leafNode struct {
	path  []byte // remaining nibble path
	value []byte
}

type extensionNode struct {
	path  []byte     // remaining nibble path
	child common.Hash // always present
}

type branchNode struct {
	children [16]common.Hash // zero Hash{} means empty slot
	value    []byte          // non-nil if a value terminates exactly here
}

func (n *leafNode) encode() []byte {
	b, err := rlp.EncodeToBytes([][]byte{hexPrefixEncode(n.path, true), n.value})
	if err != nil {
		panic(err)
	}
	return b
}

func (n *extensionNode) encode() []byte {
	b, err := rlp.EncodeToBytes([][]byte{hexPrefixEncode(n.path, false), n.child.Bytes()})
	if err != nil {
		panic(err)
	}
	return b
}

func (n *branchNode) encode() []byte {
	items := make([][]byte, 17)
	for i := 0; i < 16; i++ {
		if n.children[i] != (common.Hash{}) {
			items[i] = n.children[i].Bytes()
		}
	}
	items[16] = n.value
	b, err := rlp.EncodeToBytes(items)
	if err != nil {
		panic(err)
	}
	return b
}

// hashNode returns the content address (storage key) of an encoded node.
func hashNode(encoded []byte) common.Hash {
	return crypto.Keccak256Hash(encoded)
}

// decodeNode reconstructs a node from its RLP encoding.
func decodeNode(encoded []byte) (node, error) {
	var items [][]byte
	if err := rlp.DecodeBytes(encoded, &items); err != nil {
		return nil, err
	}
	switch len(items) {
	case 2:
		path, isLeaf := hexPrefixDecode(items[0])
		if isLeaf {
			return &leafNode{path: path, value: items[1]}, nil
		}
		return &extensionNode{path: path, child: common.BytesToHash(items[1])}, nil
	case 17:
		var n branchNode
		for i := 0; i < 16; i++ {
			if len(items[i]) > 0 {
				n.children[i] = common.BytesToHash(items[i])
			}
		}
		n.value = items[16]
		return &n, nil
	default:
		return nil, ErrCorruptNode
	}
}
