package trie

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// NodeStore is the backing-store port for trie nodes: an immutable,
// content-addressed map from node hash to encoded node bytes. Any
// ordered KV store with read access satisfies it (spec §9).
type NodeStore interface {
	Get(hash common.Hash) ([]byte, bool, error)
	Put(hash common.Hash, encoded []byte) error
}

// Trie is a hex-radix Merkle-Patricia trie over 32-byte keccak keys,
// content-addressed in NodeStore. It underlies the four tree-key kinds
// C1 multiplexes over (spec §4.1): every kind first hashes its own key
// material down to a 32-byte key before calling Get/Put/Delete here.
type Trie struct {
	store NodeStore
	root  common.Hash
}

// New opens a trie view at the given root. A zero root is the empty trie.
func New(store NodeStore, root common.Hash) *Trie {
	return &Trie{store: store, root: root}
}

// Hash returns the current root hash.
func (t *Trie) Hash() common.Hash {
	return t.root
}

// Get looks up key, returning (nil, nil) if absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.getAt(t.root, keyToNibbles(key))
}

func (t *Trie) getAt(h common.Hash, path []byte) ([]byte, error) {
	if h == (common.Hash{}) {
		return nil, nil
	}
	n, err := t.load(h)
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
		return t.getAt(nd.child, path[len(nd.path):])
	case *branchNode:
		if len(path) == 0 {
			return nd.value, nil
		}
		return t.getAt(nd.children[path[0]], path[1:])
	default:
		return nil, ErrCorruptNode
	}
}

// Put inserts or overwrites key -> value, updating the root.
func (t *Trie) Put(key, value []byte) error {
	newRoot, err := t.putAt(t.root, keyToNibbles(key), value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) putAt(h common.Hash, path, value []byte) (common.Hash, error) {
	if h == (common.Hash{}) {
		return t.storeNode(&leafNode{path: path, value: value})
	}
	n, err := t.load(h)
	if err != nil {
		return common.Hash{}, err
	}
	switch nd := n.(type) {
	case *leafNode:
		if bytes.Equal(nd.path, path) {
			return t.storeNode(&leafNode{path: path, value: value})
		}
		return t.mergeLeaves(nd.path, nd.value, path, value)
	case *extensionNode:
		cpl := commonPrefixLen(nd.path, path)
		if cpl == len(nd.path) {
			newChild, err := t.putAt(nd.child, path[cpl:], value)
			if err != nil {
				return common.Hash{}, err
			}
			return t.storeNode(&extensionNode{path: nd.path, child: newChild})
		}
		return t.splitExtension(nd, path, value, cpl)
	case *branchNode:
		nb := *nd
		if len(path) == 0 {
			nb.value = value
			return t.storeNode(&nb)
		}
		newChild, err := t.putAt(nd.children[path[0]], path[1:], value)
		if err != nil {
			return common.Hash{}, err
		}
		nb.children[path[0]] = newChild
		return t.storeNode(&nb)
	default:
		return common.Hash{}, ErrCorruptNode
	}
}

// mergeLeaves builds the subtree for two distinct terminal entries
// (either may originate from a leaf or from a value stored directly at
// a branch, both describable as "nibble path + value").
func (t *Trie) mergeLeaves(pathA, valueA, pathB, valueB []byte) (common.Hash, error) {
	cpl := commonPrefixLen(pathA, pathB)
	if cpl == len(pathA) && cpl == len(pathB) {
		return t.storeNode(&leafNode{path: pathA, value: valueB})
	}

	var branch branchNode
	if cpl == len(pathA) {
		branch.value = valueA
	} else {
		idx := pathA[cpl]
		h, err := t.storeNode(&leafNode{path: pathA[cpl+1:], value: valueA})
		if err != nil {
			return common.Hash{}, err
		}
		branch.children[idx] = h
	}
	if cpl == len(pathB) {
		branch.value = valueB
	} else {
		idx := pathB[cpl]
		h, err := t.storeNode(&leafNode{path: pathB[cpl+1:], value: valueB})
		if err != nil {
			return common.Hash{}, err
		}
		branch.children[idx] = h
	}

	branchHash, err := t.storeNode(&branch)
	if err != nil {
		return common.Hash{}, err
	}
	if cpl == 0 {
		return branchHash, nil
	}
	return t.storeNode(&extensionNode{path: pathA[:cpl], child: branchHash})
}

// splitExtension handles inserting a key whose path diverges from an
// existing extension node partway through its prefix.
func (t *Trie) splitExtension(nd *extensionNode, path, value []byte, cpl int) (common.Hash, error) {
	var branch branchNode

	remA := nd.path[cpl:]
	idxA := remA[0]
	if len(remA) == 1 {
		branch.children[idxA] = nd.child
	} else {
		h, err := t.storeNode(&extensionNode{path: remA[1:], child: nd.child})
		if err != nil {
			return common.Hash{}, err
		}
		branch.children[idxA] = h
	}

	remB := path[cpl:]
	if len(remB) == 0 {
		branch.value = value
	} else {
		idxB := remB[0]
		h, err := t.storeNode(&leafNode{path: remB[1:], value: value})
		if err != nil {
			return common.Hash{}, err
		}
		branch.children[idxB] = h
	}

	branchHash, err := t.storeNode(&branch)
	if err != nil {
		return common.Hash{}, err
	}
	if cpl == 0 {
		return branchHash, nil
	}
	return t.storeNode(&extensionNode{path: nd.path[:cpl], child: branchHash})
}

// Delete removes key. Deleting an absent key is a no-op.
func (t *Trie) Delete(key []byte) error {
	newRoot, err := t.deleteAt(t.root, keyToNibbles(key))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) deleteAt(h common.Hash, path []byte) (common.Hash, error) {
	if h == (common.Hash{}) {
		return common.Hash{}, nil
	}
	n, err := t.load(h)
	if err != nil {
		return common.Hash{}, err
	}
	switch nd := n.(type) {
	case *leafNode:
		if bytes.Equal(nd.path, path) {
			return common.Hash{}, nil
		}
		return h, nil
	case *extensionNode:
		if len(path) < len(nd.path) || !bytes.Equal(path[:len(nd.path)], nd.path) {
			return h, nil
		}
		newChild, err := t.deleteAt(nd.child, path[len(nd.path):])
		if err != nil {
			return common.Hash{}, err
		}
		if newChild == (common.Hash{}) {
			return common.Hash{}, nil
		}
		if newChild == nd.child {
			return h, nil
		}
		return t.mergeExtensionChild(nd.path, newChild)
	case *branchNode:
		nb := *nd
		if len(path) == 0 {
			nb.value = nil
		} else {
			newChild, err := t.deleteAt(nd.children[path[0]], path[1:])
			if err != nil {
				return common.Hash{}, err
			}
			nb.children[path[0]] = newChild
		}
		return t.collapseBranch(&nb)
	default:
		return common.Hash{}, ErrCorruptNode
	}
}

// mergeExtensionChild folds prefix into whatever node sits at childHash,
// restoring the invariant that no extension/leaf pair has a redundant
// single-child branch between them after a deletion.
func (t *Trie) mergeExtensionChild(prefix []byte, childHash common.Hash) (common.Hash, error) {
	n, err := t.load(childHash)
	if err != nil {
		return common.Hash{}, err
	}
	switch cn := n.(type) {
	case *leafNode:
		return t.storeNode(&leafNode{path: concatNibbles(prefix, cn.path), value: cn.value})
	case *extensionNode:
		return t.storeNode(&extensionNode{path: concatNibbles(prefix, cn.path), child: cn.child})
	default:
		return t.storeNode(&extensionNode{path: prefix, child: childHash})
	}
}

func (t *Trie) collapseBranch(nb *branchNode) (common.Hash, error) {
	childIdx := -1
	childCount := 0
	for i, c := range nb.children {
		if c != (common.Hash{}) {
			childCount++
			childIdx = i
		}
	}
	switch {
	case childCount == 0 && len(nb.value) == 0:
		return common.Hash{}, nil
	case childCount == 0:
		return t.storeNode(&leafNode{path: nil, value: nb.value})
	case childCount == 1 && len(nb.value) == 0:
		return t.mergeExtensionChild([]byte{byte(childIdx)}, nb.children[childIdx])
	default:
		return t.storeNode(nb)
	}
}

func (t *Trie) load(h common.Hash) (node, error) {
	enc, ok, err := t.store.Get(h)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCorruptNode
	}
	return decodeNode(enc)
}

func (t *Trie) storeNode(n node) (common.Hash, error) {
	enc := n.encode()
	h := hashNode(enc)
	if err := t.store.Put(h, enc); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}

func concatNibbles(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
