package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrieGetPutDelete(t *testing.T) {
	store := NewMemoryNodeStore()
	tr := New(store, [32]byte{})

	require.NoError(t, tr.Put([]byte("alpha"), []byte("1")))
	require.NoError(t, tr.Put([]byte("alphabet"), []byte("2")))
	require.NoError(t, tr.Put([]byte("beta"), []byte("3")))

	v, err := tr.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	v, err = tr.Get([]byte("alphabet"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)

	require.NoError(t, tr.Delete([]byte("alpha")))
	v, err = tr.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = tr.Get([]byte("alphabet"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)

	v, err = tr.Get([]byte("beta"))
	require.NoError(t, err)
	require.Equal(t, []byte("3"), v)
}

func TestTrieDeterministicRoot(t *testing.T) {
	store1, store2 := NewMemoryNodeStore(), NewMemoryNodeStore()
	t1, t2 := New(store1, [32]byte{}), New(store2, [32]byte{})

	keys := [][2]string{{"a", "1"}, {"bb", "2"}, {"ccc", "3"}, {"d", "4"}}
	for _, kv := range keys {
		require.NoError(t, t1.Put([]byte(kv[0]), []byte(kv[1])))
	}
	// insert in reverse order into t2 — content-addressing must still
	// converge on the same root.
	for i := len(keys) - 1; i >= 0; i-- {
		require.NoError(t, t2.Put([]byte(keys[i][0]), []byte(keys[i][1])))
	}

	require.Equal(t, t1.Hash(), t2.Hash())
}

// TestProofVerification covers invariant I3: a proof generated by this
// trie verifies against its root using a standard Merkle-proof replay.
func TestProofVerification(t *testing.T) {
	store := NewMemoryNodeStore()
	tr := New(store, [32]byte{})
	for _, kv := range [][2]string{{"account-a", "100"}, {"account-b", "200"}, {"account-ab", "300"}} {
		require.NoError(t, tr.Put([]byte(kv[0]), []byte(kv[1])))
	}

	proof, err := tr.Prove([]byte("account-a"))
	require.NoError(t, err)

	val, err := VerifyProof(tr.Hash(), []byte("account-a"), proof)
	require.NoError(t, err)
	require.Equal(t, []byte("100"), val)

	// Tampered root must fail to verify.
	_, err = VerifyProof([32]byte{1}, []byte("account-a"), proof)
	require.Error(t, err)
}

func TestProofOfAbsence(t *testing.T) {
	store := NewMemoryNodeStore()
	tr := New(store, [32]byte{})
	require.NoError(t, tr.Put([]byte("present"), []byte("1")))

	proof, err := tr.Prove([]byte("absent"))
	require.NoError(t, err)
	val, err := VerifyProof(tr.Hash(), []byte("absent"), proof)
	require.NoError(t, err)
	require.Nil(t, val)
}
