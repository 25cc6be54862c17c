package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/moved-network/moved/internal/types"
)

func counterTag(addr types.MoveAddress) types.StructTag {
	return types.StructTag{Address: addr, Module: "counter", Name: "Counter"}
}

// TestModuleAndResourceRoundTrip mirrors end-to-end scenario 5: publish
// a module and a resource, read them back, mutate, re-read.
func TestModuleAndResourceRoundTrip(t *testing.T) {
	st := NewStateTrie(NewMemoryNodeStore())
	var addr types.MoveAddress
	addr[31] = 0xAA

	_, err := st.Apply(&Changes{
		Modules: []ModuleWrite{{ID: types.ModuleID{Address: addr, Name: "counter"}, Code: []byte("bytecode-v1")}},
		Resources: []ResourceWrite{{Address: addr, Tag: counterTag(addr), Value: []byte{7}}},
	})
	require.NoError(t, err)

	r := st.Resolver(st.StateRoot())
	code, err := r.ModuleAt(types.ModuleID{Address: addr, Name: "counter"})
	require.NoError(t, err)
	require.Equal(t, []byte("bytecode-v1"), code)

	val, err := r.ResourceAt(addr, counterTag(addr))
	require.NoError(t, err)
	require.Equal(t, []byte{7}, val)

	_, err = st.Apply(&Changes{Resources: []ResourceWrite{{Address: addr, Tag: counterTag(addr), Value: []byte{8}}}})
	require.NoError(t, err)

	r = st.Resolver(st.StateRoot())
	val, err = r.ResourceAt(addr, counterTag(addr))
	require.NoError(t, err)
	require.Equal(t, []byte{8}, val)
}

func TestAccountStorageRoundTrip(t *testing.T) {
	st := NewStateTrie(NewMemoryNodeStore())
	addr := common.HexToAddress("0x4200000000000000000000000000000000000011")
	slot := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")

	nonce := uint64(1)
	_, err := st.Apply(&Changes{
		Accounts: []AccountDelta{{Address: addr, Nonce: &nonce, Balance: uint256.NewInt(100)}},
		Storage:  []StorageWrite{{Address: addr, Slot: slot, Value: val}},
	})
	require.NoError(t, err)

	r := st.Resolver(st.StateRoot())
	acct, err := r.AccountAt(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), acct.Nonce)
	require.True(t, acct.Balance.Eq(uint256.NewInt(100)))
	require.NotEqual(t, common.Hash{}, acct.StorageRoot, "storage write must materialize a nonzero storage root")

	got, err := r.StorageAt(addr, slot)
	require.NoError(t, err)
	require.Equal(t, val, got)

	// zero-value write deletes the slot (spec §4.1).
	_, err = st.Apply(&Changes{Storage: []StorageWrite{{Address: addr, Slot: slot, Value: common.Hash{}}}})
	require.NoError(t, err)
	r = st.Resolver(st.StateRoot())
	got, err = r.StorageAt(addr, slot)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, got)
}

func TestAccountProofOnlyForPredeploys(t *testing.T) {
	st := NewStateTrie(NewMemoryNodeStore())
	predeploy := types.PredeployAddress(0x11)
	other := common.HexToAddress("0x1111111111111111111111111111111111111111")

	nonce := uint64(1)
	_, err := st.Apply(&Changes{Accounts: []AccountDelta{
		{Address: predeploy, Nonce: &nonce, Balance: uint256.NewInt(0)},
		{Address: other, Nonce: &nonce, Balance: uint256.NewInt(0)},
	}})
	require.NoError(t, err)

	root := st.StateRoot()
	proof, err := st.Proof(predeploy, nil, root)
	require.NoError(t, err)
	val, err := VerifyProof(root, accountTreeKey(predeploy).Bytes(), proof.AccountProof)
	require.NoError(t, err)
	require.NotNil(t, val)

	_, err = st.Proof(other, nil, root)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestListResourcesOrdered(t *testing.T) {
	st := NewStateTrie(NewMemoryNodeStore())
	var addr types.MoveAddress
	addr[31] = 1

	tags := []types.StructTag{
		{Address: addr, Module: "m", Name: "Zeta"},
		{Address: addr, Module: "m", Name: "Alpha"},
		{Address: addr, Module: "m", Name: "Mid"},
	}
	var writes []ResourceWrite
	for _, tag := range tags {
		writes = append(writes, ResourceWrite{Address: addr, Tag: tag, Value: []byte{1}})
	}
	_, err := st.Apply(&Changes{Resources: writes})
	require.NoError(t, err)

	r := st.Resolver(st.StateRoot())
	listed, err := r.ListResources(addr, nil, 10)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	// ascending lexicographic order of the canonical struct-tag string.
	require.True(t, string(listed[0]) < string(listed[1]))
	require.True(t, string(listed[1]) < string(listed[2]))
}
