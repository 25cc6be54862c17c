package stateroot

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestIndexRecordAndLookup(t *testing.T) {
	idx := New(NewMemoryStore())
	require.NoError(t, idx.Record(0, common.Hash{1}))
	require.NoError(t, idx.Record(1, common.Hash{2}))
	require.Error(t, idx.Record(3, common.Hash{3}), "non-contiguous height must be rejected")

	root, ok, err := idx.RootAt(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, common.Hash{2}, root)

	height, root, ok := idx.Latest()
	require.True(t, ok)
	require.Equal(t, uint64(1), height)
	require.Equal(t, common.Hash{2}, root)
}
