package mempool

import (
	"math/big"
	"testing"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"cosmossdk.io/log"

	"github.com/moved-network/moved/internal/types"
)

func txWithGasPrice(gasPrice int64, nonce uint64) *types.Transaction {
	raw := ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: nonce, GasPrice: big.NewInt(gasPrice), Gas: 21000})
	return &types.Transaction{Canonical: &types.CanonicalTx{Raw: raw}}
}

func TestPoolAddDrainOrdersByGasPrice(t *testing.T) {
	p := New(log.NewNopLogger(), 0)
	low := txWithGasPrice(1, 0)
	high := txWithGasPrice(10, 1)

	require.NoError(t, p.Add(low))
	require.NoError(t, p.Add(high))
	require.ErrorIs(t, p.Add(low), ErrAlreadyKnown)
	require.Equal(t, 2, p.Len())

	drained := p.Drain(0)
	require.Len(t, drained, 2)
	require.Equal(t, high.Hash(), drained[0].Hash())
	require.Equal(t, low.Hash(), drained[1].Hash())
	require.Equal(t, 0, p.Len())
}

func TestPoolCapacity(t *testing.T) {
	p := New(log.NewNopLogger(), 1)
	require.NoError(t, p.Add(txWithGasPrice(1, 0)))
	require.ErrorIs(t, p.Add(txWithGasPrice(2, 1)), ErrPoolFull)
}
