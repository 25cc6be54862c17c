package blockhash

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestRingWindow(t *testing.T) {
	r := New()
	for i := uint64(0); i < 300; i++ {
		r.Push(i, common.BigToHash(new(big.Int).SetUint64(i)))
	}
	_, ok := r.HashByNumber(0)
	require.False(t, ok, "height 0 fell out of the 256-block window")

	h, ok := r.HashByNumber(299)
	require.True(t, ok)
	require.Equal(t, common.BigToHash(new(big.Int).SetUint64(299)), h)

	_, ok = r.HashByNumber(43)
	require.False(t, ok)

	h, ok = r.HashByNumber(44)
	require.True(t, ok)
	require.Equal(t, common.BigToHash(new(big.Int).SetUint64(44)), h)
}

func TestRingUnknownFuture(t *testing.T) {
	r := New()
	r.Push(5, common.Hash{1})
	_, ok := r.HashByNumber(6)
	require.False(t, ok)
}
