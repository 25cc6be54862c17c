package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// TestPayloadIDDeterministic covers invariant I5: identical attributes
// must always derive byte-identical payload ids.
func TestPayloadIDDeterministic(t *testing.T) {
	parent := common.HexToHash("0x781f00000000000000000000000000000000000000000000000000000b2449")
	gasLimit := uint64(0x1c9c380)
	attrs := &PayloadAttributes{
		Timestamp:            0x666c9d8d,
		PrevRandao:           common.HexToHash("0x5e52"),
		SuggestedFeeRecipient: common.HexToAddress("0x4200000000000000000000000000000000000011"),
		GasLimit:             &gasLimit,
	}

	id1 := NewPayloadID(parent, attrs)
	id2 := NewPayloadID(parent, attrs)
	require.Equal(t, id1, id2)
	require.Equal(t, byte(3), id1[0], "first byte must be overwritten with the version")
}

func TestPayloadIDVariesWithInputs(t *testing.T) {
	parent := common.HexToHash("0xaa")
	gasLimit := uint64(30_000_000)
	base := &PayloadAttributes{Timestamp: 100, GasLimit: &gasLimit}
	variant := &PayloadAttributes{Timestamp: 101, GasLimit: &gasLimit}

	require.NotEqual(t, NewPayloadID(parent, base), NewPayloadID(parent, variant))
}

func TestAddressMoveInjectionRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x8fd379bb99f1b3eae0aa3a0e240d0a5c8f3e7a03")
	mv := ToMoveAddress(addr)
	back, ok := FromMoveAddress(mv)
	require.True(t, ok)
	require.Equal(t, addr, back)
}

func TestIsL2Predeploy(t *testing.T) {
	require.True(t, IsL2Predeploy(PredeployAddress(0x11)))
	require.True(t, IsL2Predeploy(common.HexToAddress("0x4200000000000000000000000000000000000000")))
	require.False(t, IsL2Predeploy(common.HexToAddress("0x4200000000000000000000000000000000010000")))
	require.False(t, IsL2Predeploy(common.HexToAddress("0x1111111111111111111111111111111111111111")))
}
