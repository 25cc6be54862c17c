package gas

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestNextBaseFeeUnchangedAtTarget(t *testing.T) {
	p := DefaultParams()
	next := NextBaseFee(p, 30_000_000, 15_000_000, big.NewInt(1_000_000_000))
	require.Equal(t, big.NewInt(1_000_000_000), next)
}

func TestNextBaseFeeIncreasesAboveTarget(t *testing.T) {
	p := DefaultParams()
	next := NextBaseFee(p, 30_000_000, 30_000_000, big.NewInt(1_000_000_000))
	require.True(t, next.Cmp(big.NewInt(1_000_000_000)) > 0)
}

func TestNextBaseFeeFloorsAtMin(t *testing.T) {
	p := DefaultParams()
	p.MinBaseFee = big.NewInt(100)
	next := NextBaseFee(p, 30_000_000, 0, big.NewInt(101))
	require.True(t, next.Cmp(p.MinBaseFee) >= 0)
}

func TestOctaWeiRoundTrip(t *testing.T) {
	octa := uint256.NewInt(42)
	wei := OctaToWei(octa)
	require.True(t, wei.Eq(uint256.NewInt(420_000_000_000)))

	back, rem := WeiToOcta(wei)
	require.True(t, back.Eq(octa))
	require.True(t, rem.IsZero())

	_, rem = WeiToOcta(new(uint256.Int).Add(wei, uint256.NewInt(1)))
	require.False(t, rem.IsZero())
}

func TestL1DataFeeScalesWithSize(t *testing.T) {
	p := L1FeeParams{BaseFee: big.NewInt(1_000_000_000), BlobBaseFee: big.NewInt(1), BaseFeeScalar: 1000, BlobBaseFeeScalar: 1}
	small := L1DataFee(p, make([]byte, 32))
	large := L1DataFee(p, make([]byte, 4096))
	require.True(t, large.Cmp(small) > 0)
}

func TestEffectiveGasPriceCapsAtFeeCap(t *testing.T) {
	got := EffectiveGasPrice(big.NewInt(100), big.NewInt(50), big.NewInt(80))
	require.Equal(t, big.NewInt(100), got)
	got = EffectiveGasPrice(big.NewInt(1000), big.NewInt(10), big.NewInt(80))
	require.Equal(t, big.NewInt(90), got)
}
