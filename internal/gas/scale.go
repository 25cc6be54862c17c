package gas

import (
	"math/big"

	"github.com/holiman/uint256"
)

// OctaToWeiFactor is the fixed conversion factor between Move's 8-decimal
// "octa" base unit and the EVM's 18-decimal wei, mirroring the teacher's
// x/precisebank ConversionFactor idiom for bridging a high-precision EVM
// balance representation against a lower-precision native denom.
var OctaToWeiFactor = uint256.NewInt(10_000_000_000) // 1e10

// OctaToWei upscales a Move-side octa amount into its EVM wei
// representation. Exact: no remainder is possible since wei = octa * 1e10.
func OctaToWei(octa *uint256.Int) *uint256.Int {
	return new(uint256.Int).Mul(octa, OctaToWeiFactor)
}

// WeiToOcta downscales a wei amount into octa, returning the truncated
// quotient and the dropped remainder (the "fractional balance" in the
// precisebank idiom, which a caller must account for separately rather
// than silently lose, e.g. by rejecting a transfer whose value isn't a
// whole multiple of 1e10, per spec §4.4 edge case).
func WeiToOcta(wei *uint256.Int) (octa, remainder *uint256.Int) {
	octa = new(uint256.Int)
	remainder = new(uint256.Int)
	octa.DivMod(wei, OctaToWeiFactor, remainder)
	return octa, remainder
}

// L2Fee is the standard gasUsed * effectiveGasPrice execution fee; it
// makes no tip/base-fee split (effectiveGasPrice itself is computed
// by the caller against the transaction's fee cap and tip cap).
func L2Fee(gasUsed uint64, effectiveGasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), effectiveGasPrice)
}

// EffectiveGasPrice returns min(feeCap, baseFee+tipCap), the standard
// EIP-1559 price a transaction actually pays.
func EffectiveGasPrice(feeCap, tipCap, baseFee *big.Int) *big.Int {
	candidate := new(big.Int).Add(baseFee, tipCap)
	if candidate.Cmp(feeCap) > 0 {
		return new(big.Int).Set(feeCap)
	}
	return candidate
}
