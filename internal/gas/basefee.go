// Package gas implements C6: EIP-1559 base-fee adjustment, the
// Ecotone L1 data fee, L2 execution fee accounting, and octa/wei unit
// scaling (spec §4.4). The base-fee formula is grounded on the
// teacher's x/feemarket/keeper/eip1559.go and utils.CalcGasBaseFee,
// translated from cosmossdk.io/math.LegacyDec fixed-point decimals to
// big.Int integer arithmetic since this node has no Cosmos SDK
// transient store to amortize rounding across blocks.
package gas

import (
	"math/big"
)

// Params mirrors the subset of the teacher's feemarket Params this
// node actually needs: elasticity target, change denominator, and a
// floor below which base fee cannot fall.
type Params struct {
	ElasticityMultiplier     uint64
	BaseFeeChangeDenominator uint64
	MinBaseFee               *big.Int
}

// DefaultParams mirrors go-ethereum/Optimism's canonical EIP-1559
// constants (elasticity 2, denominator 8).
func DefaultParams() Params {
	return Params{
		ElasticityMultiplier:     2,
		BaseFeeChangeDenominator: 8,
		MinBaseFee:               big.NewInt(0),
	}
}

// NextBaseFee computes the base fee for the block following a parent
// with the given gas limit, gas used, and base fee — the integer
// translation of utils.CalcGasBaseFee's fixed-point formula:
//
//	target = gasLimit / elasticity
//	if used == target: baseFee unchanged
//	delta  = max(1, baseFee * |used-target| / target / denom)
//	used > target: baseFee + delta
//	used < target: max(minBaseFee, baseFee - delta)
func NextBaseFee(p Params, parentGasLimit, parentGasUsed uint64, parentBaseFee *big.Int) *big.Int {
	if p.ElasticityMultiplier == 0 {
		p.ElasticityMultiplier = 2
	}
	if p.BaseFeeChangeDenominator == 0 {
		p.BaseFeeChangeDenominator = 8
	}
	target := parentGasLimit / p.ElasticityMultiplier
	if target == 0 {
		return new(big.Int).Set(parentBaseFee)
	}
	if parentGasUsed == target {
		return new(big.Int).Set(parentBaseFee)
	}

	var usedDelta uint64
	increase := parentGasUsed > target
	if increase {
		usedDelta = parentGasUsed - target
	} else {
		usedDelta = target - parentGasUsed
	}

	num := new(big.Int).SetUint64(usedDelta)
	num.Mul(num, parentBaseFee)
	num.Div(num, new(big.Int).SetUint64(target))
	num.Div(num, new(big.Int).SetUint64(p.BaseFeeChangeDenominator))

	if num.Sign() == 0 {
		num.SetInt64(1)
	}

	if increase {
		return new(big.Int).Add(parentBaseFee, num)
	}

	next := new(big.Int).Sub(parentBaseFee, num)
	floor := p.MinBaseFee
	if floor == nil {
		floor = big.NewInt(0)
	}
	if next.Cmp(floor) < 0 {
		return new(big.Int).Set(floor)
	}
	return next
}
