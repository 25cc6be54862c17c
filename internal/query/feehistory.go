package query

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/moved-network/moved/internal/gas"
)

// ErrInvalidFeeHistoryRequest covers the count/percentile validation
// rules in spec §4.10.
var ErrInvalidFeeHistoryRequest = errors.New("query: invalid fee_history request")

// FeeHistoryResult mirrors eth_feeHistory's response shape: one more
// base-fee entry than gas_used/ratio entries (the trailing one is the
// predicted next-block base fee), plus one reward row per requested
// percentile for each block in range.
type FeeHistoryResult struct {
	OldestBlock   uint64
	BaseFeePerGas []*big.Int
	GasUsedRatio  []float64
	Reward        [][]*big.Int // present only if percentiles were requested
}

// FeeHistory implements spec §4.10: walks backward by height from
// endTag's block, looking each block up by number and recording base
// fee and gas_used/gas_limit per block;
// when percentiles are supplied, computes the effective-gas-price
// percentile cut for each block from its included transactions'
// (effective_gas_price, gas_used) pairs.
func (s *Service) FeeHistory(count uint64, endTag Tag, percentiles []float64) (*FeeHistoryResult, error) {
	if count < 1 {
		return nil, ErrInvalidFeeHistoryRequest
	}
	if err := validatePercentiles(percentiles); err != nil {
		return nil, err
	}

	endHeight, _, err := s.resolveRoot(endTag)
	if err != nil {
		return nil, err
	}

	startHeight := uint64(0)
	if endHeight+1 > count {
		startHeight = endHeight + 1 - count
	}

	n := int(endHeight - startHeight + 1)
	res := &FeeHistoryResult{
		OldestBlock:   startHeight,
		BaseFeePerGas: make([]*big.Int, n+1),
		GasUsedRatio:  make([]float64, n),
	}
	if len(percentiles) > 0 {
		res.Reward = make([][]*big.Int, n)
	}

	var nextBaseFee *big.Int
	for i := n - 1; i >= 0; i-- {
		height := startHeight + uint64(i)
		block, found, err := s.Reader.Blocks.BlockByNumber(height)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrUnknownBlock
		}
		h := block.Header
		res.BaseFeePerGas[i] = h.BaseFee
		if h.GasLimit > 0 {
			res.GasUsedRatio[i] = float64(h.GasUsed) / float64(h.GasLimit)
		}
		nextBaseFee = gas.NextBaseFee(s.GasParams, h.GasLimit, h.GasUsed, h.BaseFee)

		if len(percentiles) > 0 {
			rewards, err := s.blockRewards(block.Block.TxHashes, h.GasUsed, percentiles)
			if err != nil {
				return nil, err
			}
			res.Reward[i] = rewards
		}
	}
	res.BaseFeePerGas[n] = nextBaseFee
	return res, nil
}

func validatePercentiles(ps []float64) error {
	if len(ps) > 100 {
		return ErrInvalidFeeHistoryRequest
	}
	prev := -1.0
	for _, p := range ps {
		if p < 0 || p > 100 || p < prev {
			return ErrInvalidFeeHistoryRequest
		}
		prev = p
	}
	return nil
}

type gasPricePoint struct {
	price   *big.Int
	gasUsed uint64
}

// blockRewards sorts the block's (effective_gas_price, gas_used) pairs
// by price, takes the prefix sum, and for each percentile returns the
// price of the first entry whose cumulative gas reaches p*gasUsed/100.
func (s *Service) blockRewards(txHashes []common.Hash, totalGasUsed uint64, percentiles []float64) ([]*big.Int, error) {
	var points []gasPricePoint
	for _, hash := range txHashes {
		r, found, err := s.Reader.Receipts.ReceiptByHash(hash)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		points = append(points, gasPricePoint{price: r.EffectiveGasPrice, gasUsed: r.GasUsed})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].price.Cmp(points[j].price) < 0 })

	out := make([]*big.Int, len(percentiles))
	if len(points) == 0 || totalGasUsed == 0 {
		for i := range out {
			out[i] = new(big.Int)
		}
		return out, nil
	}

	cumulative := points[0].gasUsed
	idx := 0
	for i, p := range percentiles {
		threshold := uint64(p * float64(totalGasUsed) / 100)
		for cumulative < threshold && idx < len(points)-1 {
			idx++
			cumulative += points[idx].gasUsed
		}
		out[i] = points[idx].price
	}
	return out, nil
}
