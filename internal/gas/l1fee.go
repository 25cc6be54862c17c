package gas

import "math/big"

// L1FeeParams are the Ecotone-era rollup data-fee coefficients, set by
// the sequencer from L1 observations and carried in predeploy storage
// on L2 (spec §4.4). Scalars are fixed-point with 6 decimals, matching
// Optimism's GasPriceOracle.
type L1FeeParams struct {
	BaseFee          *big.Int
	BlobBaseFee      *big.Int
	BaseFeeScalar    uint32
	BlobBaseFeeScalar uint32
}

const ecoteneScalarPrecision = 1_000_000

// L1DataFee computes the Ecotone L1 data-availability fee charged to a
// transaction, proportional to its estimated compressed size:
//
//	fee = estimatedSize * (baseFeeScalar*16*l1BaseFee + blobBaseFeeScalar*blobBaseFee) / (16 * 1e6)
//
// This is the standard Ecotone formula; the "*16" terms normalize the
// base-fee scalar onto the same per-byte units as the blob scalar.
func L1DataFee(p L1FeeParams, rawTxBytes []byte) *big.Int {
	size := estimatedCompressedSize(rawTxBytes)

	scaledBase := new(big.Int).SetUint64(uint64(p.BaseFeeScalar) * 16)
	scaledBase.Mul(scaledBase, p.BaseFee)

	scaledBlob := new(big.Int).SetUint64(uint64(p.BlobBaseFeeScalar))
	scaledBlob.Mul(scaledBlob, p.BlobBaseFee)

	sum := new(big.Int).Add(scaledBase, scaledBlob)
	sum.Mul(sum, big.NewInt(int64(size)))
	sum.Div(sum, big.NewInt(16*ecoteneScalarPrecision))
	return sum
}

// estimatedCompressedSize approximates the fastlz-compressed length of
// a transaction's RLP encoding, the same proxy Optimism uses to avoid
// compressing every transaction just to price it. This is a pure-Go
// port of the FastLZ level-1 match-finding loop (original_source used
// the reference C fastlz implementation; only the length, never the
// compressed bytes, is needed here).
func estimatedCompressedSize(data []byte) uint64 {
	const (
		minMatch  = 4
		hashLog   = 13
		hashSize  = 1 << hashLog
	)
	if len(data) < minMatch {
		return uint64(len(data))
	}

	htab := make([]int, hashSize)
	for i := range htab {
		htab[i] = -1
	}
	hash := func(i int) uint32 {
		v := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16
		return (v * 2654435761) >> (32 - hashLog)
	}

	var compressed uint64
	ip := 0
	anchor := 0
	n := len(data) - minMatch

	flushLiteral := func(from, to int) {
		for to-from > 0 {
			run := to - from
			if run > 32 {
				run = 32
			}
			compressed += uint64(1 + run)
			from += run
		}
	}

	for ip < n {
		h := hash(ip)
		ref := htab[h]
		htab[h] = ip

		if ref >= 0 && ref < ip && data[ref] == data[ip] && data[ref+1] == data[ip+1] && data[ref+2] == data[ip+2] {
			flushLiteral(anchor, ip)
			matchLen := minMatch
			for ip+matchLen < len(data) && ref+matchLen < ip && data[ref+matchLen] == data[ip+matchLen] {
				matchLen++
			}
			compressed += 3
			ip += matchLen
			anchor = ip
			continue
		}
		ip++
	}
	flushLiteral(anchor, len(data))
	return compressed
}
