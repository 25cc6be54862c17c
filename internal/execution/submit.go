package execution

import (
	"fmt"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/moved-network/moved/internal/types"
)

// ErrUnsupportedType is returned for a typed transaction envelope this
// node's signer cannot recover from (e.g. the deposit type byte, which
// never arrives through sendRawTransaction).
var ErrUnsupportedType = fmt.Errorf("execution: UnsupportedType")

// DecodeTransaction parses a raw EIP-2718 transaction submission (the
// bytes eth_sendRawTransaction receives) into a classified
// CanonicalTx, recovering its signer against chainID and resolving its
// execution mode via Classify. This mirrors the block builder's own
// decodeOpaqueTx for Engine API-delivered transactions, kept here as a
// standalone entry point for the RPC layer (spec §4.5 step 0/1a).
func DecodeTransaction(raw []byte, chainID uint64) (*types.Transaction, error) {
	if len(raw) > 0 && raw[0] == types.DepositTxType {
		return nil, ErrUnsupportedType
	}
	ethTx := new(ethtypes.Transaction)
	if err := ethTx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("execution: InvalidPayload: %w", err)
	}
	signer := ethtypes.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	from, err := ethtypes.Sender(signer, ethTx)
	if err != nil {
		return nil, fmt.Errorf("execution: InvalidPayload: %w", err)
	}
	canonical := &types.CanonicalTx{Raw: ethTx, Signer: from}
	if err := types.Classify(canonical, DecodeCreatePayload, DecodeCallPayload); err != nil {
		return nil, err
	}
	return &types.Transaction{Canonical: canonical}, nil
}
