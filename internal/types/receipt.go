package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Receipt is the per-transaction execution record described in spec §3.
// It embeds go-ethereum's canonical receipt for status/gas/logs/bloom
// and carries the additional fields the query layer and receipts_root
// computation need.
type Receipt struct {
	Inner *ethtypes.Receipt

	To              *common.Address
	From            common.Address
	GasUsed         uint64
	EffectiveGasPrice *big.Int
	TransactionIndex uint64
	ContractAddress *common.Address
	LogsOffset      uint64

	BlockHash      common.Hash
	BlockNumber    uint64
	BlockTimestamp uint64

	// Deposit receipt extension (spec §3, §6).
	IsDeposit           bool
	DepositNonce        *uint64
	DepositReceiptVersion *uint64
}

// Status returns 1 on success, 0 on a recovered user error (VM revert,
// abort, or failed deposit execution).
func (r *Receipt) Status() uint64 {
	return r.Inner.Status
}

// DepositReceiptVersionValue is the constant version used whenever a
// deposit receipt carries deposit-nonce extensions (spec §3).
const DepositReceiptVersionValue = uint64(1)
