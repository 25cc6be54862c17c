package execution

import "github.com/moved-network/moved/internal/types"

const (
	txGas                 uint64 = 21000
	txGasContractCreation uint64 = 53000
	txDataZeroGas         uint64 = 4
	txDataNonZeroGas      uint64 = 16
)

// IntrinsicGas mirrors go-ethereum's core.IntrinsicGas: a flat
// per-transaction floor plus a per-byte calldata charge, cheaper for
// zero bytes than non-zero ones (EIP-2028).
func IntrinsicGas(data []byte, isCreate bool) uint64 {
	gas := txGas
	if isCreate {
		gas = txGasContractCreation
	}
	var zeroes, nonZeroes uint64
	for _, b := range data {
		if b == 0 {
			zeroes++
		} else {
			nonZeroes++
		}
	}
	gas += zeroes * txDataZeroGas
	gas += nonZeroes * txDataNonZeroGas
	return gas
}

// classificationIsCreate reports whether a tx's mode targets contract
// or module creation for intrinsic-gas purposes.
func classificationIsCreate(mode types.ExecMode) bool {
	return mode == types.ModeMoveScript || mode == types.ModeMoveModuleDeployment || mode == types.ModeEvmCreate
}
