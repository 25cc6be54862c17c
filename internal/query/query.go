// Package query implements C10: every pure-read operation the RPC
// layer exposes, resolved against a committed state-root snapshot
// rather than against the writer's in-flight state, grounded on the
// teacher's `rpc/backend/*.go` read-path handlers.
package query

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/moved-network/moved/internal/actor"
	"github.com/moved-network/moved/internal/execution"
	"github.com/moved-network/moved/internal/gas"
	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
	"github.com/moved-network/moved/internal/vm/movevm"
)

var (
	ErrUnknownBlock       = errors.New("query: unknown block")
	ErrUnknownTransaction = errors.New("query: unknown transaction")
	ErrOutOfRange         = trie.ErrOutOfRange
)

// Service is C10, backed only by the read-only Reader handle plus the
// stateless helpers (gas math, the VM dispatch used for estimate_gas
// and call) it needs to answer queries without touching the writer.
type Service struct {
	Reader    *actor.Reader
	Executor  *execution.Executor
	GasParams gas.Params
	L1Fee     gas.L1FeeParams
}

// MinSuggestedPriorityFee and MaxSuggestedPriorityFee bound the
// priority-fee suggestion per spec §4.10's gas_price heuristic.
const (
	MinSuggestedPriorityFee = 1_000_000
	MaxSuggestedPriorityFee = 500_000_000_000
)

func (s *Service) ChainID() uint64 { return s.Reader.ChainID }

// latestHeight returns the most recently committed block height, or
// (0, false) if no block has been committed yet.
func (s *Service) latestHeight() (uint64, bool) {
	h, _, ok := s.Reader.Roots.Latest()
	return h, ok
}

// LatestHeight reports the most recently committed block height.
func (s *Service) LatestHeight() (uint64, bool) { return s.latestHeight() }

// ResolveHeight turns a block tag into a concrete committed height
// (spec §4.10), without looking up the state root at that height.
func (s *Service) ResolveHeight(tag Tag) (uint64, error) {
	latest, ok := s.latestHeight()
	if !ok {
		latest = 0
	}
	return tag.Resolve(latest)
}

// resolveRoot turns a block tag into a concrete height and the state
// root committed at that height (spec §4.10).
func (s *Service) resolveRoot(tag Tag) (uint64, common.Hash, error) {
	latest, ok := s.latestHeight()
	if !ok {
		latest = 0
	}
	height, err := tag.Resolve(latest)
	if err != nil {
		return 0, common.Hash{}, err
	}
	root, found, err := s.Reader.Roots.RootAt(height)
	if err != nil {
		return 0, common.Hash{}, err
	}
	if !found {
		return 0, common.Hash{}, ErrUnknownBlock
	}
	return height, root, nil
}

// BalanceAt returns addr's Move base-token balance at tag.
func (s *Service) BalanceAt(addr common.Address, tag Tag) (*big.Int, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	r := s.Reader.Resolver(root)
	bal, err := movevm.BalanceOf(r, types.ToMoveAddress(addr))
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

// NonceAt returns addr's Move-side account nonce at tag.
func (s *Service) NonceAt(addr common.Address, tag Tag) (uint64, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return 0, err
	}
	return movevm.NonceOf(s.Reader.Resolver(root), types.ToMoveAddress(addr))
}

// EvmBytecodeAt returns the contract code deployed at addr, or nil if
// addr has no code.
func (s *Service) EvmBytecodeAt(addr common.Address, tag Tag) ([]byte, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	r := s.Reader.Resolver(root)
	acct, err := r.AccountAt(addr)
	if err != nil || acct == nil || acct.CodeHash == (common.Hash{}) {
		return nil, err
	}
	return r.CodeAt(acct.CodeHash)
}

// EvmStorageAt returns the EVM storage slot's value at addr, tag.
func (s *Service) EvmStorageAt(addr common.Address, slot common.Hash, tag Tag) (common.Hash, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return common.Hash{}, err
	}
	return s.Reader.Resolver(root).StorageAt(addr, slot)
}

// Proof returns an EIP-1186-style account/storage proof at tag.
func (s *Service) Proof(addr common.Address, slots []common.Hash, tag Tag) (*trie.AccountProof, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	return s.Reader.State.Proof(addr, slots, root)
}

// BlockByHash returns the committed block at hash.
func (s *Service) BlockByHash(hash common.Hash) (*types.ExtendedBlock, bool, error) {
	return s.Reader.Blocks.BlockByHash(hash)
}

// BlockByNumber returns the committed block at height.
func (s *Service) BlockByNumber(height uint64) (*types.ExtendedBlock, bool, error) {
	return s.Reader.Blocks.BlockByNumber(height)
}

// TransactionByHash returns a transaction plus its inclusion location.
func (s *Service) TransactionByHash(hash common.Hash) (*types.Transaction, common.Hash, uint64, bool, error) {
	return s.Reader.Txs.TransactionByHash(hash)
}

// Receipt returns the receipt for a committed transaction.
func (s *Service) Receipt(txHash common.Hash) (*types.Receipt, bool, error) {
	return s.Reader.Receipts.ReceiptByHash(txHash)
}

// GasPrice is base_fee + the suggested priority fee, per spec §4.10.
func (s *Service) GasPrice() (*big.Int, error) {
	tip, err := s.MaxPriorityFeePerGas()
	if err != nil {
		return nil, err
	}
	height, ok := s.latestHeight()
	if !ok {
		return tip, nil
	}
	block, found, err := s.Reader.Blocks.BlockByNumber(height)
	if err != nil || !found {
		return tip, err
	}
	return new(big.Int).Add(block.Header.BaseFee, tip), nil
}

// MaxPriorityFeePerGas implements spec §4.10's Optimism/geth priority
// fee heuristic: low congestion returns the floor; otherwise 1.10x the
// median priority tip of the latest block's transactions, clamped.
func (s *Service) MaxPriorityFeePerGas() (*big.Int, error) {
	height, ok := s.latestHeight()
	if !ok {
		return big.NewInt(MinSuggestedPriorityFee), nil
	}
	block, found, err := s.Reader.Blocks.BlockByNumber(height)
	if err != nil || !found {
		return big.NewInt(MinSuggestedPriorityFee), nil
	}

	maxTxGas := uint64(21000)
	for _, tx := range s.Reader.Mempool.Iter() {
		if tx.Canonical != nil && tx.Canonical.Raw.Gas() > maxTxGas {
			maxTxGas = tx.Canonical.Raw.Gas()
		}
	}
	if block.Header.GasUsed+maxTxGas <= block.Header.GasLimit {
		return big.NewInt(MinSuggestedPriorityFee), nil
	}

	var tips []*big.Int
	for _, hash := range block.Block.TxHashes {
		tx, _, _, found, err := s.Reader.Txs.TransactionByHash(hash)
		if err != nil || !found || tx.Canonical == nil {
			continue
		}
		tips = append(tips, tipOf(tx.Canonical.Raw, block.Header.BaseFee))
	}
	if len(tips) == 0 {
		return big.NewInt(MinSuggestedPriorityFee), nil
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i].Cmp(tips[j]) < 0 })
	median := tips[len(tips)/2]

	suggested := new(big.Int).Mul(median, big.NewInt(110))
	suggested.Div(suggested, big.NewInt(100))
	return clamp(suggested, big.NewInt(MinSuggestedPriorityFee), big.NewInt(MaxSuggestedPriorityFee)), nil
}

func clamp(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return lo
	}
	if v.Cmp(hi) > 0 {
		return hi
	}
	return v
}

func tipOf(raw *ethtypes.Transaction, baseFee *big.Int) *big.Int {
	tip := raw.GasTipCap()
	if raw.Type() != ethtypes.DynamicFeeTxType {
		tip = new(big.Int).Sub(raw.GasPrice(), baseFee)
	}
	if tip.Sign() < 0 {
		tip = new(big.Int)
	}
	return tip
}

// EstimateGas simulates tx at tag and returns gas_used * 4/3.
func (s *Service) EstimateGas(tx *types.CanonicalTx, tag Tag) (uint64, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return 0, err
	}
	result := s.Executor.Simulate(s.simConfig(root), tx, s.Reader.Resolver(root))
	return result.GasUsed * 4 / 3, nil
}

// Call simulates tx at tag and returns its returned bytes.
func (s *Service) Call(tx *types.CanonicalTx, tag Tag) ([]byte, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	result := s.Executor.Simulate(s.simConfig(root), tx, s.Reader.Resolver(root))
	return result.ReturnData, result.Err
}

func (s *Service) simConfig(root common.Hash) execution.Config {
	height, _ := s.latestHeight()
	block, found, _ := s.Reader.Blocks.BlockByNumber(height)
	baseFee := big.NewInt(0)
	if found {
		baseFee = block.Header.BaseFee
	}
	return execution.Config{ChainID: s.Reader.ChainID, BaseFee: baseFee, L1FeeParams: s.L1Fee}
}

// PayloadStatus is the Unknown/Some/Delayed trichotomy spec §4.8/§4.10
// describe: an id the writer never saw is Unknown; a finished build is
// Some; an in-flight build is Delayed, and the caller (C11's
// get_payload) awaits the registry directly with its own timeout
// rather than blocking here.
type PayloadStatus int

const (
	PayloadUnknown PayloadStatus = iota
	PayloadReady
	PayloadDelayed
)

// Payload looks up an in-progress or completed payload build without
// blocking.
func (s *Service) Payload(id types.PayloadID) (PayloadStatus, *types.ExtendedBlock, error) {
	block, done, found, err := s.Reader.Registry.TryGet(id)
	if !found {
		return PayloadUnknown, nil, nil
	}
	if !done {
		return PayloadDelayed, nil, nil
	}
	return PayloadReady, block, err
}

// PayloadByBlockHash returns payload info for an already-committed
// block, for get_payload calls made after the block was finalized.
func (s *Service) PayloadByBlockHash(hash common.Hash) (*types.ExtendedBlock, bool, error) {
	return s.Reader.Blocks.BlockByHash(hash)
}
