// Package block implements C7: the block-building pipeline driven by
// forkchoice_updated/start_block_build, turning a set of candidate
// transactions into a committed, authenticated block.
package block

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/moved-network/moved/internal/blockhash"
	"github.com/moved-network/moved/internal/execution"
	"github.com/moved-network/moved/internal/gas"
	"github.com/moved-network/moved/internal/mempool"
	"github.com/moved-network/moved/internal/payload"
	"github.com/moved-network/moved/internal/stateroot"
	"github.com/moved-network/moved/internal/store"
	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
	"github.com/moved-network/moved/internal/vm/evmvm"
)

// Builder is C7.
type Builder struct {
	ChainID   uint64
	GasParams gas.Params
	L1Fee     gas.L1FeeParams

	State     *trie.StateTrie
	Executor  *execution.Executor
	Mempool   *mempool.Pool
	Blocks    store.BlockStore
	Txs       store.TransactionStore
	Receipts  store.ReceiptStore
	Roots     *stateroot.Index
	Hashes    *blockhash.Ring
	Registry  *payload.Registry
}

// Build executes start_block_build per spec §4.7, steps 4-13 (steps
// 1-3, the registry dedup/in-progress check, are the actor's
// responsibility before calling Build; the actor's single goroutine
// serializes the "is this id already handled" decision with the
// synchronous build that follows).
func (b *Builder) Build(attrs *types.PayloadAttributes, id types.PayloadID) (*types.ExtendedBlock, error) {
	parent, ok, err := b.Blocks.Latest()
	if err != nil {
		return nil, err
	}
	var parentHeader *types.Header
	var parentNumber uint64
	if ok {
		parentHeader = parent.Block.Header
		parentNumber = parent.Block.Number()
	} else {
		parentHeader = &types.Header{Number: big.NewInt(-1), GasLimit: 30_000_000, BaseFee: big.NewInt(1_000_000_000)}
		parentNumber = ^uint64(0) // so parentNumber+1 == 0 for genesis
	}

	baseFee := gas.NextBaseFee(b.GasParams, parentHeader.GasLimit, parentHeader.GasUsed, parentHeader.BaseFee)

	candidates := b.collectCandidates(attrs)

	number := parentNumber + 1
	header := &types.Header{
		ParentHash: parentHeader.Hash(),
		Number:     new(big.Int).SetUint64(number),
		Time:       attrs.Timestamp,
		MixDigest:  attrs.PrevRandao,
		GasLimit:   parentHeader.GasLimit,
		BaseFee:    baseFee,
		Coinbase:   attrs.SuggestedFeeRecipient,
	}
	if n, ok := gasLimitOverride(attrs); ok {
		header.GasLimit = n
	}

	resolver := b.State.Resolver(b.State.StateRoot())
	cfg := execution.Config{
		ChainID:     b.ChainID,
		BaseFee:     baseFee,
		L1FeeParams: b.L1Fee,
		BlockContext: evmvm.BlockContext{
			Coinbase:    header.Coinbase,
			BlockNumber: header.Number,
			Timestamp:   header.Time,
			Difficulty:  new(big.Int),
			BaseFee:     baseFee,
			GasLimit:    header.GasLimit,
			GetHash:     func(n uint64) common.Hash { h, _ := b.Hashes.HashByNumber(n); return h },
		},
	}

	var (
		receipts     []*types.Receipt
		included     []*types.Transaction
		cumulative   uint64
		bloom        ethtypes.Bloom
		totalTip     = new(big.Int)
	)

	blockHashPlaceholder := common.Hash{} // filled after header is final; receipts get patched below

	for _, tx := range candidates {
		if _, known, _ := b.Receipts.ReceiptByHash(tx.Hash()); known {
			continue
		}
		var outcome *execution.Outcome
		if tx.IsDeposit() {
			outcome = b.Executor.ExecuteDeposited(cfg, tx.Deposited, resolver, uint64(len(included)), blockHashPlaceholder, number, attrs.Timestamp)
		} else {
			outcome = b.Executor.ExecuteCanonical(cfg, tx.Canonical, resolver, uint64(len(included)), blockHashPlaceholder, number, attrs.Timestamp)
		}
		if outcome.Dropped {
			continue
		}
		if !outcome.Changes.IsEmpty() {
			newRoot, err := b.State.Apply(outcome.Changes)
			if err != nil {
				return nil, err
			}
			resolver = b.State.Resolver(newRoot)
		}

		cumulative += outcome.Receipt.GasUsed
		if cumulative < outcome.Receipt.GasUsed {
			cumulative = ^uint64(0) // saturate
		}
		outcome.Receipt.Inner.CumulativeGasUsed = cumulative
		for i := range bloom {
			bloom[i] |= outcome.Receipt.Inner.Bloom[i]
		}
		if tx.Canonical != nil {
			tip := tipOf(tx.Canonical.Raw, baseFee)
			totalTip.Add(totalTip, new(big.Int).Mul(tip, new(big.Int).SetUint64(outcome.Receipt.GasUsed)))
		}

		receipts = append(receipts, outcome.Receipt)
		included = append(included, tx)
	}

	var txBytes, receiptBytes [][]byte
	var txHashes []common.Hash
	for _, tx := range included {
		if tx.Canonical != nil {
			enc, _ := tx.Canonical.Raw.MarshalBinary()
			txBytes = append(txBytes, enc)
		} else {
			enc, _ := rlp.EncodeToBytes(tx.Deposited)
			txBytes = append(txBytes, enc)
		}
		txHashes = append(txHashes, tx.Hash())
	}
	for _, r := range receipts {
		enc, _ := rlp.EncodeToBytes(r.Inner)
		receiptBytes = append(receiptBytes, enc)
	}

	header.TxHash = orderedTrieRoot(txBytes)
	header.ReceiptHash = orderedTrieRoot(receiptBytes)
	header.WithdrawalsHash = &types.EmptyRootHash
	header.Root = b.State.StateRoot()
	header.Bloom = bloom
	header.GasUsed = cumulative

	blockHash := header.Hash()
	for _, r := range receipts {
		r.BlockHash = blockHash
		r.Inner.BlockHash = blockHash
	}

	eb := &types.ExtendedBlock{
		Block: &types.Block{Header: header, TxHashes: txHashes},
		Txs:   included,
		Value: totalTip,
	}
	eb.PayloadID = id
	eb.RLPSize = types.EncodedSize(header)

	if err := b.commit(eb, receipts); err != nil {
		return nil, err
	}

	b.Registry.FinishID(id, eb, nil)
	return eb, nil
}

func (b *Builder) commit(eb *types.ExtendedBlock, receipts []*types.Receipt) error {
	for i, tx := range eb.Txs {
		if err := b.Txs.PutTransaction(eb.Hash(), uint64(i), tx); err != nil {
			return err
		}
	}
	for _, r := range receipts {
		if err := b.Receipts.PutReceipt(r); err != nil {
			return err
		}
	}
	if err := b.Blocks.PutBlock(eb); err != nil {
		return err
	}
	b.Hashes.Push(eb.Number(), eb.Hash())
	return b.Roots.Record(eb.Number(), eb.Header.Root)
}

func (b *Builder) collectCandidates(attrs *types.PayloadAttributes) []*types.Transaction {
	var out []*types.Transaction
	for _, raw := range attrs.Transactions {
		if tx, err := b.decodeOpaqueTx(raw); err == nil {
			out = append(out, tx)
		}
	}
	if !attrs.NoTxPool {
		out = append(out, b.Mempool.Drain(0)...)
	}
	return out
}

// decodeOpaqueTx parses one of the raw transaction byte strings carried
// by PayloadAttributes.Transactions (as the Engine API delivers them)
// into a classified CanonicalTx.
func (b *Builder) decodeOpaqueTx(raw []byte) (*types.Transaction, error) {
	ethTx := new(ethtypes.Transaction)
	if err := ethTx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	signer := ethtypes.LatestSignerForChainID(new(big.Int).SetUint64(b.ChainID))
	from, err := ethtypes.Sender(signer, ethTx)
	if err != nil {
		return nil, err
	}
	canonical := &types.CanonicalTx{Raw: ethTx, Signer: from}
	if err := types.Classify(canonical, execution.DecodeCreatePayload, execution.DecodeCallPayload); err != nil {
		return nil, err
	}
	return &types.Transaction{Canonical: canonical}, nil
}

func gasLimitOverride(attrs *types.PayloadAttributes) (uint64, bool) {
	if attrs.GasLimit != nil {
		return *attrs.GasLimit, true
	}
	return 0, false
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
