package cmd

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moved-network/moved/internal/actor"
	"github.com/moved-network/moved/internal/block"
	"github.com/moved-network/moved/internal/blockhash"
	"github.com/moved-network/moved/internal/config"
	"github.com/moved-network/moved/internal/engineapi"
	"github.com/moved-network/moved/internal/execution"
	"github.com/moved-network/moved/internal/gas"
	"github.com/moved-network/moved/internal/mempool"
	"github.com/moved-network/moved/internal/payload"
	"github.com/moved-network/moved/internal/query"
	"github.com/moved-network/moved/internal/rpcserver"
	"github.com/moved-network/moved/internal/stateroot"
	"github.com/moved-network/moved/internal/store"
	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
	"github.com/moved-network/moved/internal/vm/movevm"
)

// NewStartCmd wires C1 through C11 into a running node, following the
// teacher's cosmosevmserver.AddCommands "start" wiring shape: resolve
// config, construct the storage/state/VM layers bottom-up, hand the
// fully-assembled bundle to the transport layer, and block until
// signaled.
func NewStartCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "run the execution node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := log.NewLogger(os.Stderr)
			return run(cmd.Context(), logger, cfg)
		},
	}
}

func run(ctx context.Context, logger log.Logger, cfg *config.Config) error {
	nodeStore := trie.NewMemoryNodeStore()
	state := trie.NewStateTrie(nodeStore)
	state.SetRoot(cfg.Genesis.InitialStateRoot)

	moveVM := movevm.New()
	executor := execution.New(moveVM)
	mpool := mempool.New(logger, 0)

	blocks := store.NewMemoryStore()
	roots := stateroot.New(stateroot.NewMemoryStore())
	hashes := blockhash.New()
	registry := payload.NewRegistry()

	gasParams := gas.DefaultParams()
	l1Fee := gas.L1FeeParams{BaseFee: new(big.Int), BlobBaseFee: new(big.Int)}

	builder := &block.Builder{
		ChainID:   cfg.Genesis.ChainID,
		GasParams: gasParams,
		L1Fee:     l1Fee,
		State:     state,
		Executor:  executor,
		Mempool:   mpool,
		Blocks:    blocks,
		Txs:       blocks,
		Receipts:  blocks,
		Roots:     roots,
		Hashes:    hashes,
		Registry:  registry,
	}

	app := &actor.Application{
		Logger:   logger,
		State:    state,
		Builder:  builder,
		Mempool:  mpool,
		Blocks:   blocks,
		Txs:      blocks,
		Receipts: blocks,
		Roots:    roots,
		Hashes:   hashes,
		Registry: registry,
	}
	nodeActor := actor.New(app, cfg.MaxBufferedCommands)
	defer nodeActor.Shutdown()

	if err := seedGenesis(ctx, nodeActor, cfg); err != nil {
		return err
	}

	reader := actor.NewReader(cfg.Genesis.ChainID, app)
	queryService := &query.Service{Reader: reader, Executor: executor, GasParams: gasParams, L1Fee: l1Fee}

	auth := engineapi.NewAuthenticator(cfg.Auth.JWTSecret)
	engine := &engineapi.EngineAPI{Actor: nodeActor, Query: queryService}

	srv := &rpcserver.Server{
		Logger:   logger,
		HTTPAddr: cfg.HTTP.Addr,
		AuthAddr: cfg.Auth.Addr,
		Auth:     auth,
		Eth:      &rpcserver.EthAPI{Query: queryService, Actor: nodeActor},
		Move:     &rpcserver.MoveAPI{Query: queryService},
		Engine:   &rpcserver.EngineNamespace{Inner: engine},
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting moved", "chain_id", cfg.Genesis.ChainID, "http", cfg.HTTP.Addr, "auth", cfg.Auth.Addr)
	return srv.Run(runCtx)
}

// seedGenesis inserts the genesis block (height 0) if storage is
// empty, per spec §4.7's "first start_block_build has no parent"
// boundary: this node takes the genesis header's fields directly from
// config rather than computing them, since the L2 contract genesis
// file (spec §6) is the authority for the pre-chain-start state.
func seedGenesis(ctx context.Context, a *actor.Actor, cfg *config.Config) error {
	header := &types.Header{
		ParentHash: common.Hash{},
		Number:     big.NewInt(0),
		Root:       cfg.Genesis.InitialStateRoot,
		TxHash:     types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		GasLimit:   30_000_000,
		BaseFee:    new(big.Int).SetUint64(cfg.Genesis.GenesisBaseFee),
		Coinbase:   cfg.Genesis.Treasury,
	}
	genesis := &types.ExtendedBlock{
		Block: &types.Block{Header: header},
	}
	return a.GenesisUpdate(ctx, genesis)
}
