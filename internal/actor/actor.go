// Package actor implements C9: the single-writer command actor owning
// the mutable Application (state trie, mempool, block/root/hash
// history), serializing every mutation onto one bounded channel so
// readers never contend with the writer for a lock, the same
// bounded-channel-plus-select shape the teacher reaches for in its
// mempool eviction loop.
package actor

import (
	"context"
	"errors"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/moved-network/moved/internal/block"
	"github.com/moved-network/moved/internal/blockhash"
	"github.com/moved-network/moved/internal/mempool"
	"github.com/moved-network/moved/internal/payload"
	"github.com/moved-network/moved/internal/stateroot"
	"github.com/moved-network/moved/internal/store"
	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
)

// ErrActorClosed is returned by Send when the actor has already shut
// down (its command channel was closed and drained).
var ErrActorClosed = errors.New("actor: closed")

// DefaultQueueCapacity matches the "~1000" default named in spec §4.9.
const DefaultQueueCapacity = 1000

// command is the sum type delivered on the command channel. Exactly
// one of the typed payloads is set; payloads whose sender waits for a
// result carry their own done channel.
type command struct {
	startBlockBuild *cmdStartBlockBuild
	addTransaction  *cmdAddTransaction
	updateHead      *cmdUpdateHead
	genesisUpdate   *cmdGenesisUpdate
}

type cmdStartBlockBuild struct {
	attrs *types.PayloadAttributes
	id    types.PayloadID
}

type cmdAddTransaction struct {
	tx   *types.Transaction
	done chan error
}

type cmdUpdateHead struct {
	headHash common.Hash
}

type cmdGenesisUpdate struct {
	block *types.ExtendedBlock
	done  chan error
}

// Application is the mutable state C9 owns exclusively: the shared
// trie, the block builder driving it, and the auxiliary indices the
// builder updates on every commit.
type Application struct {
	Logger   log.Logger
	State    *trie.StateTrie
	Builder  *block.Builder
	Mempool  *mempool.Pool
	Blocks   store.BlockStore
	Txs      store.TransactionStore
	Receipts store.ReceiptStore
	Roots    *stateroot.Index
	Hashes   *blockhash.Ring
	Registry *payload.Registry

	head common.Hash
}

// Actor runs Application on a single goroutine, fed by a bounded
// command channel.
type Actor struct {
	app     *Application
	cmds    chan command
	closeCh chan struct{}
}

// New starts the actor's command loop in a background goroutine and
// returns the handle used to send it commands. Capacity <= 0 uses
// DefaultQueueCapacity.
func New(app *Application, capacity int) *Actor {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	a := &Actor{app: app, cmds: make(chan command, capacity), closeCh: make(chan struct{})}
	go a.run()
	return a
}

func (a *Actor) run() {
	defer close(a.closeCh)
	for c := range a.cmds {
		switch {
		case c.startBlockBuild != nil:
			a.handleStartBlockBuild(c.startBlockBuild)
		case c.addTransaction != nil:
			a.handleAddTransaction(c.addTransaction)
		case c.updateHead != nil:
			a.handleUpdateHead(c.updateHead)
		case c.genesisUpdate != nil:
			a.handleGenesisUpdate(c.genesisUpdate)
		}
	}
}

func (a *Actor) handleStartBlockBuild(c *cmdStartBlockBuild) {
	if _, _, found, _ := a.app.Registry.TryGet(c.id); found {
		return
	}
	a.app.Registry.StartID(c.id)
	eb, err := a.app.Builder.Build(c.attrs, c.id)
	if err != nil {
		a.app.Logger.Error("block build failed", "payload_id", c.id.String(), "err", err)
		a.app.Registry.FinishID(c.id, nil, err)
		return
	}
	a.app.head = eb.Hash()
}

func (a *Actor) handleAddTransaction(c *cmdAddTransaction) {
	err := a.app.Mempool.Add(c.tx)
	if c.done != nil {
		c.done <- err
	}
}

// handleUpdateHead is informational per spec §4.9: the committed head
// is always the latest block the builder produced, so this only
// updates the advisory field the forkchoice_updated response may
// compare against.
func (a *Actor) handleUpdateHead(c *cmdUpdateHead) {
	a.app.head = c.headHash
}

func (a *Actor) handleGenesisUpdate(c *cmdGenesisUpdate) {
	var err error
	if _, ok, _ := a.app.Blocks.Latest(); !ok {
		err = a.app.Blocks.PutBlock(c.block)
		if err == nil {
			err = a.app.Roots.Record(c.block.Number(), c.block.Header.Root)
			a.app.Hashes.Push(c.block.Number(), c.block.Hash())
			a.app.head = c.block.Hash()
		}
	}
	if c.done != nil {
		c.done <- err
	}
}

// StartBlockBuild enqueues a block build; the result is observed later
// through the payload registry (C8), not through this call.
func (a *Actor) StartBlockBuild(ctx context.Context, attrs *types.PayloadAttributes, id types.PayloadID) error {
	return a.send(ctx, command{startBlockBuild: &cmdStartBlockBuild{attrs: attrs, id: id}})
}

// AddTransaction pushes tx onto the mempool and waits for the
// writer's Add result (duplicate/full), fire-and-forget with respect
// to execution per spec §5.
func (a *Actor) AddTransaction(ctx context.Context, tx *types.Transaction) error {
	done := make(chan error, 1)
	if err := a.send(ctx, command{addTransaction: &cmdAddTransaction{tx: tx, done: done}}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateHead records the forkchoice head hash; fire-and-forget.
func (a *Actor) UpdateHead(ctx context.Context, headHash common.Hash) error {
	return a.send(ctx, command{updateHead: &cmdUpdateHead{headHash: headHash}})
}

// GenesisUpdate inserts the genesis block if storage is empty,
// returning once the writer has applied (or skipped) it.
func (a *Actor) GenesisUpdate(ctx context.Context, genesis *types.ExtendedBlock) error {
	done := make(chan error, 1)
	if err := a.send(ctx, command{genesisUpdate: &cmdGenesisUpdate{block: genesis, done: done}}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) send(ctx context.Context, c command) error {
	select {
	case a.cmds <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the command channel and waits for the writer to
// drain remaining commands and exit, per spec §5's shutdown sequence.
func (a *Actor) Shutdown() {
	close(a.cmds)
	<-a.closeCh
}
