package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/moved-network/moved/internal/types"
)

// ResourceWrite upserts (Value != nil) or deletes (Value == nil) a Move
// resource.
type ResourceWrite struct {
	Address types.MoveAddress
	Tag     types.StructTag
	Value   []byte
}

// ModuleWrite upserts (Code != nil) or deletes (Code == nil) Move
// bytecode bound to a module id.
type ModuleWrite struct {
	ID   types.ModuleID
	Code []byte
}

// TableWrite upserts (Value != nil) or deletes (Value == nil) a Move
// table entry.
type TableWrite struct {
	Handle [32]byte
	Key    []byte
	Value  []byte
}

// AccountDelta adjusts an EVM account summary's nonce/balance/code hash.
// Nil pointers leave the corresponding field unchanged.
type AccountDelta struct {
	Address  common.Address
	Nonce    *uint64
	Balance  *uint256.Int
	CodeHash *common.Hash
}

// StorageWrite upserts (Value != zero) or deletes (Value == zero) an
// EVM storage slot (spec §4.1: "zero ⇒ delete").
type StorageWrite struct {
	Address common.Address
	Slot    common.Hash
	Value   common.Hash
}

// CodeWrite stores contract bytecode content-addressed by its
// Keccak256 hash, the same scheme the node's trie nodes already use,
// so it shares the NodeStore rather than needing a dedicated store.
type CodeWrite struct {
	Hash common.Hash
	Code []byte
}

// Changes is the atomic batch C1.apply consumes: every tree-key kind
// plus per-EVM-account storage updates that a single transaction or
// block produced.
type Changes struct {
	Resources []ResourceWrite
	Modules   []ModuleWrite
	Tables    []TableWrite
	Accounts  []AccountDelta
	Storage   []StorageWrite
	Code      []CodeWrite
}

// IsEmpty reports whether the batch has no writes at all.
func (c *Changes) IsEmpty() bool {
	return len(c.Resources) == 0 && len(c.Modules) == 0 && len(c.Tables) == 0 &&
		len(c.Accounts) == 0 && len(c.Storage) == 0 && len(c.Code) == 0
}

// StateTrie is C1, the authenticated state trie: a single tree spanning
// Move resources, Move modules, Move table entries and EVM account
// summaries, with per-account storage subtries embedded via their root
// hash (spec §4.1).
type StateTrie struct {
	nodes NodeStore
	root  common.Hash
}

// NewStateTrie opens an empty C1 (zero root); SetRoot repoints it at a
// committed root.
func NewStateTrie(nodes NodeStore) *StateTrie {
	return &StateTrie{nodes: nodes}
}

// StateRoot returns the current root.
func (s *StateTrie) StateRoot() common.Hash { return s.root }

// SetRoot repoints the trie at an already-committed root (used on boot).
func (s *StateTrie) SetRoot(root common.Hash) { s.root = root }

// Resolver is a read-only view over C1 at a fixed root.
type Resolver struct {
	trie *Trie
}

// Resolver returns a read-only view at root (zero root = empty state).
func (s *StateTrie) Resolver(root common.Hash) *Resolver {
	return &Resolver{trie: New(s.nodes, root)}
}

func (r *Resolver) ResourceAt(addr types.MoveAddress, tag types.StructTag) ([]byte, error) {
	return r.trie.Get(resourceTreeKey(addr, tag).Bytes())
}

func (r *Resolver) ModuleAt(id types.ModuleID) ([]byte, error) {
	return r.trie.Get(moduleTreeKey(id).Bytes())
}

func (r *Resolver) TableEntryAt(handle [32]byte, key []byte) ([]byte, error) {
	return r.trie.Get(tableTreeKey(handle, key).Bytes())
}

func (r *Resolver) AccountAt(addr common.Address) (*AccountSummary, error) {
	raw, err := r.trie.Get(accountTreeKey(addr).Bytes())
	if err != nil || raw == nil {
		return nil, err
	}
	return DecodeAccountSummary(raw)
}

// CodeAt returns contract bytecode by its Keccak256 hash, shared via
// the same content-addressed NodeStore as trie nodes.
func (r *Resolver) CodeAt(hash common.Hash) ([]byte, error) {
	code, ok, err := r.trie.store.Get(hash)
	if err != nil || !ok {
		return nil, err
	}
	return code, nil
}

func (r *Resolver) StorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	acct, err := r.AccountAt(addr)
	if err != nil || acct == nil {
		return common.Hash{}, err
	}
	storage := New(r.trie.store, acct.StorageRoot)
	raw, err := storage.Get(storageSlotKey(slot).Bytes())
	if err != nil || raw == nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

// ListResources enumerates struct tags published under addr, using the
// skip-list-in-trie (spec §4.1), returning canonical struct-tag strings.
func (r *Resolver) ListResources(addr types.MoveAddress, after []byte, limit int) ([][]byte, error) {
	return skipListEnumerate(r.trie, addr[:], SkipListStructTag, after, limit)
}

// ListModules enumerates module names published under addr.
func (r *Resolver) ListModules(addr types.MoveAddress, after []byte, limit int) ([][]byte, error) {
	return skipListEnumerate(r.trie, addr[:], SkipListIdentifier, after, limit)
}

// Apply atomically applies a batch of tree updates and returns the new
// root. It only fails on backing-store I/O (spec §4.1).
func (s *StateTrie) Apply(c *Changes) (common.Hash, error) {
	t := New(s.nodes, s.root)

	for _, cw := range c.Code {
		if err := s.nodes.Put(cw.Hash, cw.Code); err != nil {
			return common.Hash{}, err
		}
	}

	for _, rw := range c.Resources {
		key := resourceTreeKey(rw.Address, rw.Tag).Bytes()
		sortKey := []byte(rw.Tag.CanonicalString())
		existing, err := t.Get(key)
		if err != nil {
			return common.Hash{}, err
		}
		if rw.Value == nil {
			if existing != nil {
				if err := t.Delete(key); err != nil {
					return common.Hash{}, err
				}
				if err := skipListDelete(t, rw.Address[:], SkipListStructTag, sortKey); err != nil {
					return common.Hash{}, err
				}
			}
			continue
		}
		if err := t.Put(key, rw.Value); err != nil {
			return common.Hash{}, err
		}
		if existing == nil {
			if err := skipListInsert(t, rw.Address[:], SkipListStructTag, sortKey); err != nil {
				return common.Hash{}, err
			}
		}
	}

	for _, mw := range c.Modules {
		key := moduleTreeKey(mw.ID).Bytes()
		sortKey := []byte(mw.ID.Name)
		existing, err := t.Get(key)
		if err != nil {
			return common.Hash{}, err
		}
		if mw.Code == nil {
			if existing != nil {
				if err := t.Delete(key); err != nil {
					return common.Hash{}, err
				}
				if err := skipListDelete(t, mw.ID.Address[:], SkipListIdentifier, sortKey); err != nil {
					return common.Hash{}, err
				}
			}
			continue
		}
		if err := t.Put(key, mw.Code); err != nil {
			return common.Hash{}, err
		}
		if existing == nil {
			if err := skipListInsert(t, mw.ID.Address[:], SkipListIdentifier, sortKey); err != nil {
				return common.Hash{}, err
			}
		}
	}

	for _, tw := range c.Tables {
		key := tableTreeKey(tw.Handle, tw.Key).Bytes()
		if tw.Value == nil {
			if err := t.Delete(key); err != nil {
				return common.Hash{}, err
			}
			continue
		}
		if err := t.Put(key, tw.Value); err != nil {
			return common.Hash{}, err
		}
	}

	// Storage first, then the account summary that embeds its root —
	// avoids ever publishing an account summary pointing at a storage
	// root that was never written (spec §9).
	byAccount := map[common.Address][]StorageWrite{}
	order := []common.Address{}
	for _, sw := range c.Storage {
		if _, ok := byAccount[sw.Address]; !ok {
			order = append(order, sw.Address)
		}
		byAccount[sw.Address] = append(byAccount[sw.Address], sw)
	}
	accountKey := func(addr common.Address) []byte { return accountTreeKey(addr).Bytes() }
	loadAccount := func(addr common.Address) (*AccountSummary, error) {
		raw, err := t.Get(accountKey(addr))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return EmptyAccountSummary(), nil
		}
		return DecodeAccountSummary(raw)
	}

	dirtyAccounts := map[common.Address]*AccountSummary{}
	for _, addr := range order {
		acct, err := loadAccount(addr)
		if err != nil {
			return common.Hash{}, err
		}
		storage := New(t.store, acct.StorageRoot)
		for _, sw := range byAccount[addr] {
			slotKey := storageSlotKey(sw.Slot).Bytes()
			if sw.Value == (common.Hash{}) {
				if err := storage.Delete(slotKey); err != nil {
					return common.Hash{}, err
				}
				continue
			}
			if err := storage.Put(slotKey, sw.Value.Bytes()); err != nil {
				return common.Hash{}, err
			}
		}
		acct.StorageRoot = storage.Hash()
		dirtyAccounts[addr] = acct
	}

	for _, ad := range c.Accounts {
		acct, ok := dirtyAccounts[ad.Address]
		if !ok {
			var err error
			acct, err = loadAccount(ad.Address)
			if err != nil {
				return common.Hash{}, err
			}
		}
		if ad.Nonce != nil {
			acct.Nonce = *ad.Nonce
		}
		if ad.Balance != nil {
			acct.Balance = ad.Balance.Clone()
		}
		if ad.CodeHash != nil {
			acct.CodeHash = *ad.CodeHash
		}
		dirtyAccounts[ad.Address] = acct
	}

	for addr, acct := range dirtyAccounts {
		if err := t.Put(accountKey(addr), acct.Encode()); err != nil {
			return common.Hash{}, err
		}
	}

	s.root = t.Hash()
	return s.root, nil
}

// Proof returns a Merkle proof of an EVM account plus proofs of the
// requested storage slots. Only L2 predeploy addresses may be proved
// (spec §4.1).
type AccountProof struct {
	Address      common.Address
	AccountProof [][]byte
	Account      *AccountSummary
	StorageProofs map[common.Hash][][]byte
	StorageValues map[common.Hash]common.Hash
}

func (s *StateTrie) Proof(addr common.Address, slots []common.Hash, root common.Hash) (*AccountProof, error) {
	if !types.IsL2Predeploy(addr) {
		return nil, ErrOutOfRange
	}
	t := New(s.nodes, root)
	key := accountTreeKey(addr).Bytes()
	accProof, err := t.Prove(key)
	if err != nil {
		return nil, err
	}
	raw, err := t.Get(key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrAccountNotFound
	}
	acct, err := DecodeAccountSummary(raw)
	if err != nil {
		return nil, err
	}

	out := &AccountProof{
		Address:       addr,
		AccountProof:  accProof,
		Account:       acct,
		StorageProofs: map[common.Hash][][]byte{},
		StorageValues: map[common.Hash]common.Hash{},
	}
	storage := New(s.nodes, acct.StorageRoot)
	for _, slot := range slots {
		slotKey := storageSlotKey(slot).Bytes()
		p, err := storage.Prove(slotKey)
		if err != nil {
			return nil, err
		}
		out.StorageProofs[slot] = p
		v, err := storage.Get(slotKey)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out.StorageValues[slot] = common.BytesToHash(v)
		}
	}
	return out, nil
}
