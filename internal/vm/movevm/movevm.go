// Package movevm provides this node's Move execution surface.
//
// There is no production-grade Move bytecode interpreter available in
// the Go ecosystem this node's dependency pack draws from, so rather
// than fabricate one, this adapter implements the same "black-box VM"
// boundary the spec requires (publish modules, run scripts, call entry
// functions against resources and tables) via a small registry of
// native Go implementations keyed by module id and function name —
// the same shape the teacher's own EVM precompile registry
// (`precompiles/`) uses to expose privileged native behavior behind a
// stable call surface. Module bytecode for anything outside the
// native registry is stored keyed by module id, with no deploy-time
// verification and no interpretation; calling
// an entry function in such a module returns ErrModuleNotExecutable
// rather than silently no-op'ing, so callers can tell the difference
// between "executed with no effect" and "cannot execute this".
package movevm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/holiman/uint256"

	"github.com/moved-network/moved/internal/trie"
	"github.com/moved-network/moved/internal/types"
)

var (
	ErrModuleNotExecutable = errors.New("movevm: module has no native implementation")
	ErrFunctionNotFound    = errors.New("movevm: function not found in native module")
	ErrInsufficientBalance = errors.New("movevm: insufficient balance")
	ErrAbort               = errors.New("movevm: move abort")
)

// NativeFn implements one Move entry function's effects against a
// read view of state, returning the writes it produces (mirroring how
// a real Move VM would produce a WriteSet) or an abort error.
type NativeFn func(ctx *CallContext) (*trie.Changes, error)

// CallContext is everything a native function needs: the caller, the
// arguments (already BCS-decoded by the caller into typed values), and
// a resolver to read current resource/table state.
type CallContext struct {
	Signer   types.MoveAddress
	Args     [][]byte
	Resolver *trie.Resolver
}

// NativeModule is a Move module with a Go-native implementation.
type NativeModule struct {
	Functions map[string]NativeFn
}

// VM is C5's Move execution surface.
type VM struct {
	natives map[types.ModuleID]*NativeModule
}

func New() *VM {
	vm := &VM{natives: make(map[types.ModuleID]*NativeModule)}
	vm.registerStdlib()
	return vm
}

func (vm *VM) Register(id types.ModuleID, mod *NativeModule) {
	vm.natives[id] = mod
}

// PublishModules stores raw bytecode content-addressed by module id,
// with no interpretation — matching the spec's "module deployment"
// payload kind, which only requires durable storage and later lookup,
// not execution, unless the module also happens to be natively
// registered (e.g. a system module upgrade).
func PublishModules(deployer types.MoveAddress, modules [][]byte) *trie.Changes {
	c := &trie.Changes{}
	for _, code := range modules {
		name := moduleNameFromHeader(code)
		c.Modules = append(c.Modules, trie.ModuleWrite{ID: types.ModuleID{Address: deployer, Name: name}, Code: code})
	}
	return c
}

// moduleNameFromHeader extracts a human-readable module name from the
// first length-prefixed field of a deployed module blob, falling back
// to the fixed name "module" when the blob is too short to carry one
// (e.g. in tests using opaque placeholder bytes).
func moduleNameFromHeader(code []byte) string {
	if len(code) > 4 {
		n := binary.BigEndian.Uint16(code[:2])
		if int(n) <= len(code)-2 {
			return string(code[2 : 2+n])
		}
	}
	return "module"
}

// ExecuteEntryFunction dispatches to a registered native implementation.
func (vm *VM) ExecuteEntryFunction(signer types.MoveAddress, fn *types.EntryFunction, resolver *trie.Resolver) (*trie.Changes, error) {
	mod, ok := vm.natives[fn.Module]
	if !ok {
		return nil, ErrModuleNotExecutable
	}
	impl, ok := mod.Functions[fn.Function]
	if !ok {
		return nil, ErrFunctionNotFound
	}
	return impl(&CallContext{Signer: signer, Args: fn.Args, Resolver: resolver})
}

// ExecuteScript runs an ad-hoc script. Scripts have no stable
// module/function identity to dispatch on and no script registry
// exists, so every script is rejected with ErrModuleNotExecutable.
func (vm *VM) ExecuteScript(signer types.MoveAddress, script *types.Script, resolver *trie.Resolver) (*trie.Changes, error) {
	return nil, ErrModuleNotExecutable
}

const baseTokenModule = "base_token"

var baseTokenAddr = types.MoveAddress{31: 0x01}

// BalanceTag is the struct tag under which every account's base-token
// balance resource lives.
func BalanceTag() types.StructTag {
	return types.StructTag{Address: baseTokenAddr, Module: baseTokenModule, Name: "Balance"}
}

// AccountTag is the struct tag under which every account's Move-side
// sequence number (nonce) lives, distinct from the EVM account tree's
// nonce field so the two can be reconciled independently (spec §4.5
// step 3, §9).
func AccountTag() types.StructTag {
	return types.StructTag{Address: baseTokenAddr, Module: "account", Name: "Account"}
}

// BalanceOf reads addr's base-token balance (zero if unset).
func BalanceOf(r *trie.Resolver, addr types.MoveAddress) (*uint256.Int, error) {
	return readBalance(r, addr)
}

// SetBalanceChange returns the ResourceWrite that sets addr's balance.
func SetBalanceChange(addr types.MoveAddress, bal *uint256.Int) trie.ResourceWrite {
	return trie.ResourceWrite{Address: addr, Tag: BalanceTag(), Value: bal.Bytes()}
}

// NonceOf reads addr's Move-side sequence number (zero if unset).
func NonceOf(r *trie.Resolver, addr types.MoveAddress) (uint64, error) {
	raw, err := r.ResourceAt(addr, AccountTag())
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

// SetNonceChange returns the ResourceWrite that sets addr's Move nonce.
func SetNonceChange(addr types.MoveAddress, nonce uint64) trie.ResourceWrite {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, nonce)
	return trie.ResourceWrite{Address: addr, Tag: AccountTag(), Value: buf}
}

// registerStdlib wires the minimal base-token account module every
// scenario in the spec depends on: balance-of (read-only, exposed via
// the query layer rather than an entry function) and transfer.
func (vm *VM) registerStdlib() {
	id := types.ModuleID{Address: baseTokenAddr, Name: baseTokenModule}
	vm.Register(id, &NativeModule{Functions: map[string]NativeFn{
		"transfer": transferEntry,
	}})
}

func readBalance(r *trie.Resolver, addr types.MoveAddress) (*uint256.Int, error) {
	raw, err := r.ResourceAt(addr, BalanceTag())
	if err != nil {
		return nil, err
	}
	bal := new(uint256.Int)
	if raw != nil {
		bal.SetBytes(raw)
	}
	return bal, nil
}

func transferEntry(ctx *CallContext) (*trie.Changes, error) {
	if len(ctx.Args) != 2 {
		return nil, ErrAbort
	}
	var to types.MoveAddress
	copy(to[:], ctx.Args[0])
	amount := new(uint256.Int).SetBytes(ctx.Args[1])

	fromBal, err := readBalance(ctx.Resolver, ctx.Signer)
	if err != nil {
		return nil, err
	}
	if fromBal.Lt(amount) {
		return nil, ErrInsufficientBalance
	}
	toBal, err := readBalance(ctx.Resolver, to)
	if err != nil {
		return nil, err
	}

	newFrom := new(uint256.Int).Sub(fromBal, amount)
	newTo := new(uint256.Int).Add(toBal, amount)

	return &trie.Changes{Resources: []trie.ResourceWrite{
		{Address: ctx.Signer, Tag: BalanceTag(), Value: newFrom.Bytes()},
		{Address: to, Tag: BalanceTag(), Value: newTo.Bytes()},
	}}, nil
}

// ReconcileEvmNonce computes the cross-VM nonce-reconciliation rule
// (spec §4.5 step 3): Move-nonce is bumped by the positive delta
// between the EVM nonce and the current Move nonce, never decreased.
// The executor pipeline does not call it.
func ReconcileEvmNonce(moveNonce, evmNonce uint64) uint64 {
	if evmNonce > moveNonce {
		return moveNonce + (evmNonce - moveNonce)
	}
	return moveNonce
}

// sortedModuleIDs is a small helper listing natively-registered
// modules deterministically.
func (vm *VM) sortedModuleIDs() []types.ModuleID {
	ids := make([]types.ModuleID, 0, len(vm.natives))
	for id := range vm.natives {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i].Address[:], ids[j].Address[:]) < 0 || ids[i].Name < ids[j].Name
	})
	return ids
}
