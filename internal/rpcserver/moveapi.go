package rpcserver

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/moved-network/moved/internal/query"
	"github.com/moved-network/moved/internal/types"
)

// MoveAPI implements the "mv" namespace's Move-side read extensions
// (spec §6): mv_getModule, mv_getResource, mv_listModules,
// mv_listResources, registered on the same rpc.Server as "eth".
type MoveAPI struct {
	Query *query.Service
}

func (a *MoveAPI) GetModule(addr types.MoveAddress, name string, tag string) (hexutil.Bytes, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	id, err := types.ParseModuleID(addr, name)
	if err != nil {
		return nil, newRPCError(codeInvalidParams, err.Error())
	}
	code, err := a.Query.GetModule(id, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return hexutil.Bytes(code), nil
}

func (a *MoveAPI) GetResource(addr types.MoveAddress, tag string, height string) (hexutil.Bytes, error) {
	t, err := query.ParseTag(height)
	if err != nil {
		return nil, translateErr(err)
	}
	structTag, err := types.ParseStructTag(addr, tag)
	if err != nil {
		return nil, newRPCError(codeInvalidParams, err.Error())
	}
	val, err := a.Query.GetResource(addr, structTag, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return hexutil.Bytes(val), nil
}

func (a *MoveAPI) ListModules(addr types.MoveAddress, tag string, after *hexutil.Bytes, limit int) ([]hexutil.Bytes, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	names, err := a.Query.ListModules(addr, afterOf(after), limit, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return toBytesSlice(names), nil
}

func (a *MoveAPI) ListResources(addr types.MoveAddress, tag string, after *hexutil.Bytes, limit int) ([]hexutil.Bytes, error) {
	t, err := query.ParseTag(tag)
	if err != nil {
		return nil, translateErr(err)
	}
	keys, err := a.Query.ListResources(addr, afterOf(after), limit, t)
	if err != nil {
		return nil, translateErr(err)
	}
	return toBytesSlice(keys), nil
}

func afterOf(b *hexutil.Bytes) []byte {
	if b == nil {
		return nil
	}
	return []byte(*b)
}

func toBytesSlice(items [][]byte) []hexutil.Bytes {
	out := make([]hexutil.Bytes, len(items))
	for i, it := range items {
		out[i] = hexutil.Bytes(it)
	}
	return out
}
