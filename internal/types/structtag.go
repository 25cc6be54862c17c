package types

import "fmt"

// StructTag identifies a Move struct type: the deploying address, the
// module name, the struct name, and any type arguments. It is the
// tree-key source for Move-resource entries and the preimage of the
// topic0 an EVM log gets when a Move event is translated (spec §4.5).
type StructTag struct {
	Address  MoveAddress
	Module   string
	Name     string
	TypeArgs []string
}

// CanonicalString renders "addr::module::Name<T0,T1>", the form hashed
// to produce an Ethereum log topic0 for translated Move events.
func (t StructTag) CanonicalString() string {
	s := fmt.Sprintf("%x::%s::%s", t.Address[:], t.Module, t.Name)
	if len(t.TypeArgs) == 0 {
		return s
	}
	out := s + "<"
	for i, a := range t.TypeArgs {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out + ">"
}

// ModuleID identifies Move bytecode bound to (deployer, module name).
type ModuleID struct {
	Address MoveAddress
	Name    string
}
