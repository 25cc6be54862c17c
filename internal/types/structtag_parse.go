package types

import (
	"fmt"
	"strings"
)

// ParseStructTag parses the "module::Name" or "module::Name<T0,T1>"
// form the mv_getResource/mv_listResources RPC methods accept (spec
// §6), binding it to addr.
func ParseStructTag(addr MoveAddress, tag string) (StructTag, error) {
	typeArgs, body := splitTypeArgs(tag)
	parts := strings.SplitN(body, "::", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return StructTag{}, fmt.Errorf("types: malformed struct tag %q", tag)
	}
	return StructTag{Address: addr, Module: parts[0], Name: parts[1], TypeArgs: typeArgs}, nil
}

// ParseModuleID parses a bare "module_name" string, binding it to addr.
func ParseModuleID(addr MoveAddress, name string) (ModuleID, error) {
	if name == "" {
		return ModuleID{}, fmt.Errorf("types: empty module name")
	}
	return ModuleID{Address: addr, Name: name}, nil
}

func splitTypeArgs(tag string) ([]string, string) {
	open := strings.IndexByte(tag, '<')
	if open < 0 || !strings.HasSuffix(tag, ">") {
		return nil, tag
	}
	body := tag[:open]
	inner := tag[open+1 : len(tag)-1]
	if inner == "" {
		return nil, body
	}
	return strings.Split(inner, ","), body
}
