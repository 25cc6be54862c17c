package query

import (
	"github.com/moved-network/moved/internal/types"
)

// GetModule returns a deployed Move module's bytecode at tag, per the
// mv_getModule RPC extension (spec §6).
func (s *Service) GetModule(id types.ModuleID, tag Tag) ([]byte, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	return s.Reader.Resolver(root).ModuleAt(id)
}

// GetResource returns a Move resource's BCS-encoded value at tag, per
// the mv_getResource RPC extension.
func (s *Service) GetResource(addr types.MoveAddress, structTag types.StructTag, tag Tag) ([]byte, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	return s.Reader.Resolver(root).ResourceAt(addr, structTag)
}

// ListModules enumerates module names published under addr, per
// mv_listModules. after/limit page the underlying skip-list ordering.
func (s *Service) ListModules(addr types.MoveAddress, after []byte, limit int, tag Tag) ([][]byte, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	return s.Reader.Resolver(root).ListModules(addr, after, limit)
}

// ListResources enumerates resource keys published under addr, per
// mv_listResources.
func (s *Service) ListResources(addr types.MoveAddress, after []byte, limit int, tag Tag) ([][]byte, error) {
	_, root, err := s.resolveRoot(tag)
	if err != nil {
		return nil, err
	}
	return s.Reader.Resolver(root).ListResources(addr, after, limit)
}
