package app

import (
	"fmt"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/parser"
)

// Register installs the application's key policies and mutation handlers
// into reg. Events of route changes go to sink; a nil sink drops them.
func Register(reg *parser.Registry, sink analytics.Sink) error {
	if sink == nil {
		sink = analytics.Multi()
	}

	policies := map[string]parser.Policy{
		KeyRoute:       {Remote: parser.SuppressRemote()},
		KeySubpage:     {Remote: parser.SuppressRemote()},
		KeyCurrentUser: {Remote: parser.FilterChildren(CurrentUserLocalFields...)},
		KeyRouteData:   {Remote: parser.RerootChildren()},
		KeyLegacyState: {
			Local:  parser.OmitFields(LegacyInputsField),
			Remote: parser.SuppressRemote(),
		},
	}
	for _, table := range EntityTables {
		policies[table] = parser.Policy{Remote: parser.ForwardRemote()}
	}
	for key, p := range policies {
		if err := reg.Register(key, p); err != nil {
			return fmt.Errorf("register %s: %w", key, err)
		}
	}

	mutations := map[string]parser.MutateFunc{
		MutationSetRouteData: SetRouteData(sink),
		MutationMergeRemote:  MergeRemote(),
	}
	for name, fn := range mutations {
		if err := reg.RegisterMutation(name, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

// NewRegistry returns a registry with the application's handlers installed.
func NewRegistry(sink analytics.Sink) (*parser.Registry, error) {
	reg := parser.NewRegistry()
	if err := Register(reg, sink); err != nil {
		return nil, err
	}
	return reg, nil
}
