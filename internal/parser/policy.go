package parser

import (
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
)

// DefaultLocal is the local resolver of every key without an override.
// A prop returns the stored value verbatim; a join materializes the stored
// value against the join's children. Ident keys read the entity they name.
func DefaultLocal(env Env, key query.Key, _ ir.Object) (ir.Value, error) {
	var (
		raw ir.Value
		ok  bool
	)
	if key.IsIdent() {
		v, found, err := env.Snapshot.Resolve(*key.Ident)
		if err != nil {
			return nil, NewMalformedIdentError(key.String(), key.String(), *key.Ident)
		}
		raw, ok = v, found
	} else {
		raw, ok = env.Snapshot.Get(key.Name)
	}
	if !ok {
		return nil, nil
	}
	if env.Node.Type != query.NodeJoin {
		return raw, nil
	}
	return Materialize(env.Snapshot, raw, env.Node.Children)
}

// DefaultRemote fails for every key without a registered remote policy.
func DefaultRemote(_ Env, key query.Key, _ ir.Object) (*query.Node, error) {
	return nil, NewUnimplementedRemoteError(key.String())
}

// DefaultMutation returns a no-op action.
func DefaultMutation(_ Env, _ ir.Object) Action {
	return Action{}
}

// OmitFields returns a local resolver yielding the whole stored mapping at
// the key, unfiltered by the query, minus the given fields.
func OmitFields(fields ...string) LocalFunc {
	return func(env Env, key query.Key, _ ir.Object) (ir.Value, error) {
		raw, ok := env.Snapshot.Get(key.Name)
		if !ok {
			return nil, nil
		}
		obj, isObj := raw.(ir.Object)
		if !isObj {
			return raw, nil
		}
		return obj.Without(fields...), nil
	}
}

// SuppressRemote never forwards the key.
func SuppressRemote() RemoteFunc {
	return func(Env, query.Key, ir.Object) (*query.Node, error) {
		return nil, nil
	}
}

// ForwardRemote forwards the key's node unchanged.
func ForwardRemote() RemoteFunc {
	return func(env Env, _ query.Key, _ ir.Object) (*query.Node, error) {
		n := env.Node
		return &n, nil
	}
}

// FilterChildren drops the children whose key names one of fields. When no
// child survives the key is not forwarded.
func FilterChildren(fields ...string) RemoteFunc {
	suppressed := make(map[string]bool, len(fields))
	for _, f := range fields {
		suppressed[f] = true
	}
	return func(env Env, _ query.Key, _ ir.Object) (*query.Node, error) {
		n := query.FilterChildren(env.Node, func(c query.Node) bool {
			return c.Key.IsIdent() || !suppressed[c.Key.Name]
		})
		if len(n.Children) == 0 {
			return nil, nil
		}
		return &n, nil
	}
}

// RerootChildren re-anchors each child at the ident stored under
// store[key][child]. The child takes the ident as key and dispatch key and
// is marked as a query root; a child with nothing stored is dropped. A
// stored value that is not a well-formed ident fails the pass with
// MALFORMED_IDENT. A child whose key is already an ident needs no lookup:
// it is forwarded unchanged and marked as a query root. When no child
// survives the key is not forwarded.
func RerootChildren() RemoteFunc {
	return func(env Env, key query.Key, _ ir.Object) (*query.Node, error) {
		n, err := query.MapChildren(env.Node, func(c query.Node) (query.Node, bool, error) {
			if c.Key.IsIdent() {
				c.QueryRoot = true
				return c, true, nil
			}
			path := []string{key.Name, c.Key.Name}
			raw, ok := env.Snapshot.GetIn(path...)
			if !ok {
				return c, false, nil
			}
			id, isIdent := raw.(ir.Ident)
			if !isIdent || !id.Valid() {
				return c, false, NewMalformedIdentError(key.String(), key.Name+"."+c.Key.Name, raw)
			}
			c.Key = query.IdentKey(id)
			c.DispatchKey = c.Key
			c.QueryRoot = true
			return c, true, nil
		})
		if err != nil {
			return nil, err
		}
		if len(n.Children) == 0 {
			return nil, nil
		}
		return &n, nil
	}
}
