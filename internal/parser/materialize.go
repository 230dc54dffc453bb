package parser

import (
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
)

// Materialize walks v against the query shape given by children and
// returns a plain tree.
//
//   - Ident: resolved to the entity it references, then materialized.
//     An entity absent from the store yields nil (absent).
//   - Array: materialized element-wise in order; absent elements are
//     skipped, not null-padded.
//   - Object: filtered to the children's keys; props are copied verbatim,
//     joins recurse, ident-keyed joins resolve against the store root.
//   - Anything else passes through unchanged.
//
// With no children an Object is returned unfiltered. A nil v yields nil.
// An ident that leads back to itself without descending into a join, as
// in t["1"] = [t 1] or a chain through arrays, fails with MALFORMED_IDENT.
func Materialize(snap state.Snapshot, v ir.Value, children []query.Node) (ir.Value, error) {
	m := materializer{snap: snap}
	return m.value(v, children, nil)
}

type materializer struct {
	snap state.Snapshot
}

// value materializes v against children. expanding holds the idents being
// resolved at this query depth; it is reset whenever a join is entered.
func (m materializer) value(v ir.Value, children []query.Node, expanding []ir.Ident) (ir.Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case ir.Ident:
		for _, seen := range expanding {
			if ir.Equal(seen, val) {
				return nil, NewIdentCycleError(val.Table, val.String())
			}
		}
		entity, ok, err := m.resolve(val)
		if err != nil || !ok {
			return nil, err
		}
		next := append(expanding[:len(expanding):len(expanding)], val)
		return m.value(entity, children, next)
	case ir.Array:
		out := make(ir.Array, 0, len(val))
		for _, elem := range val {
			item, err := m.value(elem, children, expanding)
			if err != nil {
				return nil, err
			}
			if item != nil {
				out = append(out, item)
			}
		}
		return out, nil
	case ir.Object:
		if len(children) == 0 {
			return val, nil
		}
		return m.object(val, children)
	default:
		return v, nil
	}
}

func (m materializer) object(obj ir.Object, children []query.Node) (ir.Value, error) {
	out := make(ir.Object, len(children))
	for _, c := range children {
		name := c.Key.String()
		switch {
		case c.Key.IsIdent():
			entity, ok, err := m.resolve(*c.Key.Ident)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			sub, err := m.value(entity, c.Children, nil)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				out[name] = sub
			}
		case c.Type == query.NodeJoin:
			raw, ok := obj[name]
			if !ok {
				continue
			}
			sub, err := m.value(raw, c.Children, nil)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				out[name] = sub
			}
		default:
			if raw, ok := obj[name]; ok {
				out[name] = raw
			}
		}
	}
	return out, nil
}

func (m materializer) resolve(id ir.Ident) (ir.Value, bool, error) {
	entity, ok, err := m.snap.Resolve(id)
	if err != nil {
		return nil, false, NewMalformedIdentError(id.Table, id.String(), id)
	}
	return entity, ok, nil
}
