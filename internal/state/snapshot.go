package state

import (
	"fmt"

	"github.com/roach88/viewq/internal/ir"
)

// Snapshot is one immutable version of the store.
//
// Every modifier returns a new Snapshot sharing untouched subtrees with the
// receiver. Values returned by lookups must be treated as read-only.
type Snapshot struct {
	root ir.Object
}

// NewSnapshot wraps data as a snapshot. The caller must not modify data
// afterwards.
func NewSnapshot(data ir.Object) Snapshot {
	if data == nil {
		data = ir.Object{}
	}
	return Snapshot{root: data}
}

// Empty returns a snapshot with no keys.
func Empty() Snapshot {
	return NewSnapshot(nil)
}

// Data returns the snapshot's top-level mapping. Read-only.
func (s Snapshot) Data() ir.Object {
	if s.root == nil {
		return ir.Object{}
	}
	return s.root
}

// Get returns the value stored at a top-level key.
func (s Snapshot) Get(key string) (ir.Value, bool) {
	v, ok := s.root[key]
	return v, ok
}

// GetIn follows path through nested objects. It reports false when any
// step is absent or not an object.
func (s Snapshot) GetIn(path ...string) (ir.Value, bool) {
	var cur ir.Value = s.root
	for _, k := range path {
		obj, ok := cur.(ir.Object)
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Resolve returns the entity an ident references: s[table][ident.Key()].
// An absent table or entity reports false. A malformed ident is an error.
func (s Snapshot) Resolve(id ir.Ident) (ir.Value, bool, error) {
	if !id.Valid() {
		return nil, false, fmt.Errorf("resolve %s: malformed ident", id)
	}
	key, err := id.Key()
	if err != nil {
		return nil, false, fmt.Errorf("resolve %s: %w", id, err)
	}
	entity, ok := s.GetIn(id.Table, key)
	return entity, ok, nil
}

// Assoc returns a snapshot with key set to v.
func (s Snapshot) Assoc(key string, v ir.Value) Snapshot {
	return Snapshot{root: s.Data().With(key, v)}
}

// AssocIn returns a snapshot with the value at path set to v, creating
// intermediate objects as needed. A non-object on the path is replaced.
func (s Snapshot) AssocIn(path []string, v ir.Value) Snapshot {
	if len(path) == 0 {
		return s
	}
	return Snapshot{root: assocIn(s.Data(), path, v)}
}

func assocIn(obj ir.Object, path []string, v ir.Value) ir.Object {
	if len(path) == 1 {
		return obj.With(path[0], v)
	}
	child, _ := obj[path[0]].(ir.Object)
	return obj.With(path[0], assocIn(child, path[1:], v))
}

// Dissoc returns a snapshot without the given top-level keys.
func (s Snapshot) Dissoc(keys ...string) Snapshot {
	return Snapshot{root: s.Data().Without(keys...)}
}

// DissocIn returns a snapshot with the given keys removed from the object
// at path. If path does not lead to an object, s is returned unchanged.
func (s Snapshot) DissocIn(path []string, keys ...string) Snapshot {
	if len(path) == 0 {
		return s.Dissoc(keys...)
	}
	v, ok := s.GetIn(path...)
	if !ok {
		return s
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return s
	}
	return s.AssocIn(path, obj.Without(keys...))
}

// Merge returns a snapshot with every top-level key of data set.
func (s Snapshot) Merge(data ir.Object) Snapshot {
	out := s
	for _, k := range data.SortedKeys() {
		out = out.Assoc(k, data[k])
	}
	return out
}

// Hash returns the snapshot's content id.
func (s Snapshot) Hash() (string, error) {
	return ir.SnapshotHash(s.Data())
}

// Equal reports whether two snapshots hold the same data.
func (s Snapshot) Equal(o Snapshot) bool {
	return ir.Equal(s.Data(), o.Data())
}
