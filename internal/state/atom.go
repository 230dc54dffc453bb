package state

import "sync/atomic"

// Atom is the single shared, swappable reference to the current Snapshot.
//
// Thread-safety: all methods are safe for concurrent use. Swap retries its
// function until the compare-and-swap succeeds, so the function must be
// free of side effects.
type Atom struct {
	cur     atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewAtom creates an atom holding initial.
func NewAtom(initial Snapshot) *Atom {
	a := &Atom{}
	a.cur.Store(&initial)
	return a
}

// Deref returns the current snapshot.
func (a *Atom) Deref() Snapshot {
	return *a.cur.Load()
}

// Version counts successful transitions since the atom was created.
func (a *Atom) Version() int64 {
	return a.version.Load()
}

// Swap replaces the current snapshot with fn(current). If fn returns an
// error the store is left unchanged and the error is returned.
func (a *Atom) Swap(fn func(Snapshot) (Snapshot, error)) (Snapshot, error) {
	for {
		old := a.cur.Load()
		next, err := fn(*old)
		if err != nil {
			return *old, err
		}
		if a.cur.CompareAndSwap(old, &next) {
			a.version.Add(1)
			return next, nil
		}
	}
}

// Reset replaces the current snapshot unconditionally and returns the
// previous one.
func (a *Atom) Reset(s Snapshot) Snapshot {
	old := a.cur.Swap(&s)
	a.version.Add(1)
	return *old
}
