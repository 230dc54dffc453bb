package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewq/internal/ir"
)

func TestAtomDerefAndSwap(t *testing.T) {
	a := NewAtom(fixture())
	before := a.Deref()

	next, err := a.Swap(func(s Snapshot) (Snapshot, error) {
		return s.Assoc("app/subpage", ir.String("settings")), nil
	})
	require.NoError(t, err)

	v, _ := a.Deref().Get("app/subpage")
	assert.Equal(t, ir.String("settings"), v)
	assert.True(t, next.Equal(a.Deref()))
	assert.Equal(t, int64(1), a.Version())

	v, _ = before.Get("app/subpage")
	assert.Equal(t, ir.String("overview"), v, "held snapshots never change")
}

func TestAtomSwapErrorLeavesStore(t *testing.T) {
	a := NewAtom(fixture())
	boom := errors.New("boom")

	_, err := a.Swap(func(s Snapshot) (Snapshot, error) {
		return s.Dissoc("app/subpage"), boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := a.Deref().Get("app/subpage")
	assert.True(t, ok)
	assert.Equal(t, int64(0), a.Version())
}

func TestAtomReset(t *testing.T) {
	a := NewAtom(fixture())

	old := a.Reset(Empty())
	assert.True(t, old.Equal(fixture()))
	assert.Empty(t, a.Deref().Data())
	assert.Equal(t, int64(1), a.Version())
}

func TestAtomConcurrentSwaps(t *testing.T) {
	a := NewAtom(NewSnapshot(ir.Object{"n": ir.Int(0)}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Swap(func(s Snapshot) (Snapshot, error) {
				n, _ := s.Get("n")
				return s.Assoc("n", n.(ir.Int)+1), nil
			})
		}()
	}
	wg.Wait()

	n, _ := a.Deref().Get("n")
	assert.Equal(t, ir.Int(50), n, "no update is lost")
	assert.Equal(t, int64(50), a.Version())
}
