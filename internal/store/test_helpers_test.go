package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/viewq/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestMutation creates a mutation record whose id and snapshot hash
// are derived from its content.
func createTestMutation(t *testing.T, name string, seq int64, snap ir.Object) MutationRecord {
	t.Helper()
	params := ir.Object{"seq": ir.Int(seq)}
	id, err := ir.MutationID(name, params, seq)
	require.NoError(t, err)
	return MutationRecord{
		ID:           id,
		PassID:       "pass-" + name,
		Seq:          seq,
		Name:         name,
		Params:       params,
		SnapshotHash: ir.MustSnapshotHash(snap),
		Snapshot:     snap,
	}
}
