package parser

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/store"
	"github.com/roach88/viewq/internal/testutil"
)

// mustParse decodes a YAML query.
func mustParse(t *testing.T, src string) query.Query {
	t.Helper()
	q, err := query.Parse([]byte(src))
	require.NoError(t, err)
	return q
}

// envFor builds the env of the first top-level key of src.
func envFor(t *testing.T, mode Mode, src string) (Env, query.Node) {
	t.Helper()
	root := query.FromQuery(mustParse(t, src))
	require.NotEmpty(t, root.Children)
	n := root.Children[0]
	return Env{
		Mode:     mode,
		Node:     n,
		Snapshot: state.NewSnapshot(testutil.SampleStore()),
		PassID:   "pass-test",
		Logger:   testutil.TestLogger(t),
	}, n
}

// newTestParser creates a parser over SampleStore with deterministic ids.
func newTestParser(t *testing.T, reg *Registry, opts ...Option) *Parser {
	t.Helper()
	base := []Option{
		WithLogger(testutil.TestLogger(t)),
		WithPassIDGenerator(NewSequenceGenerator("pass")),
	}
	return New(reg, testutil.SampleAtom(), append(base, opts...)...)
}

// memJournal records journal writes in memory.
type memJournal struct {
	mu        sync.Mutex
	mutations []store.MutationRecord
	remotes   []store.RemoteRecord
	err       error
}

func (j *memJournal) WriteMutation(_ context.Context, rec store.MutationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.mutations = append(j.mutations, rec)
	return nil
}

func (j *memJournal) WriteRemote(_ context.Context, rec store.RemoteRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.remotes = append(j.remotes, rec)
	return nil
}
