package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/store"
)

// Journal records what the parser did. Implemented by store.Store.
type Journal interface {
	WriteMutation(ctx context.Context, rec store.MutationRecord) error
	WriteRemote(ctx context.Context, rec store.RemoteRecord) error
}

// Parser runs resolution passes and mutations against one store.
//
// Thread-safety model:
//   - Local(), Remote(): read-only, each against its own snapshot
//   - Transact(): expected to complete before the next pass begins
type Parser struct {
	registry *Registry
	atom     *state.Atom
	clock    *Clock
	passIDs  PassIDGenerator
	journal  Journal
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// WithJournal records mutations and forwarded queries to j.
func WithJournal(j Journal) Option {
	return func(p *Parser) {
		p.journal = j
	}
}

// WithPassIDGenerator replaces the UUIDv7 pass id generator.
func WithPassIDGenerator(g PassIDGenerator) Option {
	return func(p *Parser) {
		p.passIDs = g
	}
}

// WithClock sets the logical clock, e.g. one resumed after replay.
func WithClock(c *Clock) Option {
	return func(p *Parser) {
		p.clock = c
	}
}

// New creates a Parser dispatching through reg against atom.
func New(reg *Registry, atom *state.Atom, opts ...Option) *Parser {
	p := &Parser{
		registry: reg,
		atom:     atom,
		clock:    NewClock(),
		passIDs:  UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Atom returns the store the parser resolves against.
func (p *Parser) Atom() *state.Atom {
	return p.atom
}

// Registry returns the parser's handler registry.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Clock returns the parser's logical clock.
func (p *Parser) Clock() *Clock {
	return p.clock
}

func (p *Parser) env(ctx context.Context, mode Mode, snap state.Snapshot) Env {
	env := Env{
		Mode:     mode,
		Snapshot: snap,
		PassID:   p.passIDs.Generate(),
		Seq:      p.clock.Next(),
	}
	env.Logger = p.logger.With("pass_id", env.PassID, "seq", env.Seq)
	return env.WithContext(ctx)
}

// Local runs a local pass over q and returns the resolved tree, keyed like
// the query. Keys absent from the store are omitted.
func (p *Parser) Local(ctx context.Context, q query.Query) (ir.Object, error) {
	env := p.env(ctx, Local, p.atom.Deref())
	root := query.FromQuery(q)

	out := make(ir.Object, len(root.Children))
	for _, n := range root.Children {
		env.Node = n
		res, err := p.registry.Read(env, n.Key, n.Params)
		if err != nil {
			env.Log().Error("local pass failed", "key", n.Key.String(), "error", err)
			return nil, err
		}
		if res.Value != nil {
			out[n.Key.String()] = res.Value
		}
	}

	env.Log().Info("local pass", "keys", len(root.Children), "resolved", len(out))
	return out, nil
}

// RemoteQuery is the outcome of a remote pass: the rewritten top-level
// nodes that survived their policies, in query order.
type RemoteQuery struct {
	PassID string
	Seq    int64
	Nodes  []query.Node
	Query  query.Query // serialized Nodes
	Roots  query.Query // Query with query roots lifted to the top level
}

// Empty reports whether nothing is to be sent this pass.
func (r RemoteQuery) Empty() bool {
	return len(r.Nodes) == 0
}

// Remote runs a remote pass over q.
func (p *Parser) Remote(ctx context.Context, q query.Query) (RemoteQuery, error) {
	snap := p.atom.Deref()
	env := p.env(ctx, Remote, snap)
	root := query.FromQuery(q)

	var forwarded []query.Node
	for _, n := range root.Children {
		env.Node = n
		res, err := p.registry.Read(env, n.Key, n.Params)
		if err != nil {
			env.Log().Error("remote pass failed", "key", n.Key.String(), "error", err)
			return RemoteQuery{}, err
		}
		if res.Remote != nil {
			forwarded = append(forwarded, *res.Remote)
		}
	}

	out := query.WithChildren(query.Node{Type: query.NodeRoot}, forwarded)
	rq := RemoteQuery{
		PassID: env.PassID,
		Seq:    env.Seq,
		Nodes:  out.Children,
		Query:  out.Query,
		Roots:  query.ProcessRoots(out),
	}
	env.Log().Info("remote pass", "keys", len(root.Children), "forwarded", len(rq.Nodes))

	if p.journal != nil && !rq.Empty() {
		hash, err := snap.Hash()
		if err != nil {
			return RemoteQuery{}, fmt.Errorf("remote pass: %w", err)
		}
		err = p.journal.WriteRemote(ctx, store.RemoteRecord{
			PassID:       rq.PassID,
			Seq:          rq.Seq,
			SnapshotHash: hash,
			Query:        rq.Query,
			Roots:        rq.Roots,
		})
		if err != nil {
			env.Log().Error("journal write failed", "error", err)
			return RemoteQuery{}, fmt.Errorf("remote pass: %w", err)
		}
	}
	return rq, nil
}

// Transact builds the action for the named mutation and runs it at once.
// It returns the snapshot the action left in the store.
func (p *Parser) Transact(ctx context.Context, name string, params ir.Object) (state.Snapshot, error) {
	env := p.env(ctx, Local, p.atom.Deref())
	env.Atom = p.atom

	action := p.registry.Mutate(env, name, params)
	if err := action.Run(); err != nil {
		env.Log().Error("mutation failed", "mutation", name, "error", err)
		return p.atom.Deref(), fmt.Errorf("mutation %s: %w", name, err)
	}

	after := p.atom.Deref()
	env.Log().Info("mutation applied", "mutation", name, "version", p.atom.Version())

	if p.journal != nil {
		if err := p.recordMutation(ctx, env, name, params, after); err != nil {
			env.Log().Error("journal write failed", "error", err)
			return after, fmt.Errorf("mutation %s: %w", name, err)
		}
	}
	return after, nil
}

func (p *Parser) recordMutation(ctx context.Context, env Env, name string, params ir.Object, after state.Snapshot) error {
	id, err := ir.MutationID(name, params, env.Seq)
	if err != nil {
		return err
	}
	hash, err := after.Hash()
	if err != nil {
		return err
	}
	return p.journal.WriteMutation(ctx, store.MutationRecord{
		ID:           id,
		PassID:       env.PassID,
		Seq:          env.Seq,
		Name:         name,
		Params:       params,
		SnapshotHash: hash,
		Snapshot:     after.Data(),
	})
}
