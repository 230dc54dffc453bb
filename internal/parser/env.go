package parser

import (
	"context"
	"log/slog"

	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
)

// Mode selects which resolver a pass runs.
type Mode int

const (
	// Local computes values from the store.
	Local Mode = iota + 1
	// Remote computes the sub-query to forward upstream.
	Remote
)

// String returns the mode name used in logs and journal records.
func (m Mode) String() string {
	switch m {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// Env is the per-call environment handed to every handler.
//
// Reads get the pass snapshot captured once at the start of the pass.
// Mutations additionally get the Atom so their action can swap the store.
type Env struct {
	Mode     Mode
	Node     query.Node     // AST node of the key being read
	Snapshot state.Snapshot // snapshot of the current pass
	Atom     *state.Atom    // set for mutations only
	PassID   string
	Seq      int64
	Logger   *slog.Logger

	ctx context.Context
}

// Context returns the env's context, never nil.
func (e Env) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// WithContext returns a copy of e carrying ctx.
func (e Env) WithContext(ctx context.Context) Env {
	e.ctx = ctx
	return e
}

// Log returns the env's logger, falling back to slog.Default.
func (e Env) Log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Result is the envelope produced once per key per pass. A local pass sets
// only Value, a remote pass sets only Remote. A nil Value means the key is
// absent from the store; a nil Remote means "send nothing".
type Result struct {
	Value  ir.Value
	Remote *query.Node
}

// Action is a deferred store transition built by a mutation handler.
// Run performs exactly one atomic swap plus the handler's side effects.
type Action struct {
	Name string
	Run  func() error
}

// noopAction is the action of an unregistered mutation.
func noopAction(name string) Action {
	return Action{Name: name, Run: func() error { return nil }}
}
