// Package parser resolves queries against the store in two modes and
// dispatches named mutations.
//
// ARCHITECTURE:
//
// Registry:
// An explicit mapping from dispatch key to handler, with a designated
// default entry for each kind. All handlers are registered at composition
// time, before the first pass.
//
//	Local    how a key's value is computed from the snapshot
//	Remote   what, if anything, is forwarded upstream for a key
//	Mutation the action a named mutation performs
//
// Dispatch key: a plain key dispatches under its name, an ident key under
// its table name.
//
// Defaults:
//   - Local: props return the stored value verbatim, joins materialize the
//     stored value against the join's sub-query (see Materialize).
//   - Remote: fail with UNIMPLEMENTED_REMOTE_BEHAVIOR naming the key. Every
//     key that can reach a remote pass needs an explicit policy.
//   - Mutation: a no-op action. Unknown mutation names are tolerated.
//
// Passes:
// Parser.Local and Parser.Remote run one resolution pass over a query.
// Each pass derefs the store once and resolves every top-level key against
// that snapshot, stamping the pass with a pass id and a logical sequence
// number. The first error aborts the pass and is returned unrecovered.
//
// Parser.Transact builds the action for a mutation and runs it at once.
// An action performs exactly one atomic store swap plus its side effects.
//
// Remote policies (policy.go):
//
//	SuppressRemote   never forward
//	ForwardRemote    forward the node unchanged
//	FilterChildren   drop a fixed set of children, suppress when empty
//	RerootChildren   re-key children at the idents found in the store,
//	                 dropping absent ones, suppress when empty
//
// Every policy that edits children returns the node through one of the
// query package's edit helpers so the node's serialized form stays current.
package parser
