package parser

import (
	"slices"

	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
)

// LocalFunc computes a key's value from env.Snapshot. Returning nil marks
// the key absent.
type LocalFunc func(env Env, key query.Key, params ir.Object) (ir.Value, error)

// RemoteFunc decides what to forward for a key. Returning nil means "send
// nothing"; otherwise the returned node, possibly rewritten, is forwarded.
type RemoteFunc func(env Env, key query.Key, params ir.Object) (*query.Node, error)

// MutateFunc builds the action of a named mutation. It must not touch the
// store itself; all effects belong inside the returned action.
type MutateFunc func(env Env, params ir.Object) Action

// Policy bundles the read handlers of one key. A nil field falls back to
// the registry default.
type Policy struct {
	Local  LocalFunc
	Remote RemoteFunc
}

// Registry maps dispatch keys to handlers.
//
// Registration happens at composition time; a Registry is not safe for
// registration concurrent with dispatch.
type Registry struct {
	locals    map[string]LocalFunc
	remotes   map[string]RemoteFunc
	mutations map[string]MutateFunc

	defaultLocal    LocalFunc
	defaultRemote   RemoteFunc
	defaultMutation MutateFunc
}

// NewRegistry creates a registry holding only the default entries.
func NewRegistry() *Registry {
	return &Registry{
		locals:          make(map[string]LocalFunc),
		remotes:         make(map[string]RemoteFunc),
		mutations:       make(map[string]MutateFunc),
		defaultLocal:    DefaultLocal,
		defaultRemote:   DefaultRemote,
		defaultMutation: DefaultMutation,
	}
}

// Register binds a policy to a dispatch key. Registering a second local or
// remote handler for the same key fails with DUPLICATE_HANDLER.
func (r *Registry) Register(key string, p Policy) error {
	if p.Local != nil {
		if _, exists := r.locals[key]; exists {
			return NewDuplicateHandlerError("local", key)
		}
	}
	if p.Remote != nil {
		if _, exists := r.remotes[key]; exists {
			return NewDuplicateHandlerError("remote", key)
		}
	}
	if p.Local != nil {
		r.locals[key] = p.Local
	}
	if p.Remote != nil {
		r.remotes[key] = p.Remote
	}
	return nil
}

// RegisterMutation binds a handler to a mutation name.
func (r *Registry) RegisterMutation(name string, fn MutateFunc) error {
	if _, exists := r.mutations[name]; exists {
		return NewDuplicateHandlerError("mutation", name)
	}
	r.mutations[name] = fn
	return nil
}

// Read runs exactly one resolver for key: the local one when env.Mode is
// Local, the remote one when it is Remote.
func (r *Registry) Read(env Env, key query.Key, params ir.Object) (Result, error) {
	dispatch := key.Dispatch()
	env.Log().Debug("dispatch read",
		"key", key.String(),
		"dispatch", dispatch,
		"mode", env.Mode.String(),
		"pass_id", env.PassID)

	switch env.Mode {
	case Remote:
		fn, ok := r.remotes[dispatch]
		if !ok {
			fn = r.defaultRemote
		}
		node, err := fn(env, key, params)
		if err != nil {
			return Result{}, withPass(err, env.PassID)
		}
		return Result{Remote: node}, nil
	default:
		fn, ok := r.locals[dispatch]
		if !ok {
			fn = r.defaultLocal
		}
		v, err := fn(env, key, params)
		if err != nil {
			return Result{}, withPass(err, env.PassID)
		}
		return Result{Value: v}, nil
	}
}

// Mutate looks up the handler for name and returns its action. Unknown
// names get a no-op action.
func (r *Registry) Mutate(env Env, name string, params ir.Object) Action {
	fn, ok := r.mutations[name]
	if !ok {
		env.Log().Debug("unknown mutation, using no-op", "mutation", name)
		fn = r.defaultMutation
	}
	action := fn(env, params)
	if action.Name == "" {
		action.Name = name
	}
	if action.Run == nil {
		action.Run = noopAction(name).Run
	}
	return action
}

// HasRemote reports whether a remote policy is registered for a dispatch key.
func (r *Registry) HasRemote(dispatch string) bool {
	_, ok := r.remotes[dispatch]
	return ok
}

// MissingRemote lists the top-level keys of q that would fail a remote
// pass for lack of a policy, in query order.
func (r *Registry) MissingRemote(q query.Query) []query.Key {
	var missing []query.Key
	for _, n := range query.FromQuery(q).Children {
		if !r.HasRemote(n.Key.Dispatch()) {
			missing = append(missing, n.Key)
		}
	}
	return missing
}

// Keys lists the registered read keys and mutation names, sorted.
func (r *Registry) Keys() (reads []string, mutations []string) {
	seen := make(map[string]bool)
	for k := range r.locals {
		seen[k] = true
	}
	for k := range r.remotes {
		seen[k] = true
	}
	for k := range seen {
		reads = append(reads, k)
	}
	slices.Sort(reads)

	for k := range r.mutations {
		mutations = append(mutations, k)
	}
	slices.Sort(mutations)
	return reads, mutations
}

// withPass stamps a ParseError with the pass id.
func withPass(err error, passID string) error {
	if pe, ok := err.(*ParseError); ok && pe.PassID == "" {
		stamped := *pe
		stamped.PassID = passID
		return &stamped
	}
	return err
}
