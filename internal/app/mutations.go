package app

import (
	"errors"
	"fmt"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/parser"
	"github.com/roach88/viewq/internal/state"
)

// ErrInvalidParams is wrapped by every parameter error of a mutation.
var ErrInvalidParams = errors.New("invalid mutation params")

// EventPageview is the event type emitted on every route change.
const EventPageview = "pageview"

// SetRouteData handles route/set-data with params {subpage, routeData}.
//
// The action replaces app/subpage and app/route-data in one swap, strips
// LegacyCleanupFields from legacy/state and then emits one pageview event.
// A routeData.organization mapping is stored as an organization ident built
// from its vcsType and name. A failing sink is logged; the store change
// stands.
func SetRouteData(sink analytics.Sink) parser.MutateFunc {
	return func(env parser.Env, params ir.Object) parser.Action {
		return parser.Action{
			Name: MutationSetRouteData,
			Run: func() error {
				subpage, err := optionalString(params, "subpage")
				if err != nil {
					return err
				}
				routeData, orgName, err := buildRouteData(params["routeData"])
				if err != nil {
					return err
				}

				after, err := env.Atom.Swap(func(s state.Snapshot) (state.Snapshot, error) {
					next := s.Assoc(KeyRouteData, routeData)
					if subpage != "" {
						next = next.Assoc(KeySubpage, ir.String(subpage))
					} else {
						next = next.Dissoc(KeySubpage)
					}
					return next.DissocIn([]string{KeyLegacyState}, LegacyCleanupFields...), nil
				})
				if err != nil {
					return err
				}

				route := stringAt(after, KeyRoute)
				event := analytics.Event{
					EventType:       EventPageview,
					NavigationPoint: route,
					Subpage:         subpage,
					Properties: analytics.Properties{
						User: currentLogin(after),
						View: route,
						Org:  orgName,
					},
				}
				if err := sink.Track(env.Context(), event); err != nil {
					env.Log().Error("analytics event failed",
						"mutation", MutationSetRouteData,
						"event_type", event.EventType,
						"error", err)
				}
				return nil
			},
		}
	}
}

// buildRouteData keeps only the route keys present in raw. It returns the
// new route data and the organization name, if any.
func buildRouteData(raw ir.Value) (ir.Object, string, error) {
	out := ir.Object{}
	switch rd := raw.(type) {
	case nil, ir.Null:
		return out, "", nil
	case ir.Object:
		org, ok := rd["organization"]
		if !ok {
			return out, "", nil
		}
		id, name, err := organizationIdent(org)
		if err != nil {
			return nil, "", err
		}
		out["organization"] = id
		return out, name, nil
	default:
		return nil, "", fmt.Errorf("%w: routeData must be a mapping, got %T", ErrInvalidParams, raw)
	}
}

func organizationIdent(v ir.Value) (ir.Ident, string, error) {
	if id, ok := v.(ir.Ident); ok {
		if !id.Valid() || id.Table != TableOrganization {
			return ir.Ident{}, "", fmt.Errorf("%w: organization ident %s", ErrInvalidParams, id)
		}
		name, _ := identField(id, "name")
		return id, name, nil
	}
	org, ok := v.(ir.Object)
	if !ok {
		return ir.Ident{}, "", fmt.Errorf("%w: organization must be a mapping, got %T", ErrInvalidParams, v)
	}
	natural := ir.Object{}
	for _, k := range []string{"vcsType", "name"} {
		s, isString := org[k].(ir.String)
		if !isString {
			return ir.Ident{}, "", fmt.Errorf("%w: organization.%s must be a string", ErrInvalidParams, k)
		}
		natural[k] = s
	}
	return ir.NewIdent(TableOrganization, natural), string(natural["name"].(ir.String)), nil
}

func optionalString(params ir.Object, key string) (string, error) {
	switch v := params[key].(type) {
	case nil, ir.Null:
		return "", nil
	case ir.String:
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParams, key, v)
	}
}

func stringAt(s state.Snapshot, path ...string) string {
	v, _ := s.GetIn(path...)
	str, _ := v.(ir.String)
	return string(str)
}

// currentLogin reads the login of the current user, following an ident
// when the user is stored normalized.
func currentLogin(s state.Snapshot) string {
	v, ok := s.Get(KeyCurrentUser)
	if !ok {
		return ""
	}
	if id, isIdent := v.(ir.Ident); isIdent {
		entity, found, err := s.Resolve(id)
		if err != nil || !found {
			return ""
		}
		v = entity
	}
	obj, _ := v.(ir.Object)
	login, _ := obj["login"].(ir.String)
	return string(login)
}

func identField(id ir.Ident, field string) (string, bool) {
	obj, ok := id.ID.(ir.Object)
	if !ok {
		return "", false
	}
	s, ok := obj[field].(ir.String)
	return string(s), ok
}

// MergeRemote handles remote/merge with params {data}: the transport's way
// of folding a server response back into the store. Top-level keys of data
// replace the stored value, except entity tables, which are merged entity
// by entity.
func MergeRemote() parser.MutateFunc {
	tables := make(map[string]bool, len(EntityTables))
	for _, t := range EntityTables {
		tables[t] = true
	}
	return func(env parser.Env, params ir.Object) parser.Action {
		return parser.Action{
			Name: MutationMergeRemote,
			Run: func() error {
				data, ok := params["data"].(ir.Object)
				if !ok {
					return fmt.Errorf("%w: data must be a mapping", ErrInvalidParams)
				}
				_, err := env.Atom.Swap(func(s state.Snapshot) (state.Snapshot, error) {
					next := s
					for _, key := range data.SortedKeys() {
						incoming, isObj := data[key].(ir.Object)
						if !tables[key] || !isObj {
							next = next.Assoc(key, data[key])
							continue
						}
						for _, id := range incoming.SortedKeys() {
							next = next.AssocIn([]string{key, id}, incoming[id])
						}
					}
					return next, nil
				})
				if err != nil {
					return err
				}
				env.Log().Debug("merged remote data", "keys", len(data))
				return nil
			},
		}
	}
}
