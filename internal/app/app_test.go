package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/parser"
	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/testutil"
)

func newParser(t *testing.T, atom *state.Atom, sink analytics.Sink) *parser.Parser {
	t.Helper()
	reg, err := NewRegistry(sink)
	require.NoError(t, err)
	return parser.New(reg, atom,
		parser.WithLogger(testutil.TestLogger(t)),
		parser.WithPassIDGenerator(parser.NewSequenceGenerator("pass")))
}

func mustParse(t *testing.T, src string) query.Query {
	t.Helper()
	q, err := query.Parse([]byte(src))
	require.NoError(t, err)
	return q
}

func TestRegister_Twice(t *testing.T) {
	reg := parser.NewRegistry()
	require.NoError(t, Register(reg, nil))

	err := Register(reg, nil)
	require.Error(t, err)
	assert.True(t, parser.IsDuplicateHandler(err))
}

func TestRegister_Keys(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	reads, mutations := reg.Keys()
	for _, k := range append([]string{KeyRoute, KeySubpage, KeyCurrentUser, KeyRouteData, KeyLegacyState}, EntityTables...) {
		assert.Contains(t, reads, k)
		assert.True(t, reg.HasRemote(k), k)
	}
	assert.Equal(t, []string{MutationMergeRemote, MutationSetRouteData}, mutations)
}

// Invoking route/set-data with an organization stores it as an ident,
// strips the legacy cleanup fields and emits exactly one pageview.
func TestSetRouteData(t *testing.T) {
	atom := testutil.SampleAtom()
	rec := analytics.NewRecorder()
	p := newParser(t, atom, rec)

	after, err := p.Transact(context.Background(), MutationSetRouteData, ir.Object{
		"subpage": ir.String("overview"),
		"routeData": ir.Object{
			"organization": ir.Object{
				"vcsType": ir.String("github"),
				"name":    ir.String("acme"),
				"avatar":  ir.String("https://example.com/a.png"),
			},
		},
	})
	require.NoError(t, err)

	subpage, _ := after.Get(KeySubpage)
	assert.Equal(t, ir.String("overview"), subpage)

	routeData, _ := after.Get(KeyRouteData)
	assert.Equal(t, ir.Object{
		"organization": ir.NewIdent(TableOrganization, ir.Object{
			"vcsType": ir.String("github"),
			"name":    ir.String("acme"),
		}),
	}, routeData)
	assert.True(t, ir.Equal(testutil.AcmeOrg, routeData.(ir.Object)["organization"]))

	legacy, _ := after.Get(KeyLegacyState)
	for _, f := range LegacyCleanupFields {
		_, present := legacy.(ir.Object)[f]
		assert.False(t, present, f)
	}
	assert.Contains(t, legacy.(ir.Object), "inputs", "unrelated legacy fields survive")
	assert.Contains(t, legacy.(ir.Object), "settings")

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, analytics.Event{
		EventType:       EventPageview,
		NavigationPoint: "org",
		Subpage:         "overview",
		Properties:      analytics.Properties{User: "ada", View: "org", Org: "acme"},
	}, events[0])

	assert.True(t, atom.Deref().Equal(after))
}

func TestSetRouteData_NoOrganization(t *testing.T) {
	rec := analytics.NewRecorder()
	p := newParser(t, testutil.SampleAtom(), rec)

	after, err := p.Transact(context.Background(), MutationSetRouteData, ir.Object{
		"subpage":   ir.String("settings"),
		"routeData": ir.Object{"widget": ir.Int(5)},
	})
	require.NoError(t, err)

	routeData, _ := after.Get(KeyRouteData)
	assert.Equal(t, ir.Object{}, routeData, "only known route keys are kept")

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Properties.Org)
}

func TestSetRouteData_NoSubpage(t *testing.T) {
	p := newParser(t, testutil.SampleAtom(), nil)

	after, err := p.Transact(context.Background(), MutationSetRouteData, ir.Object{})
	require.NoError(t, err)

	_, present := after.Get(KeySubpage)
	assert.False(t, present)
}

func TestSetRouteData_NormalizedUser(t *testing.T) {
	seed := state.NewSnapshot(testutil.SampleStore()).
		Assoc(KeyCurrentUser, ir.NewIdent(TableUser, ir.String("bob")))
	rec := analytics.NewRecorder()
	p := newParser(t, state.NewAtom(seed), rec)

	_, err := p.Transact(context.Background(), MutationSetRouteData, ir.Object{"subpage": ir.String("overview")})
	require.NoError(t, err)

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, "bob", rec.Events()[0].Properties.User)
}

func TestSetRouteData_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params ir.Object
	}{
		{"subpage not a string", ir.Object{"subpage": ir.Int(1)}},
		{"route data not a mapping", ir.Object{"routeData": ir.String("acme")}},
		{"organization not a mapping", ir.Object{"routeData": ir.Object{"organization": ir.String("acme")}}},
		{"organization without name", ir.Object{"routeData": ir.Object{"organization": ir.Object{"vcsType": ir.String("github")}}}},
		{"foreign ident", ir.Object{"routeData": ir.Object{"organization": ir.NewIdent(TableWidget, ir.Int(5))}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atom := testutil.SampleAtom()
			before := atom.Deref()
			rec := analytics.NewRecorder()
			p := newParser(t, atom, rec)

			_, err := p.Transact(context.Background(), MutationSetRouteData, tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.True(t, before.Equal(atom.Deref()), "store untouched")
			assert.Empty(t, rec.Events())
		})
	}
}

type failingSink struct{}

func (failingSink) Track(context.Context, analytics.Event) error {
	return errors.New("sink offline")
}

func TestSetRouteData_SinkFailureKeepsStore(t *testing.T) {
	atom := testutil.SampleAtom()
	p := newParser(t, atom, failingSink{})

	_, err := p.Transact(context.Background(), MutationSetRouteData, ir.Object{"subpage": ir.String("usage")})
	require.NoError(t, err)

	subpage, _ := atom.Deref().Get(KeySubpage)
	assert.Equal(t, ir.String("usage"), subpage)
}

func TestMergeRemote(t *testing.T) {
	atom := testutil.SampleAtom()
	p := newParser(t, atom, nil)

	after, err := p.Transact(context.Background(), MutationMergeRemote, ir.Object{
		"data": ir.Object{
			TableWidget: ir.Object{
				"7": ir.Object{"id": ir.Int(7), "title": ir.String("table")},
			},
			KeyCurrentUser: ir.Object{"login": ir.String("ada"), "email": ir.String("new@example.com")},
		},
	})
	require.NoError(t, err)

	_, kept := after.GetIn(TableWidget, "5")
	assert.True(t, kept, "existing entities survive")
	title, _ := after.GetIn(TableWidget, "7", "title")
	assert.Equal(t, ir.String("table"), title)

	user, _ := after.Get(KeyCurrentUser)
	assert.Equal(t, ir.Object{"login": ir.String("ada"), "email": ir.String("new@example.com")}, user)

	_, err = p.Transact(context.Background(), MutationMergeRemote, ir.Object{})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestLocalPass(t *testing.T) {
	p := newParser(t, testutil.SampleAtom(), nil)

	out, err := p.Local(context.Background(), mustParse(t, `
- app/route
- legacy/state: [settings]
- app/route-data:
    - organization: [name, plan]
`))
	require.NoError(t, err)

	assert.Equal(t, ir.String("org"), out[KeyRoute])

	legacy := out[KeyLegacyState].(ir.Object)
	assert.NotContains(t, legacy, LegacyInputsField)
	assert.Contains(t, legacy, "currentOrgData", "legacy state is not shape-filtered")

	assert.Equal(t, ir.Object{
		"organization": ir.Object{"name": ir.String("acme"), "plan": ir.String("free")},
	}, out[KeyRouteData])
}

func TestRemotePass(t *testing.T) {
	p := newParser(t, testutil.SampleAtom(), nil)

	rq, err := p.Remote(context.Background(), mustParse(t, `
- app/route
- app/subpage
- legacy/state: [settings]
- app/current-user: [login, bitbucketAuthorized, email]
- app/route-data:
    - organization: [name, plan]
    - project: [name]
`))
	require.NoError(t, err)

	email := query.Query{query.Prop{Key: query.NameKey("email")}}
	org := query.Join{
		Key:   query.IdentKey(testutil.AcmeOrg),
		Query: query.Query{query.Prop{Key: query.NameKey("name")}, query.Prop{Key: query.NameKey("plan")}},
	}

	assert.True(t, query.Equal(query.Query{
		query.Join{Key: query.NameKey(KeyCurrentUser), Query: email},
		query.Join{Key: query.NameKey(KeyRouteData), Query: query.Query{org}},
	}, rq.Query), "got %v", rq.Query.ToAny())
	assert.True(t, query.Equal(query.Query{
		query.Join{Key: query.NameKey(KeyCurrentUser), Query: email},
		org,
	}, rq.Roots))
}

// Running the route change and then a remote pass reroots at the new
// organization.
func TestRouteChangeThenRemote(t *testing.T) {
	p := newParser(t, testutil.SampleAtom(), nil)
	ctx := context.Background()

	_, err := p.Transact(ctx, MutationSetRouteData, ir.Object{
		"subpage": ir.String("overview"),
		"routeData": ir.Object{"organization": ir.Object{
			"vcsType": ir.String("bitbucket"),
			"name":    ir.String("globex"),
		}},
	})
	require.NoError(t, err)

	rq, err := p.Remote(ctx, mustParse(t, `[{app/route-data: [{organization: [name]}, {widget: [title]}]}]`))
	require.NoError(t, err)

	require.Len(t, rq.Nodes, 1)
	require.Len(t, rq.Nodes[0].Children, 1, "widget was cleared by the route change")
	child := rq.Nodes[0].Children[0]
	assert.True(t, child.QueryRoot)
	assert.True(t, ir.Equal(ir.NewIdent(TableOrganization, ir.Object{
		"vcsType": ir.String("bitbucket"),
		"name":    ir.String("globex"),
	}), *child.Key.Ident))
}
