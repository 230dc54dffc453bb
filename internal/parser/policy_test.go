package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/testutil"
)

func childNames(n *query.Node) []string {
	var names []string
	for _, c := range n.Children {
		names = append(names, c.Key.String())
	}
	return names
}

func TestSuppressRemote(t *testing.T) {
	env, n := envFor(t, Remote, "[app/route]")
	got, err := SuppressRemote()(env, n.Key, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestForwardRemote(t *testing.T) {
	env, n := envFor(t, Remote, "[{organizationByVcsTypeAndName: [name, plan]}]")
	got, err := ForwardRemote()(env, n.Key, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, query.Equal(query.ToQuery(n), query.ToQuery(*got)))
}

// Suppressed children are removed; email alone survives.
func TestFilterChildren(t *testing.T) {
	policy := FilterChildren("login", "bitbucketAuthorized")

	env, n := envFor(t, Remote, "[{app/current-user: [login, bitbucketAuthorized, email]}]")
	got, err := policy(env, n.Key, nil)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, []string{"email"}, childNames(got))
	assert.True(t, query.Equal(
		query.Query{query.Prop{Key: query.NameKey("email")}},
		got.Query), "serialized form follows the children")
	assert.Len(t, n.Children, 3, "the pass node is not edited in place")
}

func TestFilterChildren_AllSuppressed(t *testing.T) {
	policy := FilterChildren("login", "bitbucketAuthorized")

	env, n := envFor(t, Remote, "[{app/current-user: [login, bitbucketAuthorized]}]")
	got, err := policy(env, n.Key, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFilterChildren_KeepsParams(t *testing.T) {
	policy := FilterChildren("login")

	env, n := envFor(t, Remote, "[{join: app/current-user, params: {fresh: true}, query: [login, email]}]")
	got, err := policy(env, n.Key, n.Params)
	require.NoError(t, err)
	require.NotNil(t, got)

	expr, ok := query.ToExpr(*got).(query.Param)
	require.True(t, ok)
	assert.Equal(t, ir.Object{"fresh": ir.Bool(true)}, expr.Params)
}

// A child backed by an ident is re-keyed at it and marked as a query root.
func TestRerootChildren(t *testing.T) {
	env, n := envFor(t, Remote, "[{app/route-data: [{widget: [title]}]}]")
	got, err := RerootChildren()(env, n.Key, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Children, 1)

	child := got.Children[0]
	want := ir.NewIdent("widgetById", ir.Int(5))
	require.True(t, child.Key.IsIdent())
	assert.True(t, ir.Equal(want, *child.Key.Ident))
	assert.True(t, child.DispatchKey.Equal(child.Key))
	assert.True(t, child.QueryRoot)
	assert.True(t, query.Equal(query.Query{query.Prop{Key: query.NameKey("title")}}, child.Query), "same sub-query")

	assert.True(t, query.Equal(query.Query{
		query.Join{Key: query.IdentKey(want), Query: query.Query{query.Prop{Key: query.NameKey("title")}}},
	}, got.Query))
}

func TestRerootChildren_DropsAbsent(t *testing.T) {
	env, n := envFor(t, Remote, "[{app/route-data: [{widget: [title]}, {project: [name]}]}]")
	got, err := RerootChildren()(env, n.Key, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"[widgetById 5]"}, childNames(got))
}

func TestRerootChildren_IdentKeyedChild(t *testing.T) {
	org := ir.NewIdent("organizationByVcsTypeAndName",
		ir.Object{"vcsType": ir.String("github"), "name": ir.String("globex")})
	root := query.FromQuery(query.Query{
		query.Join{Key: query.NameKey("app/route-data"), Query: query.Query{
			query.Join{Key: query.IdentKey(org), Query: query.Query{query.Prop{Key: query.NameKey("name")}}},
			query.Join{Key: query.NameKey("widget"), Query: query.Query{query.Prop{Key: query.NameKey("title")}}},
		}},
	})
	n := root.Children[0]
	env := Env{Mode: Remote, Node: n, Snapshot: state.NewSnapshot(testutil.SampleStore()), Logger: testutil.TestLogger(t)}

	got, err := RerootChildren()(env, n.Key, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Children, 2)

	child := got.Children[0]
	require.True(t, child.Key.IsIdent())
	assert.True(t, ir.Equal(org, *child.Key.Ident), "forwarded under its own ident")
	assert.True(t, child.QueryRoot)
	assert.True(t, got.Children[1].QueryRoot)
}

func TestRerootChildren_NothingLeft(t *testing.T) {
	env, n := envFor(t, Remote, "[{app/route-data: [{project: [name]}]}]")
	got, err := RerootChildren()(env, n.Key, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	env, n = envFor(t, Remote, "[{app/route-data: [{widget: [title]}]}]")
	env.Snapshot = state.Empty()
	got, err = RerootChildren()(env, n.Key, nil)
	require.NoError(t, err)
	assert.Nil(t, got, "no route data at all")
}

func TestRerootChildren_MalformedIdent(t *testing.T) {
	tests := map[string]ir.Value{
		"string":         ir.String("widget-5"),
		"pair array":     ir.Array{ir.String("widgetById"), ir.Int(5)},
		"ident no id":    ir.Ident{Table: "widgetById"},
		"ident no table": ir.NewIdent("", ir.Int(5)),
	}

	for name, bad := range tests {
		t.Run(name, func(t *testing.T) {
			env, n := envFor(t, Remote, "[{app/route-data: [{widget: [title]}]}]")
			env.Snapshot = env.Snapshot.AssocIn([]string{"app/route-data", "widget"}, bad)

			got, err := RerootChildren()(env, n.Key, nil)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, IsMalformedIdent(err))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "app/route-data.widget", pe.Details["path"])
		})
	}
}

func TestOmitFields(t *testing.T) {
	policy := OmitFields("inputs")

	env, n := envFor(t, Local, "[{legacy/state: [settings]}]")
	got, err := policy(env, n.Key, nil)
	require.NoError(t, err)

	want := testutil.SampleStore()["legacy/state"].(ir.Object).Without("inputs")
	assert.Equal(t, want, got, "whole mapping, not filtered by the query")

	env.Snapshot = state.Empty()
	got, err = policy(env, n.Key, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	env.Snapshot = state.NewSnapshot(ir.Object{"legacy/state": ir.String("raw")})
	got, err = policy(env, n.Key, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.String("raw"), got)
}
