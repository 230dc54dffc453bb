package testutil

import (
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/state"
)

// AcmeOrg is the ident of the organization in SampleStore.
var AcmeOrg = ir.NewIdent("organizationByVcsTypeAndName", ir.Object{
	"vcsType": ir.String("github"),
	"name":    ir.String("acme"),
})

// SampleStore returns a normalized store shaped like a dashboard page:
// route keys, a current user, legacy state and three entity tables.
func SampleStore() ir.Object {
	orgKey, err := AcmeOrg.Key()
	if err != nil {
		panic(err)
	}
	return ir.Object{
		"app/route":   ir.String("org"),
		"app/subpage": ir.String("overview"),
		"app/current-user": ir.Object{
			"login":               ir.String("ada"),
			"bitbucketAuthorized": ir.Bool(false),
			"email":               ir.String("ada@example.com"),
		},
		"app/route-data": ir.Object{
			"organization": AcmeOrg,
			"widget":       ir.NewIdent("widgetById", ir.Int(5)),
		},
		"legacy/state": ir.Object{
			"inputs":         ir.Object{"search": ir.String("deploy")},
			"currentOrgData": ir.Object{"name": ir.String("acme")},
			"navigationData": ir.Object{"crumbs": ir.Array{ir.String("acme")}},
			"settings":       ir.Object{"theme": ir.String("dark")},
		},
		"app/widgets": ir.Array{
			ir.NewIdent("widgetById", ir.Int(5)),
			ir.NewIdent("widgetById", ir.Int(99)),
			ir.NewIdent("widgetById", ir.Int(6)),
		},
		"widgetById": ir.Object{
			"5": ir.Object{"id": ir.Int(5), "title": ir.String("gauge"), "owner": ir.NewIdent("userByLogin", ir.String("ada"))},
			"6": ir.Object{"id": ir.Int(6), "title": ir.String("chart"), "owner": ir.NewIdent("userByLogin", ir.String("bob"))},
		},
		"userByLogin": ir.Object{
			"ada": ir.Object{"login": ir.String("ada"), "name": ir.String("Ada")},
			"bob": ir.Object{"login": ir.String("bob"), "name": ir.String("Bob")},
		},
		"organizationByVcsTypeAndName": ir.Object{
			orgKey: ir.Object{"vcsType": ir.String("github"), "name": ir.String("acme"), "plan": ir.String("free")},
		},
	}
}

// SampleAtom returns an atom holding SampleStore.
func SampleAtom() *state.Atom {
	return state.NewAtom(state.NewSnapshot(SampleStore()))
}
