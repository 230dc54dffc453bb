package app

// Store keys read by the application.
const (
	KeyRoute       = "app/route"
	KeySubpage     = "app/subpage"
	KeyCurrentUser = "app/current-user"
	KeyRouteData   = "app/route-data"
	KeyLegacyState = "legacy/state"
)

// Entity tables. Each holds normalized entities keyed by Ident.Key().
const (
	TableOrganization = "organizationByVcsTypeAndName"
	TableProject      = "projectByOrgAndName"
	TableWidget       = "widgetById"
	TableUser         = "userByLogin"
)

// Mutation names.
const (
	MutationSetRouteData = "route/set-data"
	MutationMergeRemote  = "remote/merge"
)

// EntityTables lists the tables forwarded to the server unchanged.
var EntityTables = []string{TableOrganization, TableProject, TableWidget, TableUser}

// CurrentUserLocalFields are filled from the page bootstrap, not the server.
var CurrentUserLocalFields = []string{"login", "bitbucketAuthorized"}

// LegacyInputsField is read directly by the legacy views, outside any query.
const LegacyInputsField = "inputs"

// LegacyCleanupFields are stripped from legacy/state on every route change
// so data from the previous page does not leak into the next.
var LegacyCleanupFields = []string{"currentBuildData", "currentProjectData", "currentOrgData", "navigationData"}
