package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeIdent = `{"$ident":["organizationByVcsTypeAndName",{"name":"acme","vcsType":"github"}]}`

func TestRead_FixtureQuery(t *testing.T) {
	out, _, err := execute(t, "read", "--store", "testdata/dashboard.yaml")
	require.NoError(t, err)
	assert.Equal(t,
		`{"app/current-user":{"email":"ada@example.com","login":"ada"},"app/subpage":"overview","app/widgets":[{"title":"gauge"}]}`+"\n",
		out)
}

func TestRead_Expr(t *testing.T) {
	out, _, err := execute(t, "read", "--store", "testdata/dashboard.yaml",
		"-e", `["legacy/state", "app/missing"]`)
	require.NoError(t, err)
	assert.Equal(t, `{"legacy/state":{"currentOrgData":{"name":"acme"}}}`+"\n", out)
}

func TestRead_NoQuery(t *testing.T) {
	_, _, err := execute(t, "read")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "a query is required")
}

func TestRead_BadExpr(t *testing.T) {
	_, _, err := execute(t, "read", "-e", `{"not": "a sequence"}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --expr")
}

func TestRemote(t *testing.T) {
	out, _, err := execute(t, "remote", "--store", "testdata/dashboard.yaml", "--query", "testdata/remote.yaml")
	require.NoError(t, err)

	org := `{"join":` + acmeIdent + `,"query":["name","plan"]}`
	assert.JSONEq(t, `{
		"query": [{"app/current-user": ["email"]}, {"app/route-data": [`+org+`]}],
		"roots": [{"app/current-user": ["email"]}, `+org+`]
	}`, out)
}

func TestRemote_NothingToSend(t *testing.T) {
	out, _, err := execute(t, "remote", "--store", "testdata/dashboard.yaml", "-e", `["app/route", "app/subpage"]`)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to send.\n", out)
}

func TestRemote_ParseError(t *testing.T) {
	out, _, err := execute(t, "remote", "--store", "testdata/dashboard.yaml", "--format", "json",
		"-e", `[{"app/widgets": ["title"]}]`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNIMPLEMENTED_REMOTE_BEHAVIOR", resp.Error.Code)
}

func TestMutate_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params string
		code   int
		want   string
	}{
		{"not json", `{subpage`, ExitCommandError, "invalid --params"},
		{"not an object", `["settings"]`, ExitCommandError, "must be a JSON object"},
		{"rejected by handler", `{"subpage": 3}`, ExitFailure, "invalid mutation params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "mutate", "route/set-data", "--store", "testdata/dashboard.yaml", "--params", tt.params)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMutate_ResumeFromJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "viewq.db")

	out, errOut, err := execute(t, "mutate", "route/set-data",
		"--store", "testdata/dashboard.yaml",
		"--journal", db,
		"--params", `{"subpage": "settings", "routeData": {"organization": {"vcsType": "github", "name": "globex"}}}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"app/subpage":"settings"`)
	assert.Contains(t, out, `"legacy/state":{"inputs":{"search":"deploy"}}`)
	assert.Contains(t, errOut, "analytics event")

	out, _, err = execute(t, "read", "--journal", db, "-e", `["app/subpage", {"app/route-data": [{"organization": ["name"]}]}]`)
	require.NoError(t, err)
	// globex is not in the store, so the join resolves to nothing.
	assert.Equal(t, `{"app/route-data":{},"app/subpage":"settings"}`+"\n", out)

	out, _, err = execute(t, "remote", "--journal", db, "-e", `[{"app/route-data": [{"organization": ["name"]}]}]`)
	require.NoError(t, err)
	assert.Contains(t, out, `"globex"`)

	out, _, err = execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "1 mutation(s), 1 remote quer(ies), 1 event(s)")
	assert.Contains(t, out, "Last mutation: route/set-data")
	assert.Contains(t, out, "Resume at seq: 3")
	assert.Contains(t, out, "All snapshots verified")
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/remote.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ testdata/remote.yaml")

	out, _, err = execute(t, "validate", "testdata/remote.yaml", "testdata/suspicious.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ testdata/suspicious.yaml")
	assert.Contains(t, out, "duplicate key app/subpage")
	assert.Contains(t, out, "join app/widgets has an empty query")
	assert.Contains(t, out, "no remote policy: app/widgets")
}

func TestValidate_JSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "-e", `["app/route", {"builds": ["status"]}]`)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Queries, 1)
	assert.Equal(t, "--expr", resp.Data.Queries[0].Source)
	assert.Equal(t, []string{"builds"}, resp.Data.Queries[0].MissingRemote)
}

func TestValidate_Errors(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err := execute(t, "validate", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "FIXTURE_NOT_FOUND")
}

func TestKeys(t *testing.T) {
	out, _, err := execute(t, "keys")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Reads:", lines[0])
	assert.Contains(t, out, "  app/route-data\n")
	assert.Contains(t, out, "  widgetById\n")
	assert.Contains(t, out, "Mutations:\n  remote/merge\n  route/set-data")
}
