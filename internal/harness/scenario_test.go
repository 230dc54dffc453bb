package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/route_change.yaml")
	require.NoError(t, err)

	assert.Equal(t, "route_change", scenario.Name)
	assert.NotEmpty(t, scenario.Description)
	assert.Equal(t, filepath.Join("testdata", "fixtures", "dashboard.yaml"), scenario.FixturePath())

	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, StepLocal, scenario.Steps[0].Kind())
	assert.Equal(t, StepMutation, scenario.Steps[1].Kind())
	assert.Equal(t, "route/set-data", scenario.Steps[1].Mutate)
	assert.Equal(t, StepRemote, scenario.Steps[2].Kind())

	expect := scenario.Steps[2].Expect
	require.NotNil(t, expect)
	require.NotNil(t, expect.Query)
	require.NotNil(t, expect.Roots)
	assert.Len(t, *expect.Query, 2)

	assert.Len(t, scenario.Assertions, 11)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	content := `
name: lost
description: "Fixture does not exist"
fixture: nowhere.yaml
steps:
  - local: [app/route]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixture not found")
	assert.Contains(t, err.Error(), filepath.Join(dir, "nowhere.yaml"))
}

func TestParseScenario_Minimal(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: minimal
description: "One local pass"
seed:
  app/route: org
steps:
  - local: [app/route]
`))
	require.NoError(t, err)
	assert.Empty(t, scenario.Fixture)
	assert.Empty(t, scenario.FixturePath())
	assert.Empty(t, scenario.Assertions)
	require.Len(t, scenario.Steps, 1)
	assert.Nil(t, scenario.Steps[0].Expect)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
steps: [{local: [a]}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
steps: [{local: [a]}]
`,
			wantErr: "description is required",
		},
		{
			name: "no steps",
			content: `
name: x
description: "x"
steps: []
`,
			wantErr: "steps list is required",
		},
		{
			name: "unknown field",
			content: `
name: x
description: "x"
step: [{local: [a]}]
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "two kinds in one step",
			content: `
name: x
description: "x"
steps:
  - local: [a]
    mutate: route/set-data
`,
			wantErr: "exactly one of local, remote or mutate",
		},
		{
			name: "empty step",
			content: `
name: x
description: "x"
steps:
  - expect: {error: X}
`,
			wantErr: "exactly one of local, remote or mutate",
		},
		{
			name: "params without mutate",
			content: `
name: x
description: "x"
steps:
  - remote: [a]
    params: {subpage: s}
`,
			wantErr: "params is only valid with mutate",
		},
		{
			name: "value on remote pass",
			content: `
name: x
description: "x"
steps:
  - remote: [a]
    expect:
      value: {a: 1}
`,
			wantErr: "value is only valid for local passes",
		},
		{
			name: "query on local pass",
			content: `
name: x
description: "x"
steps:
  - local: [a]
    expect:
      query: [a]
`,
			wantErr: "only valid for remote passes",
		},
		{
			name: "empty with query",
			content: `
name: x
description: "x"
steps:
  - remote: [a]
    expect:
      empty: true
      query: [a]
`,
			wantErr: "empty excludes query and roots",
		},
		{
			name: "malformed query",
			content: `
name: x
description: "x"
steps:
  - local: [7]
`,
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_InvalidAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"missing type", `{path: [a]}`, "type is required"},
		{"unknown type", `{type: trace_contains}`, "unknown assertion type"},
		{"store_value without path", `{type: store_value, value: 1}`, "path is required for store_value"},
		{"store_value without value", `{type: store_value, path: [a]}`, "value is required for store_value"},
		{"store_absent without path", `{type: store_absent}`, "path is required for store_absent"},
		{"negative event_count", `{type: event_count, count: -1}`, "count must be non-negative"},
		{"event_contains without event", `{type: event_contains}`, "event is required"},
		{"unknown journal table", `{type: journal_count, table: flows, count: 1}`, "unknown journal table"},
		{"trace_count without step", `{type: trace_count, count: 1}`, "step is required"},
		{"trace_order without steps", `{type: trace_order}`, "steps list is required for trace_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `
name: x
description: "x"
steps: [{local: [a]}]
assertions:
  - ` + tt.assertion + `
`
			_, err := ParseScenario([]byte(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "assertions[0]")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStepKind(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: kinds
description: "x"
steps:
  - local: [a]
  - remote: [a]
  - mutate: remote/merge
`))
	require.NoError(t, err)

	var kinds []string
	for _, s := range scenario.Steps {
		kinds = append(kinds, s.Kind())
	}
	assert.Equal(t, []string{StepLocal, StepRemote, StepMutation}, kinds)
}
