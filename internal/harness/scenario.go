package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewq/internal/query"
)

// Scenario seeds a store, runs passes and mutations against it and asserts
// on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is a store fixture file, relative to the scenario file.
	Fixture string `yaml:"fixture,omitempty"`

	// Seed is an inline store, merged over the fixture's store.
	Seed yaml.Node `yaml:"seed,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store, events, journal and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// dir is the directory of the scenario file, for resolving Fixture.
	dir string
}

// Step is exactly one of a local pass, a remote pass or a mutation.
type Step struct {
	Local  *query.Query `yaml:"local,omitempty"`
	Remote *query.Query `yaml:"remote,omitempty"`

	Mutate string    `yaml:"mutate,omitempty"`
	Params yaml.Node `yaml:"params,omitempty"`

	// Expect validates the step's outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Kind returns the step type: StepLocal, StepRemote or StepMutation.
func (s Step) Kind() string {
	switch {
	case s.Local != nil:
		return StepLocal
	case s.Remote != nil:
		return StepRemote
	default:
		return StepMutation
	}
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Value lists resolved keys of a local pass and their exact values.
	// Keys not listed are not checked.
	Value yaml.Node `yaml:"value,omitempty"`

	// Query is the exact query a remote pass forwards.
	Query *query.Query `yaml:"query,omitempty"`

	// Roots is the exact forwarded query with query roots lifted.
	Roots *query.Query `yaml:"roots,omitempty"`

	// Empty asserts that a remote pass forwards nothing.
	Empty bool `yaml:"empty,omitempty"`

	// Error is the expected error code, or a substring of the message for
	// errors without a code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final state of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "store_value": the store holds Value at Path
	// - "store_absent": nothing is stored at Path
	// - "event_count": exactly Count analytics events
	// - "event_contains": an event matching Event (subset match)
	// - "journal_count": Table holds exactly Count rows
	// - "trace_count": Step appears exactly Count times in the trace
	// - "trace_order": Steps appear in this order
	Type string `yaml:"type"`

	Path  []string  `yaml:"path,omitempty"`
	Value yaml.Node `yaml:"value,omitempty"`

	Event map[string]any `yaml:"event,omitempty"`

	// Table is one of mutations, remote_queries or events.
	Table string `yaml:"table,omitempty"`

	Count int `yaml:"count,omitempty"`

	Step  string   `yaml:"step,omitempty"`
	Steps []string `yaml:"steps,omitempty"`
}

// Assertion type constants.
const (
	AssertStoreValue    = "store_value"
	AssertStoreAbsent   = "store_absent"
	AssertEventCount    = "event_count"
	AssertEventContains = "event_contains"
	AssertJournalCount  = "journal_count"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// Journal tables accepted by journal_count.
var journalTables = map[string]bool{"mutations": true, "remote_queries": true, "events": true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)

	if scenario.Fixture != "" {
		if _, err := os.Stat(scenario.FixturePath()); err != nil {
			return nil, fmt.Errorf("invalid scenario: fixture not found: %s", scenario.FixturePath())
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. A relative Fixture resolves against
// the current directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FixturePath returns Fixture resolved against the scenario's directory.
func (s *Scenario) FixturePath() string {
	if s.Fixture == "" || filepath.IsAbs(s.Fixture) {
		return s.Fixture
	}
	return filepath.Join(s.dir, s.Fixture)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	set := 0
	if step.Local != nil {
		set++
	}
	if step.Remote != nil {
		set++
	}
	if step.Mutate != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of local, remote or mutate is required", i)
	}
	if step.Mutate == "" && step.Params.Kind != 0 {
		return fmt.Errorf("steps[%d]: params is only valid with mutate", i)
	}

	e := step.Expect
	if e == nil {
		return nil
	}
	kind := step.Kind()
	if e.Value.Kind != 0 && kind != StepLocal {
		return fmt.Errorf("steps[%d].expect: value is only valid for local passes", i)
	}
	if (e.Query != nil || e.Roots != nil || e.Empty) && kind != StepRemote {
		return fmt.Errorf("steps[%d].expect: query, roots and empty are only valid for remote passes", i)
	}
	if e.Empty && (e.Query != nil || e.Roots != nil) {
		return fmt.Errorf("steps[%d].expect: empty excludes query and roots", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStoreValue:
		if len(a.Path) == 0 {
			return fmt.Errorf("assertions[%d]: path is required for store_value", index)
		}
		if a.Value.Kind == 0 {
			return fmt.Errorf("assertions[%d]: value is required for store_value", index)
		}
	case AssertStoreAbsent:
		if len(a.Path) == 0 {
			return fmt.Errorf("assertions[%d]: path is required for store_absent", index)
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventContains:
		if len(a.Event) == 0 {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertJournalCount:
		if !journalTables[a.Table] {
			return fmt.Errorf("assertions[%d]: unknown journal table %q", index, a.Table)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	case AssertTraceCount:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Steps) == 0 {
			return fmt.Errorf("assertions[%d]: steps list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
