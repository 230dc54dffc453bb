package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/viewq/internal/ir"
)

// Snapshot captures a scenario execution for golden comparison.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Result.Trace))
	for i, event := range s.Result.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		optional := map[string]any{
			"pass_id": event.PassID,
			"name":    event.Name,
			"error":   event.Error,
		}
		for k, v := range optional {
			if v != "" {
				eventMap[k] = v
			}
		}
		for k, v := range map[string]any{
			"params": event.Params,
			"query":  event.Query,
			"value":  event.Value,
			"remote": event.Remote,
			"roots":  event.Roots,
		} {
			if v != nil {
				eventMap[k] = v
			}
		}
		traceList[i] = eventMap
	}

	events := make([]any, len(s.Result.Events))
	for i, e := range s.Result.Events {
		m, err := eventToMap(e)
		if err != nil {
			continue
		}
		events[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"store":         ir.ToAny(s.Result.Store),
		"events":        events,
	}
}

// MarshalGolden returns the canonical JSON form of a scenario result.
func MarshalGolden(name string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: name, Result: result}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its result against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the result doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalGolden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
