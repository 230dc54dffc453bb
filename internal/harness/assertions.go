package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/fixture"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] seq=%d %s", i+1, event.Seq, event.Label())
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%s", event.Error)
			}
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	snap := state.NewSnapshot(result.Store)
	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStoreValue:
			err = assertStoreValue(snap, assertion)
		case AssertStoreAbsent:
			err = assertStoreAbsent(snap, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Events, assertion)
		case AssertEventContains:
			err = assertEventContains(result.Events, assertion)
		case AssertJournalCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires journal context", i)
			} else {
				err = assertJournalCount(actx.Ctx, actx.Store, assertion)
			}
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertStoreValue(snap state.Snapshot, assertion Assertion) error {
	want, err := fixture.ValueFromYAML(&assertion.Value)
	if err != nil {
		return fmt.Errorf("store_value %s: %w", strings.Join(assertion.Path, "."), err)
	}
	got, ok := snap.GetIn(assertion.Path...)
	if !ok {
		return &AssertionError{
			Type:     AssertStoreValue,
			Expected: fmt.Sprintf("%s = %s", strings.Join(assertion.Path, "."), formatValue(want)),
			Actual:   "absent",
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertStoreValue,
			Expected: fmt.Sprintf("%s = %s", strings.Join(assertion.Path, "."), formatValue(want)),
			Actual:   formatValue(got),
		}
	}
	return nil
}

func assertStoreAbsent(snap state.Snapshot, assertion Assertion) error {
	if got, ok := snap.GetIn(assertion.Path...); ok {
		return &AssertionError{
			Type:     AssertStoreAbsent,
			Expected: fmt.Sprintf("nothing at %s", strings.Join(assertion.Path, ".")),
			Actual:   formatValue(got),
		}
	}
	return nil
}

func assertEventCount(events []analytics.Event, assertion Assertion) error {
	if len(events) != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events", assertion.Count),
			Actual:   fmt.Sprintf("%d events", len(events)),
		}
	}
	return nil
}

// assertEventContains checks that some event matches assertion.Event
// (subset match on the event's JSON form).
func assertEventContains(events []analytics.Event, assertion Assertion) error {
	for _, e := range events {
		actual, err := eventToMap(e)
		if err != nil {
			return err
		}
		if matchSubset(actual, assertion.Event) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event matching %v", assertion.Event),
		Actual:   fmt.Sprintf("%d events, none matching", len(events)),
	}
}

func eventToMap(e analytics.Event) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func assertJournalCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	var (
		n   int
		err error
	)
	switch assertion.Table {
	case "mutations":
		var recs []store.MutationRecord
		recs, err = st.ReadMutations(ctx)
		n = len(recs)
	case "remote_queries":
		var recs []store.RemoteRecord
		recs, err = st.ReadRemoteQueries(ctx)
		n = len(recs)
	case "events":
		var recs []analytics.Event
		recs, err = st.ReadEvents(ctx)
		n = len(recs)
	default:
		return fmt.Errorf("journal_count: unknown table %q", assertion.Table)
	}
	if err != nil {
		return fmt.Errorf("journal_count %s: %w", assertion.Table, err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d rows in %s", assertion.Count, assertion.Table),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

// assertTraceCount checks if the step appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Label() == assertion.Step {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Step),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks if steps appear in the specified order.
// Steps don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Steps) && event.Label() == assertion.Steps[next] {
			next++
		}
	}

	if next < len(assertion.Steps) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("steps in order: %v", assertion.Steps),
			Actual:   fmt.Sprintf("%s not found after %v", assertion.Steps[next], assertion.Steps[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// matchSubset checks if actual contains all expected keys (subset match).
// Nested maps match recursively; extra keys in actual are ignored.
func matchSubset(actual map[string]any, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values for equality.
// Handles nested maps with subset semantics.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	if em, ok := expected.(map[string]any); ok {
		am, ok := actual.(map[string]any)
		return ok && matchSubset(am, em)
	}
	return reflect.DeepEqual(actual, expected)
}
