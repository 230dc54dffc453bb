package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/app"
	"github.com/roach88/viewq/internal/fixture"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/parser"
	"github.com/roach88/viewq/internal/query"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/store"
	"github.com/roach88/viewq/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and pass ids.
type Harness struct {
	store    *store.Store
	parser   *parser.Parser
	recorder *analytics.Recorder
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes the parser's logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Seed the store from the fixture and the inline seed
// 2. Register the application's handlers
// 3. Execute steps in order, checking expect clauses
// 4. Evaluate assertions against the final store, events and journal
//
// A returned error means the scenario could not be set up; failed
// expectations are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	seed, err := seedStore(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	recorder := analytics.NewRecorder()
	reg, err := app.NewRegistry(analytics.Multi(recorder, st))
	if err != nil {
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}

	atom := state.NewAtom(state.NewSnapshot(seed))
	h := &Harness{
		store: st,
		parser: parser.New(reg, atom,
			parser.WithJournal(st),
			parser.WithLogger(cfg.logger),
			parser.WithPassIDGenerator(parser.NewSequenceGenerator("pass")),
		),
		recorder: recorder,
		logger:   cfg.logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	h.finish(ctx, scenario.Assertions, result)
	return result, nil
}

// finish captures the final store and events and evaluates assertions
// against them and the journal.
func (h *Harness) finish(ctx context.Context, assertions []Assertion, result *Result) {
	result.Store = h.parser.Atom().Deref().Data()
	result.Events = h.recorder.Events()

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, assertions, actx) {
		result.AddError(msg)
	}
}

func seedStore(s *Scenario) (ir.Object, error) {
	seed := ir.Object{}
	if s.Fixture != "" {
		loaded, err := fixture.LoadStore(s.FixturePath())
		if err != nil {
			return nil, err
		}
		seed = loaded
	}
	inline, err := fixture.StoreFromYAML(&s.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return state.NewSnapshot(seed).Merge(inline).Data(), nil
}

// executeStep runs one step, appends it to the trace and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	seq := h.parser.Clock().Current() + 1
	event := TraceEvent{Type: step.Kind(), Seq: seq}

	var stepErr error
	switch step.Kind() {
	case StepLocal:
		event.Query = step.Local.ToAny()
		out, err := h.parser.Local(ctx, *step.Local)
		stepErr = err
		if err == nil {
			event.Value = ir.ToAny(out)
			h.checkLocal(i, step.Expect, out, result)
		}
	case StepRemote:
		event.Query = step.Remote.ToAny()
		rq, err := h.parser.Remote(ctx, *step.Remote)
		stepErr = err
		if err == nil {
			event.PassID = rq.PassID
			event.Remote = rq.Query.ToAny()
			event.Roots = rq.Roots.ToAny()
			h.checkRemote(i, step.Expect, rq, result)
		}
	case StepMutation:
		event.Name = step.Mutate
		params, err := mutationParams(step)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: params: %v", i, err))
			result.AddTrace(event)
			return
		}
		event.Params = ir.ToAny(params)
		_, stepErr = h.parser.Transact(ctx, step.Mutate, params)
	}

	if stepErr != nil {
		event.Error = errorCode(stepErr)
	}
	h.checkError(i, step.Expect, stepErr, result)
	result.AddTrace(event)

	h.logger.Info("scenario step completed",
		"step", i,
		"type", event.Type,
		"seq", event.Seq,
		"error", event.Error)
}

func mutationParams(step Step) (ir.Object, error) {
	v, err := fixture.ValueFromYAML(&step.Params)
	if err != nil {
		return nil, err
	}
	switch p := v.(type) {
	case nil, ir.Null:
		return ir.Object{}, nil
	case ir.Object:
		return p, nil
	default:
		return nil, fmt.Errorf("must be a mapping, got %T", v)
	}
}

// errorCode returns the ParseError code of err, or its message.
func errorCode(err error) string {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return err.Error()
}

func (h *Harness) checkError(i int, expect *Expect, err error, result *Result) {
	want := ""
	if expect != nil {
		want = expect.Error
	}
	switch {
	case err == nil && want != "":
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got success", i, want))
	case err != nil && want == "":
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
	case err != nil && errorCode(err) != want && !strings.Contains(err.Error(), want):
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %v", i, want, err))
	}
}

func (h *Harness) checkLocal(i int, expect *Expect, out ir.Object, result *Result) {
	if expect == nil || expect.Value.Kind == 0 {
		return
	}
	v, err := fixture.ValueFromYAML(&expect.Value)
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d].expect.value: %v", i, err))
		return
	}
	want, ok := v.(ir.Object)
	if !ok {
		result.AddError(fmt.Sprintf("steps[%d].expect.value: must be a mapping", i))
		return
	}
	for _, key := range want.SortedKeys() {
		got, present := out[key]
		if !present {
			result.AddError(fmt.Sprintf("steps[%d]: key %s absent from local result", i, key))
			continue
		}
		if !ir.Equal(want[key], got) {
			result.AddError(fmt.Sprintf("steps[%d]: key %s = %s, want %s", i, key, formatValue(got), formatValue(want[key])))
		}
	}
}

func (h *Harness) checkRemote(i int, expect *Expect, rq parser.RemoteQuery, result *Result) {
	if expect == nil {
		return
	}
	if expect.Empty && !rq.Empty() {
		result.AddError(fmt.Sprintf("steps[%d]: expected nothing forwarded, got %s", i, formatQuery(rq.Query)))
	}
	if expect.Query != nil && !query.Equal(*expect.Query, rq.Query) {
		result.AddError(fmt.Sprintf("steps[%d]: forwarded %s, want %s", i, formatQuery(rq.Query), formatQuery(*expect.Query)))
	}
	if expect.Roots != nil && !query.Equal(*expect.Roots, rq.Roots) {
		result.AddError(fmt.Sprintf("steps[%d]: roots %s, want %s", i, formatQuery(rq.Roots), formatQuery(*expect.Roots)))
	}
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalCanonical(ir.ToAny(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func formatQuery(q query.Query) string {
	data, err := ir.MarshalCanonical(q.ToAny())
	if err != nil {
		return fmt.Sprintf("%v", q.ToAny())
	}
	return string(data)
}
