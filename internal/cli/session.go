package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/app"
	"github.com/roach88/viewq/internal/fixture"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/parser"
	"github.com/roach88/viewq/internal/state"
	"github.com/roach88/viewq/internal/store"
)

// SessionOptions selects where a command's store comes from.
type SessionOptions struct {
	StorePath   string // fixture file with a store
	JournalPath string // overrides journal.path from config
}

// session is one parser wired to the application's handlers, optionally
// journaling to SQLite.
type session struct {
	parser  *parser.Parser
	journal *store.Store
	resumed bool
}

// openSession builds the parser a command runs against.
//
// The initial store is the fixture at StorePath when given, otherwise the
// snapshot of the journal's last mutation, otherwise empty. With a journal
// the clock resumes after its last seq.
func openSession(ctx context.Context, opts *RootOptions, so SessionOptions) (*session, error) {
	logger := opts.logger()
	s := &session{}

	journalPath := opts.Config.Journal.Path
	if so.JournalPath != "" {
		journalPath = so.JournalPath
	}

	data := ir.Object{}
	clock := parser.NewClock()
	if journalPath != "" {
		st, err := store.Open(journalPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		s.journal = st

		latest, ok, err := st.LatestSnapshot(ctx)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		lastSeq, err := st.LastSeq(ctx)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		clock = parser.NewClockAt(lastSeq)
		if ok {
			data = latest.Snapshot
			s.resumed = true
			logger.Debug("resumed from journal",
				"path", journalPath,
				"last_mutation", latest.LastMutation,
				"last_seq", lastSeq)
		}
	}

	if so.StorePath != "" {
		loaded, err := fixture.LoadStore(so.StorePath)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load store", err)
		}
		data = loaded
		s.resumed = false
	}

	sinks := []analytics.Sink{analytics.LogSink{Logger: logger}}
	if s.journal != nil {
		sinks = append(sinks, s.journal)
	}
	reg, err := app.NewRegistry(analytics.Multi(sinks...))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}

	popts := []parser.Option{
		parser.WithLogger(logger),
		parser.WithClock(clock),
	}
	if s.journal != nil {
		popts = append(popts, parser.WithJournal(s.journal))
	}
	if prefix := opts.Config.Passes.IDPrefix; prefix != "" {
		popts = append(popts, parser.WithPassIDGenerator(parser.NewSequenceGenerator(prefix)))
	}
	s.parser = parser.New(reg, state.NewAtom(state.NewSnapshot(data)), popts...)
	return s, nil
}

// Close releases the journal, if any.
func (s *session) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// reportParseError writes err through f and returns the matching exit
// error. A ParseError keeps its code; anything else is E_COMMAND.
func reportParseError(f *OutputFormatter, message string, err error) error {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		details := map[string]string{"key": pe.Key}
		for k, v := range pe.Details {
			details[k] = v
		}
		if outErr := f.Error(string(pe.Code), pe.Message, details); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, message, err)
	}
	if outErr := f.Error("E_COMMAND", err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, message, err)
}
