// Package analytics defines the analytics collaborator the mutation
// handlers emit events to.
package analytics

import (
	"context"
	"log/slog"
	"sync"
)

// Event is one analytics record.
type Event struct {
	EventType       string     `json:"eventType" yaml:"eventType"`
	NavigationPoint string     `json:"navigationPoint" yaml:"navigationPoint"`
	Subpage         string     `json:"subpage,omitempty" yaml:"subpage,omitempty"`
	Properties      Properties `json:"properties" yaml:"properties"`
}

// Properties carries the event's context. Empty fields are omitted.
type Properties struct {
	User string `json:"user,omitempty" yaml:"user,omitempty"`
	View string `json:"view,omitempty" yaml:"view,omitempty"`
	Org  string `json:"org,omitempty" yaml:"org,omitempty"`
}

// Sink receives events synchronously from inside a mutation action.
type Sink interface {
	Track(ctx context.Context, e Event) error
}

// Recorder is an in-memory Sink that keeps every event in order.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Track records e.
func (r *Recorder) Track(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

// Track logs e at info level.
func (s LogSink) Track(ctx context.Context, e Event) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "analytics event",
		"event_type", e.EventType,
		"navigation_point", e.NavigationPoint,
		"subpage", e.Subpage,
		slog.Group("properties",
			"user", e.Properties.User,
			"view", e.Properties.View,
			"org", e.Properties.Org))
	return nil
}

// Multi fans each event out to every sink in order, stopping at the first
// error.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Track(ctx context.Context, e Event) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Track(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
