package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
)

// marshalObject converts an Object to canonical JSON TEXT for storage.
// A nil object is stored as {}.
func marshalObject(obj ir.Object) (string, error) {
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT back into an Object.
// Integers go through json.Number, so values above 2^53 survive.
func unmarshalObject(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}

// marshalQuery converts a query to canonical JSON TEXT in its wire form.
func marshalQuery(q query.Query) (string, error) {
	data, err := ir.MarshalCanonical(q.ToAny())
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}
	return string(data), nil
}

// unmarshalQuery parses a stored query.
func unmarshalQuery(data string) (query.Query, error) {
	q, err := query.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal query: %w", err)
	}
	return q, nil
}

// marshalEvent converts an event to JSON TEXT.
// HTML escaping is disabled to match the canonical columns.
func marshalEvent(e analytics.Event) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalEvent parses a stored event.
func unmarshalEvent(data string) (analytics.Event, error) {
	var e analytics.Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return analytics.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}
