package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// identTag is the single key of an Ident's JSON form: {"$ident": [table, id]}.
const identTag = "$ident"

// Ident identifies one normalized entity: the table (entity kind) it lives
// in and its id within that table. The id may be any Value; composite
// natural keys are Objects.
type Ident struct {
	Table string
	ID    Value
}

func (Ident) irValue() {}

// NewIdent creates an Ident.
func NewIdent(table string, id Value) Ident {
	return Ident{Table: table, ID: id}
}

// IsIdent reports whether v is an Ident.
func IsIdent(v Value) bool {
	_, ok := v.(Ident)
	return ok
}

// Valid reports whether the ident is well formed: a non-empty table and a
// present, non-null id.
func (id Ident) Valid() bool {
	if id.Table == "" || id.ID == nil {
		return false
	}
	_, isNull := id.ID.(Null)
	return !isNull
}

// Key returns the lookup key of the entity inside its table.
// String ids are used verbatim, Int ids in decimal form, and anything else
// as canonical JSON.
func (id Ident) Key() (string, error) {
	switch v := id.ID.(type) {
	case String:
		return string(v), nil
	case Int:
		return strconv.FormatInt(int64(v), 10), nil
	case nil:
		return "", fmt.Errorf("ident %q has no id", id.Table)
	default:
		data, err := MarshalCanonical(v)
		if err != nil {
			return "", fmt.Errorf("ident %q key: %w", id.Table, err)
		}
		return string(data), nil
	}
}

// String renders the ident as [table id] for logs and error messages.
func (id Ident) String() string {
	data, err := MarshalValue(id.ID)
	if err != nil {
		return fmt.Sprintf("[%s %v]", id.Table, id.ID)
	}
	return fmt.Sprintf("[%s %s]", id.Table, data)
}

// MarshalJSON encodes the ident as {"$ident": [table, id]}.
func (id Ident) MarshalJSON() ([]byte, error) {
	idBytes, err := MarshalValue(id.ID)
	if err != nil {
		return nil, fmt.Errorf("ident id: %w", err)
	}
	tableBytes, err := json.Marshal(id.Table)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"` + identTag + `":[`)
	buf.Write(tableBytes)
	buf.WriteByte(',')
	buf.Write(idBytes)
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the {"$ident": [table, id]} form.
func (id *Ident) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(Ident)
	if !ok {
		return fmt.Errorf("expected ident, got %T", v)
	}
	*id = decoded
	return nil
}

// identFromAny decodes the payload stored under the $ident tag.
func identFromAny(raw any) (Ident, error) {
	pair, ok := raw.([]any)
	if !ok || len(pair) != 2 {
		return Ident{}, fmt.Errorf("%s must be a [table, id] pair", identTag)
	}
	table, ok := pair[0].(string)
	if !ok || table == "" {
		return Ident{}, fmt.Errorf("%s table must be a non-empty string", identTag)
	}
	idVal, err := FromAny(pair[1])
	if err != nil {
		return Ident{}, fmt.Errorf("%s id: %w", identTag, err)
	}
	return Ident{Table: table, ID: idVal}, nil
}
