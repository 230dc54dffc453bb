// Package fixture loads stores and queries from files.
//
// A fixture file is a mapping with an optional store and an optional
// query:
//
//	store:
//	  app/route: org
//	  app/route-data:
//	    organization: {$ident: [organizationByVcsTypeAndName, {vcsType: github, name: acme}]}
//	query:
//	  - app/route
//	  - app/route-data: [{organization: [name]}]
//
// The format follows the file extension: .cue, .yaml, .yml or .json.
// A query file may also be a bare sequence of expressions.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
)

// Error codes.
const (
	ErrCodeNotFound    = "FIXTURE_NOT_FOUND"
	ErrCodeFormat      = "FIXTURE_FORMAT"
	ErrCodeBuildFailed = "FIXTURE_BUILD_FAILED"
	ErrCodeInvalid     = "FIXTURE_INVALID"
)

// LoadError reports a fixture that could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

// Fixture is the decoded content of one file.
type Fixture struct {
	Store    ir.Object
	Query    query.Query
	HasStore bool
	HasQuery bool
}

// Load reads the fixture at path.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	return Decode(path, data)
}

// Decode decodes data in the format implied by name's extension.
func Decode(name string, data []byte) (Fixture, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		return decodeCUE(name, data)
	case ".yaml", ".yml", ".json":
		return decodeYAML(name, data)
	default:
		return Fixture{}, &LoadError{Code: ErrCodeFormat, Path: name, Message: fmt.Sprintf("unsupported extension %q", ext)}
	}
}

// LoadStore reads the store of the fixture at path. A file without a store
// is an error.
func LoadStore(path string) (ir.Object, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	if !f.HasStore {
		return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: "no store in fixture"}
	}
	return f.Store, nil
}

// LoadQuery reads the query of the fixture at path. A file without a query
// is an error.
func LoadQuery(path string) (query.Query, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	if !f.HasQuery {
		return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: "no query in fixture"}
	}
	return f.Query, nil
}

func decodeYAML(name string, data []byte) (Fixture, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Fixture{}, &LoadError{Code: ErrCodeFormat, Path: name, Message: err.Error()}
	}
	if doc.Kind == 0 {
		return Fixture{}, nil
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		root = doc.Content[0]
	}

	var f Fixture
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&f.Query); err != nil {
			return Fixture{}, invalid(name, "query", err)
		}
		f.HasQuery = true
		return f, nil
	case yaml.MappingNode:
	default:
		return Fixture{}, &LoadError{Code: ErrCodeInvalid, Path: name, Message: fmt.Sprintf("line %d: fixture must be a mapping or a query sequence", root.Line)}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "store":
			store, err := StoreFromYAML(val)
			if err != nil {
				return Fixture{}, invalid(name, "store", err)
			}
			f.Store, f.HasStore = store, true
		case "query":
			if err := val.Decode(&f.Query); err != nil {
				return Fixture{}, invalid(name, "query", err)
			}
			f.HasQuery = true
		default:
			return Fixture{}, &LoadError{Code: ErrCodeInvalid, Path: name, Message: fmt.Sprintf("line %d: unknown field %q", key.Line, key.Value)}
		}
	}
	return f, nil
}

func decodeCUE(name string, data []byte) (Fixture, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return Fixture{}, &LoadError{Code: ErrCodeBuildFailed, Path: name, Message: err.Error()}
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Fixture{}, &LoadError{Code: ErrCodeBuildFailed, Path: name, Message: err.Error(), Pos: v.Pos()}
	}

	var f Fixture
	if sv := v.LookupPath(cue.ParsePath("store")); sv.Exists() {
		data, err := sv.MarshalJSON()
		if err != nil {
			return Fixture{}, &LoadError{Code: ErrCodeBuildFailed, Path: name, Message: err.Error(), Pos: sv.Pos()}
		}
		val, err := ir.UnmarshalValue(data)
		if err != nil {
			return Fixture{}, cueInvalid(name, "store", err, sv.Pos())
		}
		store, ok := val.(ir.Object)
		if !ok {
			return Fixture{}, cueInvalid(name, "store", fmt.Errorf("must be a mapping, got %T", val), sv.Pos())
		}
		f.Store, f.HasStore = store, true
	}
	if qv := v.LookupPath(cue.ParsePath("query")); qv.Exists() {
		data, err := qv.MarshalJSON()
		if err != nil {
			return Fixture{}, &LoadError{Code: ErrCodeBuildFailed, Path: name, Message: err.Error(), Pos: qv.Pos()}
		}
		q, err := query.Parse(data)
		if err != nil {
			return Fixture{}, cueInvalid(name, "query", err, qv.Pos())
		}
		f.Query, f.HasQuery = q, true
	}
	return f, nil
}

// ValueFromYAML decodes a YAML node into a Value, accepting the same forms
// as store fixtures. A zero node decodes to nil.
func ValueFromYAML(node *yaml.Node) (ir.Value, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	return ir.FromAny(stringKeys(raw))
}

// StoreFromYAML decodes a YAML mapping node into a store. A zero or null
// node decodes to an empty store.
func StoreFromYAML(node *yaml.Node) (ir.Object, error) {
	if node == nil || node.Kind == 0 {
		return ir.Object{}, nil
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	return storeFromAny(raw)
}

func storeFromAny(raw any) (ir.Object, error) {
	if raw == nil {
		return ir.Object{}, nil
	}
	val, err := ir.FromAny(stringKeys(raw))
	if err != nil {
		return nil, err
	}
	store, ok := val.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("must be a mapping, got %T", val)
	}
	return store, nil
}

func invalid(name, field string, err error) *LoadError {
	return &LoadError{Code: ErrCodeInvalid, Path: name, Message: fmt.Sprintf("%s: %v", field, err)}
}

func cueInvalid(name, field string, err error, pos token.Pos) *LoadError {
	e := invalid(name, field, err)
	e.Pos = pos
	return e
}

// stringKeys rewrites the map[any]any yaml.v3 produces for mappings with
// non-string keys, such as entity tables keyed by integer ids.
func stringKeys(raw any) any {
	switch v := raw.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[fmt.Sprint(k)] = stringKeys(elem)
		}
		return out
	case map[string]any:
		for k, elem := range v {
			v[k] = stringKeys(elem)
		}
		return v
	case []any:
		for i, elem := range v {
			v[i] = stringKeys(elem)
		}
		return v
	default:
		return raw
	}
}
