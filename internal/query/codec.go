package query

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewq/internal/ir"
)

// Long-form field names.
const (
	fieldProp   = "prop"
	fieldJoin   = "join"
	fieldParams = "params"
	fieldQuery  = "query"
	identField  = "$ident"
)

// Parse decodes a query from YAML or JSON (JSON being a subset of YAML).
// The document must be a sequence of expressions:
//
//	- login                              # prop
//	- current-user: [login, email]       # join
//	- {prop: builds, params: {limit: 2}} # long form
func Parse(data []byte) (Query, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if doc.Kind == 0 {
		return Query{}, nil
	}
	node := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		node = doc.Content[0]
	}
	return decodeQuery(node)
}

// UnmarshalYAML lets a Query be embedded directly in YAML documents such as
// scenario files.
func (q *Query) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := decodeQuery(node)
	if err != nil {
		return err
	}
	*q = decoded
	return nil
}

// MarshalYAML emits the same forms Parse accepts.
func (q Query) MarshalYAML() (any, error) {
	return q.ToAny(), nil
}

// UnmarshalJSON decodes the JSON query form.
func (q *Query) UnmarshalJSON(data []byte) error {
	decoded, err := Parse(data)
	if err != nil {
		return err
	}
	*q = decoded
	return nil
}

// MarshalJSON emits the same forms Parse accepts.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.ToAny())
}

func decodeQuery(node *yaml.Node) (Query, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: query must be a sequence", node.Line)
	}
	q := make(Query, 0, len(node.Content))
	for i, item := range node.Content {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, fmt.Errorf("query[%d]: %w", i, err)
		}
		q = append(q, e)
	}
	return q, nil
}

func decodeExpr(node *yaml.Node) (Expr, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!str" {
			return nil, fmt.Errorf("line %d: prop key must be a string, got %s", node.Line, node.Tag)
		}
		return Prop{Key: NameKey(node.Value)}, nil
	case yaml.MappingNode:
		if hasField(node, fieldProp) || hasField(node, fieldJoin) {
			return decodeLongForm(node)
		}
		if len(node.Content) != 2 {
			return nil, fmt.Errorf("line %d: join must have exactly one key", node.Line)
		}
		k, v := node.Content[0], node.Content[1]
		if k.Value == identField {
			key, err := decodeKey(node)
			if err != nil {
				return nil, err
			}
			return Prop{Key: key}, nil
		}
		sub, err := decodeQuery(v)
		if err != nil {
			return nil, fmt.Errorf("join %q: %w", k.Value, err)
		}
		return Join{Key: NameKey(k.Value), Query: sub}, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported query expression", node.Line)
	}
}

func decodeLongForm(node *yaml.Node) (Expr, error) {
	var (
		expr     Expr
		key      Key
		isJoin   bool
		sub      Query
		hasSub   bool
		params   ir.Object
		keyCount int
	)
	for i := 0; i < len(node.Content); i += 2 {
		name, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch name {
		case fieldProp, fieldJoin:
			keyCount++
			isJoin = name == fieldJoin
			key, err = decodeKey(val)
		case fieldParams:
			params, err = decodeParams(val)
		case fieldQuery:
			hasSub = true
			sub, err = decodeQuery(val)
		default:
			err = fmt.Errorf("line %d: unknown field %q", node.Content[i].Line, name)
		}
		if err != nil {
			return nil, err
		}
	}
	if keyCount != 1 {
		return nil, fmt.Errorf("line %d: exactly one of prop or join is required", node.Line)
	}
	switch {
	case isJoin:
		if sub == nil {
			sub = Query{}
		}
		expr = Join{Key: key, Query: sub}
	case hasSub:
		return nil, fmt.Errorf("line %d: prop %s cannot carry a query", node.Line, key)
	default:
		expr = Prop{Key: key}
	}
	if params != nil {
		expr = Param{Expr: expr, Params: params}
	}
	return expr, nil
}

func decodeKey(node *yaml.Node) (Key, error) {
	if node.Kind == yaml.ScalarNode {
		if node.Value == "" {
			return Key{}, fmt.Errorf("line %d: empty key", node.Line)
		}
		return NameKey(node.Value), nil
	}
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return Key{}, fmt.Errorf("line %d: key: %w", node.Line, err)
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return Key{}, fmt.Errorf("line %d: key: %w", node.Line, err)
	}
	id, ok := v.(ir.Ident)
	if !ok {
		return Key{}, fmt.Errorf("line %d: key must be a name or {%s: [table, id]}", node.Line, identField)
	}
	return IdentKey(id), nil
}

func decodeParams(node *yaml.Node) (ir.Object, error) {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("line %d: params must be a mapping: %w", node.Line, err)
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("line %d: params: %w", node.Line, err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("line %d: params must be a mapping", node.Line)
	}
	return obj, nil
}

func hasField(node *yaml.Node, name string) bool {
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == name {
			return true
		}
	}
	return false
}

// ToAny returns the plain-data form of q (strings, []any, map[string]any),
// suitable for canonical hashing and for YAML/JSON output.
func (q Query) ToAny() []any {
	out := make([]any, 0, len(q))
	for _, e := range q {
		out = append(out, exprToAny(e))
	}
	return out
}

func exprToAny(e Expr) any {
	switch expr := e.(type) {
	case Prop:
		if expr.Key.IsIdent() {
			return map[string]any{fieldProp: keyToAny(expr.Key)}
		}
		return expr.Key.Name
	case Join:
		if expr.Key.IsIdent() {
			return map[string]any{fieldJoin: keyToAny(expr.Key), fieldQuery: expr.Query.ToAny()}
		}
		return map[string]any{expr.Key.Name: expr.Query.ToAny()}
	case Param:
		out := map[string]any{fieldParams: ir.ToAny(expr.Params)}
		switch inner := expr.Expr.(type) {
		case Prop:
			out[fieldProp] = keyToAny(inner.Key)
		case Join:
			out[fieldJoin] = keyToAny(inner.Key)
			out[fieldQuery] = inner.Query.ToAny()
		}
		return out
	default:
		return nil
	}
}

func keyToAny(k Key) any {
	if k.Ident != nil {
		return ir.ToAny(*k.Ident)
	}
	return k.Name
}

// MarshalJSON renders the node for debugging and CLI output.
func (n Node) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"type": n.Type.String(),
	}
	if n.Type != NodeRoot {
		out["key"] = keyToAny(n.Key)
		out["dispatch_key"] = keyToAny(n.DispatchKey)
	}
	if n.Params != nil {
		out["params"] = ir.ToAny(n.Params)
	}
	if n.QueryRoot {
		out["query_root"] = true
	}
	if n.Type == NodeJoin || n.Type == NodeRoot {
		out["children"] = n.Children
		out["query"] = n.Query.ToAny()
	}
	return json.Marshal(out)
}
