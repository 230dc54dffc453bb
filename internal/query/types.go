package query

import "github.com/roach88/viewq/internal/ir"

// Key is a dispatch key: either a plain name ("app/current-user") or an
// Ident anchoring the query at one normalized entity.
type Key struct {
	Name  string
	Ident *ir.Ident
}

// NameKey creates a plain-name key.
func NameKey(name string) Key {
	return Key{Name: name}
}

// IdentKey creates an ident key.
func IdentKey(id ir.Ident) Key {
	return Key{Ident: &id}
}

// IsIdent reports whether the key is an ident.
func (k Key) IsIdent() bool {
	return k.Ident != nil
}

// Dispatch returns the registry name used to pick a handler for the key:
// the name itself, or the ident's table.
func (k Key) Dispatch() string {
	if k.Ident != nil {
		return k.Ident.Table
	}
	return k.Name
}

// String renders the key for logs, result maps and error messages.
func (k Key) String() string {
	if k.Ident != nil {
		return k.Ident.String()
	}
	return k.Name
}

// Equal reports whether two keys are the same name or the same ident.
func (k Key) Equal(o Key) bool {
	if k.IsIdent() != o.IsIdent() {
		return false
	}
	if k.Ident != nil {
		return ir.Equal(*k.Ident, *o.Ident)
	}
	return k.Name == o.Name
}

// Expr is one element of a serialized query.
//
// This is a sealed interface - only Prop, Join and Param implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Query is the serialized form: an ordered sequence of expressions.
type Query []Expr

// Prop reads one attribute.
//
//	login
type Prop struct {
	Key Key
}

func (Prop) exprNode() {}

// Join reads a key and shapes its value with a sub-query.
//
//	{current-user: [login, email]}
type Join struct {
	Key   Key
	Query Query
}

func (Join) exprNode() {}

// Param attaches parameters to a Prop or Join.
//
//	{prop: builds, params: {limit: 20}}
type Param struct {
	Expr   Expr
	Params ir.Object
}

func (Param) exprNode() {}

// NodeType distinguishes AST node kinds.
type NodeType int

const (
	// NodeRoot is the synthetic root returned by FromQuery.
	NodeRoot NodeType = iota + 1
	// NodeProp is an attribute read.
	NodeProp
	// NodeJoin is a read with a sub-query.
	NodeJoin
)

// String returns the wire name of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeRoot:
		return "root"
	case NodeProp:
		return "prop"
	case NodeJoin:
		return "join"
	default:
		return "unknown"
	}
}

// Node is the AST form of a query element.
//
// INVARIANT: for NodeJoin and NodeRoot, Query is the serialized form of
// Children. Code editing Children must return Recalculate(node).
type Node struct {
	Type        NodeType
	Key         Key
	DispatchKey Key
	Params      ir.Object // nil when the expression carried no params
	Children    []Node    // NodeJoin and NodeRoot only
	QueryRoot   bool      // resolve as an independent top-level query
	Query       Query     // serialized Children; NodeJoin and NodeRoot only
}

// Child returns the first child whose key equals k.
func (n Node) Child(k Key) (Node, bool) {
	for _, c := range n.Children {
		if c.Key.Equal(k) {
			return c, true
		}
	}
	return Node{}, false
}
