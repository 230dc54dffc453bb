package query

import (
	"slices"

	"github.com/roach88/viewq/internal/ir"
)

// FromQuery builds the AST of q. The result is a NodeRoot whose children
// are the top-level expressions in query order.
func FromQuery(q Query) Node {
	root := Node{
		Type:     NodeRoot,
		Children: make([]Node, 0, len(q)),
	}
	for _, e := range q {
		root.Children = append(root.Children, exprToNode(e))
	}
	return Recalculate(root)
}

// FromExpr builds the AST node of a single expression.
func FromExpr(e Expr) Node {
	return exprToNode(e)
}

func exprToNode(e Expr) Node {
	switch expr := e.(type) {
	case Prop:
		return Node{Type: NodeProp, Key: expr.Key, DispatchKey: expr.Key}
	case Join:
		n := Node{
			Type:        NodeJoin,
			Key:         expr.Key,
			DispatchKey: expr.Key,
			Children:    make([]Node, 0, len(expr.Query)),
		}
		for _, sub := range expr.Query {
			n.Children = append(n.Children, exprToNode(sub))
		}
		return Recalculate(n)
	case Param:
		n := exprToNode(expr.Expr)
		n.Params = expr.Params
		return n
	default:
		return Node{}
	}
}

// ToQuery serializes n. A root serializes to its children in order,
// re-derived on every call; any other node serializes to a one-element
// query holding ToExpr(n).
func ToQuery(n Node) Query {
	if n.Type == NodeRoot {
		return childrenQuery(n.Children)
	}
	return Query{ToExpr(n)}
}

// ToExpr serializes a prop or join node. A join serializes from its stored
// Query, not from Children; see Recalculate. ToExpr of a root returns nil.
func ToExpr(n Node) Expr {
	var e Expr
	switch n.Type {
	case NodeProp:
		e = Prop{Key: n.Key}
	case NodeJoin:
		e = Join{Key: n.Key, Query: slices.Clone(n.Query)}
	default:
		return nil
	}
	if n.Params != nil {
		e = Param{Expr: e, Params: n.Params}
	}
	return e
}

// Recalculate returns n with Query re-derived from its current Children.
// Only n's own level is rebuilt; children are expected to be consistent.
func Recalculate(n Node) Node {
	if n.Type != NodeJoin && n.Type != NodeRoot {
		return n
	}
	n.Query = childrenQuery(n.Children)
	return n
}

func childrenQuery(children []Node) Query {
	q := make(Query, 0, len(children))
	for _, c := range children {
		if e := ToExpr(c); e != nil {
			q = append(q, e)
		}
	}
	return q
}

// WithChildren returns n with its children replaced.
func WithChildren(n Node, children []Node) Node {
	n.Children = slices.Clone(children)
	return Recalculate(n)
}

// FilterChildren returns n keeping only the children for which keep
// reports true.
func FilterChildren(n Node, keep func(Node) bool) Node {
	kept := make([]Node, 0, len(n.Children))
	for _, c := range n.Children {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	n.Children = kept
	return Recalculate(n)
}

// MapChildren returns n with each child replaced by fn's result. A child
// for which fn returns false is dropped. The first error aborts.
func MapChildren(n Node, fn func(Node) (Node, bool, error)) (Node, error) {
	mapped := make([]Node, 0, len(n.Children))
	for _, c := range n.Children {
		out, keep, err := fn(c)
		if err != nil {
			return Node{}, err
		}
		if keep {
			mapped = append(mapped, out)
		}
	}
	n.Children = mapped
	return Recalculate(n), nil
}

// ProcessRoots rewrites the query of root so query roots become top-level
// expressions. Each top-level child whose subtree holds nodes marked
// QueryRoot is replaced by those nodes, in depth-first order; a child
// without any is kept as it is.
func ProcessRoots(root Node) Query {
	out := make(Query, 0, len(root.Children))
	for _, c := range root.Children {
		var lifted []Node
		collectRoots([]Node{c}, &lifted)
		if len(lifted) == 0 {
			out = append(out, ToExpr(c))
			continue
		}
		for _, n := range lifted {
			out = append(out, ToExpr(n))
		}
	}
	return out
}

func collectRoots(children []Node, acc *[]Node) {
	for _, c := range children {
		if c.QueryRoot {
			*acc = append(*acc, c)
			continue
		}
		collectRoots(c.Children, acc)
	}
}

// Equal reports whether two serialized queries are identical, including
// expression order and parameters.
func Equal(a, b Query) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !exprEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func exprEqual(a, b Expr) bool {
	switch av := a.(type) {
	case Prop:
		bv, ok := b.(Prop)
		return ok && av.Key.Equal(bv.Key)
	case Join:
		bv, ok := b.(Join)
		return ok && av.Key.Equal(bv.Key) && Equal(av.Query, bv.Query)
	case Param:
		bv, ok := b.(Param)
		return ok && exprEqual(av.Expr, bv.Expr) && ir.Equal(av.Params, bv.Params)
	default:
		return a == nil && b == nil
	}
}
