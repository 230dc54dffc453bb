// Package query provides the declarative query forms resolved by the parser.
//
// A query exists in two synchronized forms:
//
//	Query (serialized)   ordered []Expr of Prop, Join and Param
//	Node  (AST)          tree with Type, Key, DispatchKey, Params, Children
//
// FromQuery builds the AST, ToQuery serializes it back. For join nodes the
// serialized sub-query is carried on Node.Query and is NOT re-derived from
// Children automatically:
//
//	ToExpr(join) == Join{Key, join.Query}   // uses the stored form
//	ToQuery(root) == [ToExpr(child)...]     // root walks its children
//
// Any code that edits Children must return Recalculate(node) so the stored
// form follows the edit. WithChildren, FilterChildren and MapChildren do
// this for you; prefer them over assigning Children by hand. A stale
// Node.Query raises no error, it silently forwards the old sub-query.
//
// SEALED INTERFACES:
//
// Expr is sealed with the marker method pattern, so type switches over
// Prop, Join and Param are exhaustive:
//
//	switch e := expr.(type) {
//	case Prop:
//	case Join:
//	case Param:
//	}
//
// WIRE FORM:
//
// Queries decode from YAML or JSON (see Parse):
//
//	- login                              # prop
//	- current-user: [login, email]       # join
//	- prop: builds                       # parameterized prop
//	  params: {limit: 20}
//	- join: {$ident: [widgetById, 5]}    # ident-keyed join
//	  query: [title]
package query
