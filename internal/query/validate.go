package query

import "fmt"

// ValidationResult reports suspicious constructs in a query.
//
// A query with warnings still resolves; the warnings point at shapes that
// usually indicate a mistake in the component that wrote the query.
type ValidationResult struct {
	// IsClean is true when no warnings were produced.
	IsClean bool

	// Warnings describes each problem with its path in the query.
	Warnings []string
}

// Validate walks q and reports:
//  1. Empty names - a key with neither a name nor an ident
//  2. Malformed idents - an ident key without table or id
//  3. Duplicate keys - the same key twice at one level
//  4. Empty joins - a join whose sub-query selects nothing
//  5. Nested parameters - a Param wrapping another Param
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateQuery("", q)

	return ValidationResult{
		IsClean:  len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(path string, q Query) {
	seen := make(map[string]bool, len(q))
	for i, e := range q {
		at := fmt.Sprintf("%s[%d]", path, i)
		key, ok := v.validateExpr(at, e)
		if !ok {
			continue
		}
		name := key.String()
		if seen[name] {
			v.addWarning("%s: duplicate key %s", at, name)
		}
		seen[name] = true
	}
}

// validateExpr returns the expression's key when it has one.
func (v *validator) validateExpr(at string, e Expr) (Key, bool) {
	switch expr := e.(type) {
	case Prop:
		v.validateKey(at, expr.Key)
		return expr.Key, true
	case Join:
		v.validateKey(at, expr.Key)
		if len(expr.Query) == 0 {
			v.addWarning("%s: join %s has an empty query", at, expr.Key)
		}
		v.validateQuery(at+"."+expr.Key.String(), expr.Query)
		return expr.Key, true
	case Param:
		if _, nested := expr.Expr.(Param); nested {
			v.addWarning("%s: nested params", at)
		}
		return v.validateExpr(at, expr.Expr)
	case nil:
		v.addWarning("%s: nil expression", at)
	default:
		v.addWarning("%s: unknown expression type %T", at, e)
	}
	return Key{}, false
}

func (v *validator) validateKey(at string, k Key) {
	switch {
	case k.Ident != nil && !k.Ident.Valid():
		v.addWarning("%s: malformed ident %s", at, k.Ident)
	case k.Ident == nil && k.Name == "":
		v.addWarning("%s: empty key", at)
	}
}
