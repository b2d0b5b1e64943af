package strategy

import (
	"log/slog"
	"strings"

	"yupan/internal/indicator"
)

// AndSeparator joins the descriptions of AND terms that hit.
const AndSeparator = " AND "

// Expr is a parsed strategy expression: a Leaf id, an And of terms or an Or
// of alternatives.
type Expr interface {
	eval(r *indicator.Row, st *RunState, reg *Registry) (bool, string)
	String() string
}

// Leaf names one predicate in a registry.
type Leaf string

// And hits when every term hits. All terms are evaluated, so predicates with
// side effects run even after an earlier term missed.
type And []Expr

// Or hits on the first alternative that hits, left to right.
type Or []Expr

func (l Leaf) String() string { return string(l) }

func (a And) String() string { return join(a, "+") }

func (o Or) String() string { return join(o, ",") }

func join(xs []Expr, sep string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = x.String()
	}
	return strings.Join(parts, sep)
}

func (l Leaf) eval(r *indicator.Row, st *RunState, reg *Registry) (bool, string) {
	p, ok := reg.Get(string(l))
	if !ok {
		slog.Debug("unknown strategy id", "id", string(l), "registry", reg.Name())
		return false, ""
	}
	return p.Evaluate(r, st)
}

func (a And) eval(r *indicator.Row, st *RunState, reg *Registry) (bool, string) {
	all := true
	var descs []string
	for _, x := range a {
		hit, desc := x.eval(r, st, reg)
		if hit {
			descs = append(descs, desc)
		} else {
			all = false
		}
	}
	return all, strings.Join(descs, AndSeparator)
}

func (o Or) eval(r *indicator.Row, st *RunState, reg *Registry) (bool, string) {
	for _, x := range o {
		if hit, desc := x.eval(r, st, reg); hit {
			return true, desc
		}
	}
	return false, ""
}

// Parse turns "1+2,3" into Or{And{1,2},3}. "," separates OR alternatives and
// "+" separates AND terms, so AND binds tighter. There is no grouping
// syntax. Single-element groups collapse to their only child.
func Parse(expr string) Expr {
	expr = strings.TrimSpace(expr)
	if strings.Contains(expr, ",") {
		return group(strings.Split(expr, ","), func(xs []Expr) Expr { return Or(xs) })
	}
	if strings.Contains(expr, "+") {
		return group(strings.Split(expr, "+"), func(xs []Expr) Expr { return And(xs) })
	}
	return Leaf(expr)
}

func group(parts []string, wrap func([]Expr) Expr) Expr {
	xs := make([]Expr, len(parts))
	for i, p := range parts {
		xs[i] = Parse(p)
	}
	if len(xs) == 1 {
		return xs[0]
	}
	return wrap(xs)
}

// Evaluate runs a parsed expression against one row.
func Evaluate(x Expr, r *indicator.Row, st *RunState, reg *Registry) (bool, string) {
	if x == nil {
		return false, ""
	}
	return x.eval(r, st, reg)
}

// FirstMatch evaluates ids in order and returns the first hit.
func FirstMatch(ids []string, r *indicator.Row, st *RunState, reg *Registry) (bool, string) {
	for _, id := range ids {
		if hit, desc := Leaf(strings.TrimSpace(id)).eval(r, st, reg); hit {
			return true, desc
		}
	}
	return false, ""
}
