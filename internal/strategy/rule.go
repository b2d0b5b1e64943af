package strategy

import (
	"strings"

	"yupan/internal/indicator"
)

// Composition selects how a rule string combines predicate ids.
type Composition string

const (
	// CompositionExpression parses "+" as AND and "," as OR.
	CompositionExpression Composition = "expression"
	// CompositionFirstMatch treats the rule as an ordered id list.
	CompositionFirstMatch Composition = "first_match"
)

// Rule is a compiled buy or sell rule bound to its registry. It is parsed
// once per simulation.
type Rule struct {
	source string
	reg    *Registry
	expr   Expr
	ids    []string
}

// Compile binds src to reg under the given composition.
func Compile(src string, reg *Registry, comp Composition) *Rule {
	r := &Rule{source: src, reg: reg}
	if comp == CompositionFirstMatch {
		for _, id := range strings.Split(src, ",") {
			if id = strings.TrimSpace(id); id != "" {
				r.ids = append(r.ids, id)
			}
		}
		return r
	}
	r.expr = Parse(src)
	return r
}

// Eval evaluates the rule against one row.
func (r *Rule) Eval(row *indicator.Row, st *RunState) (bool, string) {
	if r == nil {
		return false, ""
	}
	if r.expr == nil {
		return FirstMatch(r.ids, row, st, r.reg)
	}
	return Evaluate(r.expr, row, st, r.reg)
}

// String returns the source text.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.source
}
