// Package strategy defines buy and sell predicates, the immutable registries
// that name them, and the AND/OR expression language used to combine them.
package strategy

import (
	"sort"

	"yupan/internal/indicator"
)

// Predicate is a named trading rule evaluated against one enriched bar and
// the simulation's run state. It returns whether the rule hit and a
// human-readable description. Predicates may write to st.Flags but never
// modify the row.
type Predicate interface {
	Evaluate(r *indicator.Row, st *RunState) (bool, string)
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(r *indicator.Row, st *RunState) (bool, string)

// Evaluate calls f.
func (f PredicateFunc) Evaluate(r *indicator.Row, st *RunState) (bool, string) {
	return f(r, st)
}

// Registry maps short identifiers ("1", "2", "a") to predicates. It is
// immutable once built and safe for concurrent use.
type Registry struct {
	name       string
	predicates map[string]Predicate
}

// NewRegistry copies preds into a new Registry. name is used in log
// messages only.
func NewRegistry(name string, preds map[string]Predicate) *Registry {
	m := make(map[string]Predicate, len(preds))
	for id, p := range preds {
		m[id] = p
	}
	return &Registry{name: name, predicates: m}
}

// Name returns the registry's label.
func (r *Registry) Name() string { return r.name }

// Get retrieves a predicate by id. The second return value indicates whether
// the id was found.
func (r *Registry) Get(id string) (Predicate, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.predicates[id]
	return p, ok
}

// List returns the sorted predicate ids.
func (r *Registry) List() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.predicates))
	for id := range r.predicates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
