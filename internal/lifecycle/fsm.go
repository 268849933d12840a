// Package lifecycle enforces allowed status transitions for stateful
// entities. Each entity kind constructs one Validator from its transition
// graph; the decision functions are pure and shared by every domain.
package lifecycle

import "github.com/meridian-erp/meridian-erp/internal/shared"

// Validator holds a directed graph of allowed status transitions.
type Validator struct {
	graph map[string][]string
}

// NewValidator constructs a Validator from a current -> allowed targets map.
// Statuses absent from the map are terminal.
func NewValidator(graph map[string][]string) *Validator {
	copied := make(map[string][]string, len(graph))
	for current, targets := range graph {
		copied[current] = append([]string(nil), targets...)
	}
	return &Validator{graph: copied}
}

// CanTransition reports whether current may move to target.
func (v *Validator) CanTransition(current, target string) bool {
	for _, allowed := range v.graph[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AssertCanTransition returns an InvalidTransitionError carrying both states
// when target is not reachable from current.
func (v *Validator) AssertCanTransition(current, target string) error {
	if !v.CanTransition(current, target) {
		return &shared.InvalidTransitionError{Current: current, Target: target}
	}
	return nil
}

// Statuses returns every status mentioned in the graph, sources first.
func (v *Validator) Statuses() []string {
	seen := make(map[string]struct{})
	var statuses []string
	add := func(s string) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			statuses = append(statuses, s)
		}
	}
	for current := range v.graph {
		add(current)
	}
	for _, targets := range v.graph {
		for _, t := range targets {
			add(t)
		}
	}
	return statuses
}
