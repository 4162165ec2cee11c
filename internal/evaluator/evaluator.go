package evaluator

import (
	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// Evaluator implements one rule type's matching condition. Evaluators are
// stateless value-to-value transforms: deterministic given identical inputs,
// no I/O beyond what the context supplies.
type Evaluator interface {
	// RuleType returns the tag this evaluator handles
	RuleType() rule.Type

	// Evaluate returns candidate alerts for the rule against the context
	Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error)
}

// Registry maps rule-type tags to their evaluator implementations. It is
// populated once from a fixed table at startup and read-only afterwards.
type Registry struct {
	evaluators map[rule.Type]Evaluator
}

// NewRegistry builds the registry with every built-in evaluator
func NewRegistry() *Registry {
	all := []Evaluator{
		&PeerOffline{},
		&PeerFlapping{},
		&GroupHealth{},
		&NewPeer{},
		&PeerInactivity{},
		&NetworkChange{},
	}

	evaluators := make(map[rule.Type]Evaluator, len(all))
	for _, e := range all {
		evaluators[e.RuleType()] = e
	}

	return &Registry{evaluators: evaluators}
}

// Lookup returns the evaluator for a rule type
func (reg *Registry) Lookup(t rule.Type) (Evaluator, bool) {
	e, ok := reg.evaluators[t]
	return e, ok
}
