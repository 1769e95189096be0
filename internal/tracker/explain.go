package tracker

import (
	"fmt"

	"github.com/roach88/randotrack/internal/rule"
)

// Explanation is a rule tree annotated with current values.
type Explanation struct {
	// Fact is set on the root and on lookups.
	Fact string `json:"fact,omitempty"`
	// Name is the rule's display name, if it has one.
	Name  string `json:"name,omitempty"`
	Kind  string `json:"kind"`
	Value bool   `json:"value"`
	// Bound is set on lookups of facts that are themselves rules.
	Bound    bool           `json:"bound,omitempty"`
	Children []*Explanation `json:"children,omitempty"`
}

// Explanation kinds.
const (
	KindFact     = "fact"
	KindConstant = "constant"
	KindLookup   = "lookup"
	KindAll      = "all"
	KindAny      = "any"
)

// Explain describes why a fact has its current value. A rule-bound fact is
// explained by its rule tree; a plain fact is a single leaf.
func (t *Tracker) Explain(fact string) (*Explanation, error) {
	value, ok := t.env.Get(fact)
	if !ok {
		return nil, fmt.Errorf("explain %q: %w", fact, ErrUnknownFact)
	}
	r, bound := t.env.BoundRule(fact)
	if !bound {
		return &Explanation{Fact: fact, Kind: KindFact, Value: value}, nil
	}
	root := t.explainRule(r)
	if root.Kind == KindLookup {
		// The root names the explained fact, so a lone lookup is shown as
		// all() of one.
		root = &Explanation{Kind: KindAll, Children: []*Explanation{root}}
	}
	root.Fact = fact
	root.Value = value
	return root, nil
}

func (t *Tracker) explainRule(r rule.Rule) *Explanation {
	ex := &Explanation{Name: display(r.Name()), Value: r.Evaluate(t.env)}
	switch v := r.(type) {
	case *rule.Constant:
		ex.Kind = KindConstant
	case *rule.Lookup:
		ex.Kind = KindLookup
		ex.Fact = v.Field()
		ex.Bound = t.env.IsBoundToRule(v.Field())
	case *rule.List:
		ex.Kind = KindAll
		if v.Combinator() == rule.Any {
			ex.Kind = KindAny
		}
		for _, c := range v.Children() {
			ex.Children = append(ex.Children, t.explainRule(c))
		}
	default:
		ex.Kind = r.String()
	}
	return ex
}
