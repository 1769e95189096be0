package env

import "github.com/roach88/randotrack/internal/rule"

// Value is what a fact can be set to: a literal boolean or a rule.
type Value struct {
	rule    rule.Rule
	literal bool
}

// Bool returns a literal value.
func Bool(b bool) Value {
	return Value{literal: b}
}

// RuleValue returns a value that binds r.
func RuleValue(r rule.Rule) Value {
	return Value{rule: r}
}

// IsRule reports whether v binds a rule.
func (v Value) IsRule() bool { return v.rule != nil }

// Rule returns the bound rule, or nil for a literal.
func (v Value) Rule() rule.Rule { return v.rule }

// Literal returns the literal boolean. It is false for rule values.
func (v Value) Literal() bool { return v.literal }

func (v Value) String() string {
	if v.rule != nil {
		return v.rule.String()
	}
	if v.literal {
		return "true"
	}
	return "false"
}
