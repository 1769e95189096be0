package rule

import "strconv"

// Parse compiles a definition into a rule.
//
//	bool                     Constant
//	field                    Lookup
//	[a, b, ...]              List(ALL)
//	{all: [...]}             List(ALL); empty is True
//	{any: [...]}             List(ANY); empty is False
//	{any: [...], all: [...]} List(ALL) of List(ANY) and List(ALL)
//
// A list with a single entry collapses to that entry.
func Parse(def Definition) (Rule, error) {
	return parse("$", def)
}

// ParseValue shape-checks and compiles a generic configuration value.
func ParseValue(v any) (Rule, error) {
	def, err := FromValue(v)
	if err != nil {
		return nil, err
	}
	return Parse(def)
}

// MustParse is like ParseValue but panics on error. It is intended for
// fixtures and tests.
func MustParse(v any) Rule {
	r, err := ParseValue(v)
	if err != nil {
		panic(err)
	}
	return r
}

func parse(path string, def Definition) (Rule, error) {
	switch def.Kind {
	case KindBool:
		return NewConstant(def.Bool, def.Name), nil
	case KindField:
		if def.Field == "" {
			return nil, invalid(path, "fact name is empty", nil)
		}
		return NewLookup(def.Field, def.Name), nil
	case KindList:
		return combine(path, def.Items, All, def.Name)
	case KindObject:
		return parseObject(path, def)
	default:
		return nil, invalid(path, "definition has no kind", nil)
	}
}

func parseObject(path string, def Definition) (Rule, error) {
	if !def.HasAny && !def.HasAll {
		return nil, invalid(path, `object needs "any" or "all"`, nil)
	}
	if def.HasAny && len(def.Any) == 0 {
		return NewConstant(false, def.Name), nil
	}
	if !def.HasAny {
		return combine(path+".all", def.All, All, def.Name)
	}
	if len(def.All) == 0 {
		return combine(path+".any", def.Any, Any, def.Name)
	}

	anyRule, err := combine(path+".any", def.Any, Any, "")
	if err != nil {
		return nil, err
	}
	allRule, err := combine(path+".all", def.All, All, "")
	if err != nil {
		return nil, err
	}
	return NewList([]Rule{anyRule, allRule}, All, def.Name), nil
}

func combine(path string, items []Definition, comb Combinator, name string) (Rule, error) {
	children := make([]Rule, 0, len(items))
	for i, item := range items {
		child, err := parse(path+"["+strconv.Itoa(i)+"]", item)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		if name == "" {
			return children[0], nil
		}
		return WithName(children[0], name), nil
	}
	return NewList(children, comb, name), nil
}
