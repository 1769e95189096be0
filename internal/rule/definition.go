package rule

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant of a Definition is populated.
type Kind int

const (
	// KindInvalid is the zero Kind. Parsing it fails.
	KindInvalid Kind = iota
	// KindBool is a constant.
	KindBool
	// KindField is a lookup of one fact.
	KindField
	// KindList is a bare array, combined with ALL.
	KindList
	// KindObject is an object carrying "any" and/or "all".
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindField:
		return "field"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Definition is the decoded, shape-checked form of a rule configuration
// value. Exactly one variant is meaningful, selected by Kind.
//
// The zero Definition is invalid; use the constructors or FromValue.
type Definition struct {
	Kind Kind

	// Bool is the value of a KindBool definition.
	Bool bool

	// Field is the fact name of a KindField definition.
	Field string

	// Items are the entries of a KindList definition.
	Items []Definition

	// Any and All are the entries of a KindObject definition. HasAny and
	// HasAll distinguish an absent key from an empty list.
	Any    []Definition
	HasAny bool
	All    []Definition
	HasAll bool

	// Name and Description are optional metadata carried by objects.
	Name        string
	Description string
}

// BoolDef returns a constant definition.
func BoolDef(b bool) Definition {
	return Definition{Kind: KindBool, Bool: b}
}

// FieldDef returns a lookup definition.
func FieldDef(name string) Definition {
	return Definition{Kind: KindField, Field: name}
}

// ListDef returns a bare-array definition. Bare arrays combine with ALL.
func ListDef(items ...Definition) Definition {
	return Definition{Kind: KindList, Items: items}
}

// AnyDef returns {any: items}.
func AnyDef(items ...Definition) Definition {
	return Definition{Kind: KindObject, Any: items, HasAny: true}
}

// AllDef returns {all: items}.
func AllDef(items ...Definition) Definition {
	return Definition{Kind: KindObject, All: items, HasAll: true}
}

// Fields returns one FieldDef per name.
func Fields(names ...string) []Definition {
	defs := make([]Definition, len(names))
	for i, n := range names {
		defs[i] = FieldDef(n)
	}
	return defs
}

// FromValue shape-checks a generic decoded configuration value, as produced
// by encoding/json or yaml.v3 when decoding into an any.
func FromValue(v any) (Definition, error) {
	return fromValue("$", v)
}

func fromValue(path string, v any) (Definition, error) {
	switch x := v.(type) {
	case bool:
		return BoolDef(x), nil
	case string:
		if x == "" {
			return Definition{}, invalid(path, "fact name is empty", nil)
		}
		return FieldDef(x), nil
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return fromValue(path, items)
	case []any:
		items, err := fromList(path, x)
		if err != nil {
			return Definition{}, err
		}
		return Definition{Kind: KindList, Items: items}, nil
	case map[string]any:
		return fromObject(path, x)
	case Definition:
		return x, nil
	case nil:
		return Definition{}, invalid(path, "null is not a rule", nil)
	default:
		return Definition{}, invalid(path, fmt.Sprintf("%T is not a rule", v), v)
	}
}

func fromList(path string, list []any) ([]Definition, error) {
	items := make([]Definition, 0, len(list))
	for i, entry := range list {
		d, err := fromValue(path+"["+strconv.Itoa(i)+"]", entry)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

// fromEntries decodes the value of an "any" or "all" key. A bare string is
// shorthand for a single-entry list.
func fromEntries(path string, v any) ([]Definition, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, invalid(path, "fact name is empty", nil)
		}
		return []Definition{FieldDef(x)}, nil
	case []string:
		return Fields(x...), nil
	case []any:
		return fromList(path, x)
	default:
		return nil, invalid(path, "must be a list or a fact name", v)
	}
}

func fromObject(path string, obj map[string]any) (Definition, error) {
	d := Definition{Kind: KindObject}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := obj[k]
		var err error
		switch k {
		case "any":
			d.HasAny = true
			d.Any, err = fromEntries(path+".any", v)
		case "all":
			d.HasAll = true
			d.All, err = fromEntries(path+".all", v)
		case "name":
			s, ok := v.(string)
			if !ok {
				err = invalid(path+".name", "must be a string", v)
			}
			d.Name = s
		case "description":
			s, ok := v.(string)
			if !ok {
				err = invalid(path+".description", "must be a string", v)
			}
			d.Description = s
		default:
			err = invalid(path+"."+k, "unknown key", nil)
		}
		if err != nil {
			return Definition{}, err
		}
	}

	if !d.HasAny && !d.HasAll {
		return Definition{}, invalid(path, `object needs "any" or "all"`, nil)
	}
	return d, nil
}

// Value converts the definition back into a generic configuration value.
func (d Definition) Value() any {
	switch d.Kind {
	case KindBool:
		return d.Bool
	case KindField:
		return d.Field
	case KindList:
		return values(d.Items)
	case KindObject:
		obj := make(map[string]any, 4)
		if d.HasAny {
			obj["any"] = values(d.Any)
		}
		if d.HasAll {
			obj["all"] = values(d.All)
		}
		if d.Name != "" {
			obj["name"] = d.Name
		}
		if d.Description != "" {
			obj["description"] = d.Description
		}
		return obj
	default:
		return nil
	}
}

func values(defs []Definition) []any {
	out := make([]any, len(defs))
	for i, d := range defs {
		out[i] = d.Value()
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := FromValue(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Definition) MarshalJSON() ([]byte, error) {
	if d.Kind == KindInvalid {
		return nil, invalid("$", "cannot encode an empty definition", nil)
	}
	return json.Marshal(d.Value())
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	parsed, err := FromValue(v)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Definition) MarshalYAML() (any, error) {
	return d.Value(), nil
}

// Describe converts a rule back into a definition that parses to an
// equivalent rule.
func Describe(r Rule) Definition {
	switch v := r.(type) {
	case *Constant:
		d := BoolDef(v.value)
		if v.name != "" {
			// Only objects carry names.
			d = Definition{Kind: KindObject, HasAll: true, All: []Definition{d}, Name: v.name}
		}
		return d
	case *Lookup:
		d := FieldDef(v.field)
		if v.name != "" {
			d = Definition{Kind: KindObject, HasAll: true, All: []Definition{d}, Name: v.name}
		}
		return d
	case *List:
		children := make([]Definition, len(v.children))
		for i, c := range v.children {
			children[i] = Describe(c)
		}
		d := Definition{Kind: KindObject, Name: v.name}
		if v.combinator == Any {
			d.Any, d.HasAny = children, true
		} else {
			d.All, d.HasAll = children, true
		}
		return d
	default:
		return BoolDef(false)
	}
}
