package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/rule"
)

// CompileLogic builds a logic database from a CUE value.
//
// The value has this shape (every section but name is optional):
//
//	name: "Mini"
//	items: lamp: {name: "Lamp", default?: bool}
//	rules: dark: {name?: string, description?: string, requires: <rule>}
//	regions: darkworld: {name: "Dark World", requires?: <rule>}
//	locations: ether: {name: "Ether Tablet", location: [x, y], requires?: <rule>, visible?: <rule>, items?: int, type?: string}
//	locations: merged: {name: "Both", location: [x, y], merge: ["a", "b"]}
//	dungeons: hera: {name: "Tower of Hera", location: [x, y], enter?: <rule>,
//	    boss?: {name: "moldorm", defeat?: <rule>, access?: <rule>, prize?: bool},
//	    items: ["map", {name: "basement", access: <rule>}], keys?: int,
//	    notInPool?: string | [...string], medallion?: string}
//	slots: medallions: ["bombos", "ether", "quake"]
//	prizes: crystal: ["crystal1", "crystal2"]
//	defaults: ["sword"]
//	logics: glitched: {name: "Glitched", rules: {...}, slots: {...}}
//
// A non-empty variant selects an entry of logics whose rules and slots
// replace the base entries of the same name.
func CompileLogic(v cue.Value, variant string) (*logic.Database, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	db := &logic.Database{Variant: variant}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, fieldError("name", nameVal, err)
		}
		db.Name = name
	}

	var err error
	if db.Items, err = compileItems(v); err != nil {
		return nil, err
	}
	if db.Rules, err = compileRules(v.LookupPath(cue.ParsePath("rules")), "rules"); err != nil {
		return nil, err
	}
	if db.Regions, err = compileRegions(v); err != nil {
		return nil, err
	}
	if db.Locations, err = compileLocations(v); err != nil {
		return nil, err
	}
	if db.Dungeons, err = compileDungeons(v); err != nil {
		return nil, err
	}
	if db.Slots, err = compileStringLists(v.LookupPath(cue.ParsePath("slots")), "slots"); err != nil {
		return nil, err
	}
	prizes, err := compileStringLists(v.LookupPath(cue.ParsePath("prizes")), "prizes")
	if err != nil {
		return nil, err
	}
	for _, name := range orderedLabels(v.LookupPath(cue.ParsePath("prizes"))) {
		db.Prizes = append(db.Prizes, logic.Prize{Name: name, Facts: prizes[name]})
	}
	if db.Defaults, err = compileStrings(v.LookupPath(cue.ParsePath("defaults")), "defaults"); err != nil {
		return nil, err
	}
	for _, it := range db.Items {
		if it.Default && !slices.Contains(db.Defaults, it.ID) {
			db.Defaults = append(db.Defaults, it.ID)
		}
	}

	if variant != "" {
		if err := applyVariant(db, v, variant); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// applyVariant overlays logics.<variant> onto the base database.
func applyVariant(db *logic.Database, v cue.Value, variant string) error {
	vv := v.LookupPath(cue.MakePath(cue.Str("logics"), cue.Str(variant)))
	if !vv.Exists() {
		return &CompileError{
			Field:   "logics",
			Message: fmt.Sprintf("unknown logic variant %q", variant),
			Pos:     v.LookupPath(cue.ParsePath("logics")).Pos(),
		}
	}
	field := "logics." + variant

	overrides, err := compileRules(vv.LookupPath(cue.ParsePath("rules")), field+".rules")
	if err != nil {
		return err
	}
	for _, o := range overrides {
		i := slices.IndexFunc(db.Rules, func(r *logic.RuleSpec) bool { return r.ID == o.ID })
		if i >= 0 {
			db.Rules[i] = o
		} else {
			db.Rules = append(db.Rules, o)
		}
	}

	slots, err := compileStringLists(vv.LookupPath(cue.ParsePath("slots")), field+".slots")
	if err != nil {
		return err
	}
	for name, list := range slots {
		if db.Slots == nil {
			db.Slots = make(map[string][]string)
		}
		db.Slots[name] = list
	}
	return nil
}

func compileItems(v cue.Value) ([]*logic.Item, error) {
	var items []*logic.Item
	err := eachField(v.LookupPath(cue.ParsePath("items")), "items", func(id string, fv cue.Value) error {
		it := &logic.Item{ID: id, Name: id}
		if err := optionalString(fv, "name", "items."+id, &it.Name); err != nil {
			return err
		}
		if err := optionalBool(fv, "default", "items."+id, &it.Default); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func compileRules(v cue.Value, field string) ([]*logic.RuleSpec, error) {
	var rules []*logic.RuleSpec
	err := eachField(v, field, func(id string, fv cue.Value) error {
		path := field + "." + id
		spec := &logic.RuleSpec{ID: id}

		// A rule is either {requires: <rule>, name?, description?} or a
		// bare rule definition.
		def := fv
		if fv.IncompleteKind() == cue.StructKind && fv.LookupPath(cue.ParsePath("requires")).Exists() {
			def = fv.LookupPath(cue.ParsePath("requires"))
			if err := optionalString(fv, "name", path, &spec.Name); err != nil {
				return err
			}
			if err := optionalString(fv, "description", path, &spec.Description); err != nil {
				return err
			}
			path += ".requires"
		}

		r, err := compileRule(def, path)
		if err != nil {
			return err
		}
		if spec.Name != "" {
			r = rule.WithName(r, spec.Name)
		}
		spec.Rule = r
		rules = append(rules, spec)
		return nil
	})
	return rules, err
}

func compileRegions(v cue.Value) ([]*logic.Region, error) {
	var regions []*logic.Region
	err := eachField(v.LookupPath(cue.ParsePath("regions")), "regions", func(id string, fv cue.Value) error {
		path := "regions." + id
		r := &logic.Region{ID: id, Name: id}
		if err := optionalString(fv, "name", path, &r.Name); err != nil {
			return err
		}
		req, err := optionalRule(fv, "requires", path, rule.True)
		if err != nil {
			return err
		}
		r.Requires = req
		regions = append(regions, r)
		return nil
	})
	return regions, err
}

func compileLocations(v cue.Value) ([]logic.MapLocation, error) {
	type merge struct {
		loc  *logic.MergeLocation
		refs []string
		val  cue.Value
	}

	var (
		order  []string
		plain  = make(map[string]*logic.Location)
		merges = make(map[string]*merge)
	)

	err := eachField(v.LookupPath(cue.ParsePath("locations")), "locations", func(id string, fv cue.Value) error {
		path := "locations." + id
		name := id
		if err := optionalString(fv, "name", path, &name); err != nil {
			return err
		}
		x, y, err := compilePoint(fv, path)
		if err != nil {
			return err
		}
		order = append(order, id)

		if mv := fv.LookupPath(cue.ParsePath("merge")); mv.Exists() {
			refs, err := compileStrings(mv, path+".merge")
			if err != nil {
				return err
			}
			merges[id] = &merge{
				loc:  &logic.MergeLocation{ID: id, Name: name, X: x, Y: y},
				refs: refs,
				val:  mv,
			}
			return nil
		}

		l := &logic.Location{ID: id, Name: name, X: x, Y: y, Items: 1}
		if l.Required, err = optionalRule(fv, "requires", path, rule.True); err != nil {
			return err
		}
		if l.Visible, err = optionalRule(fv, "visible", path, rule.False); err != nil {
			return err
		}
		if err := optionalString(fv, "type", path, &l.Type); err != nil {
			return err
		}
		if err := optionalInt(fv, "items", path, &l.Items); err != nil {
			return err
		}
		plain[id] = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	merged := make(map[string]bool)
	for _, id := range order {
		m, ok := merges[id]
		if !ok {
			continue
		}
		for _, ref := range m.refs {
			sub, ok := plain[ref]
			if !ok {
				return nil, &CompileError{
					Field:   "merge",
					Message: fmt.Sprintf("locations.%s.merge: unknown location %q", id, ref),
					Pos:     m.val.Pos(),
				}
			}
			m.loc.Subs = append(m.loc.Subs, sub)
			merged[ref] = true
		}
	}

	var out []logic.MapLocation
	for _, id := range order {
		if m, ok := merges[id]; ok {
			out = append(out, m.loc)
			continue
		}
		if !merged[id] {
			out = append(out, plain[id])
		}
	}
	return out, nil
}

func compileDungeons(v cue.Value) ([]*logic.Dungeon, error) {
	var dungeons []*logic.Dungeon
	err := eachField(v.LookupPath(cue.ParsePath("dungeons")), "dungeons", func(id string, fv cue.Value) error {
		path := "dungeons." + id
		d := &logic.Dungeon{ID: id, Name: id}
		if err := optionalString(fv, "name", path, &d.Name); err != nil {
			return err
		}
		var err error
		if d.X, d.Y, err = compilePoint(fv, path); err != nil {
			return err
		}
		if d.Enter, err = optionalRule(fv, "enter", path, rule.True); err != nil {
			return err
		}
		if err := optionalInt(fv, "keys", path, &d.Keys); err != nil {
			return err
		}
		if err := optionalString(fv, "medallion", path, &d.Medallion); err != nil {
			return err
		}

		if nv := fv.LookupPath(cue.ParsePath("notInPool")); nv.Exists() {
			if s, err := nv.String(); err == nil {
				d.NotInPool = []string{s}
			} else if d.NotInPool, err = compileStrings(nv, path+".notInPool"); err != nil {
				return err
			}
		}

		if bv := fv.LookupPath(cue.ParsePath("boss")); bv.Exists() {
			if d.Boss, err = compileBoss(bv, path+".boss"); err != nil {
				return err
			}
		}

		iv := fv.LookupPath(cue.ParsePath("items"))
		if iv.Exists() {
			iter, err := iv.List()
			if err != nil {
				return fieldError(path+".items", iv, err)
			}
			for i := 0; iter.Next(); i++ {
				c, err := compileChest(iter.Value(), fmt.Sprintf("%s.items[%d]", path, i))
				if err != nil {
					return err
				}
				d.Chests = append(d.Chests, c)
			}
		}

		dungeons = append(dungeons, d)
		return nil
	})
	return dungeons, err
}

func compileBoss(v cue.Value, path string) (*logic.Boss, error) {
	b := &logic.Boss{HasPrize: true}
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: path + ".name", Message: "boss name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, fieldError(path+".name", nameVal, err)
	}
	b.Name = name
	if b.Defeat, err = optionalRule(v, "defeat", path, rule.True); err != nil {
		return nil, err
	}
	if b.Access, err = optionalRule(v, "access", path, rule.True); err != nil {
		return nil, err
	}
	if err := optionalBool(v, "prize", path, &b.HasPrize); err != nil {
		return nil, err
	}
	return b, nil
}

// compileChest accepts "name" or {name: "name", access: <rule>}.
func compileChest(v cue.Value, path string) (*logic.Chest, error) {
	if s, err := v.String(); err == nil {
		return &logic.Chest{Name: s, Access: rule.True}, nil
	}
	c := &logic.Chest{}
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: path, Message: "chest must be a name or {name, access}", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, fieldError(path+".name", nameVal, err)
	}
	c.Name = name
	if c.Access, err = optionalRule(v, "access", path, rule.True); err != nil {
		return nil, err
	}
	return c, nil
}

func compilePoint(v cue.Value, path string) (x, y float64, err error) {
	pv := v.LookupPath(cue.ParsePath("location"))
	if !pv.Exists() {
		return 0, 0, nil
	}
	var pt []float64
	if err := pv.Decode(&pt); err != nil || len(pt) != 2 {
		return 0, 0, &CompileError{Field: path + ".location", Message: "location must be [x, y]", Pos: pv.Pos()}
	}
	return pt[0], pt[1], nil
}

// compileRule converts a CUE rule definition into a rule.
func compileRule(v cue.Value, path string) (rule.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.IncompleteKind() {
	case cue.BoolKind, cue.StringKind, cue.ListKind, cue.StructKind:
	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported rule kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	var raw any
	if err := v.Decode(&raw); err != nil {
		return nil, fieldError(path, v, err)
	}
	r, err := rule.ParseValue(raw)
	if err != nil {
		return nil, &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
	}
	return r, nil
}

func optionalRule(v cue.Value, name, path string, fallback rule.Rule) (rule.Rule, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return fallback, nil
	}
	return compileRule(fv, path+"."+name)
}

func optionalString(v cue.Value, name, path string, dst *string) error {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil
	}
	s, err := fv.String()
	if err != nil {
		return fieldError(path+"."+name, fv, err)
	}
	*dst = s
	return nil
}

func optionalBool(v cue.Value, name, path string, dst *bool) error {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil
	}
	b, err := fv.Bool()
	if err != nil {
		return fieldError(path+"."+name, fv, err)
	}
	*dst = b
	return nil
}

func optionalInt(v cue.Value, name, path string, dst *int) error {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return fieldError(path+"."+name, fv, err)
	}
	*dst = int(n)
	return nil
}

// compileStrings reads a list of strings, skipping null entries.
func compileStrings(v cue.Value, path string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, fieldError(path, v, err)
	}
	var out []string
	for i := 0; iter.Next(); i++ {
		ev := iter.Value()
		if ev.Null() == nil {
			continue
		}
		s, err := ev.String()
		if err != nil {
			return nil, fieldError(fmt.Sprintf("%s[%d]", path, i), ev, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func compileStringLists(v cue.Value, path string) (map[string][]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	out := make(map[string][]string)
	err := eachField(v, path, func(name string, fv cue.Value) error {
		list, err := compileStrings(fv, path+"."+name)
		if err != nil {
			return err
		}
		out[name] = list
		return nil
	})
	return out, err
}

// eachField calls fn for every regular field of a struct in declaration
// order. A missing value has no fields.
func eachField(v cue.Value, path string, fn func(label string, fv cue.Value) error) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return fieldError(path, v, err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func orderedLabels(v cue.Value) []string {
	var labels []string
	_ = eachField(v, "", func(label string, _ cue.Value) error {
		labels = append(labels, label)
		return nil
	})
	return labels
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field string, v cue.Value, err error) error {
	return &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
