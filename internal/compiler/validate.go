package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/randotrack/internal/logic"
)

// Validation error codes (E100-E199)
const (
	// Struct tag validation (E100)
	ErrSchema = "E100" // field failed a struct tag constraint

	// Database errors (E101-E109)
	ErrNameEmpty          = "E101" // database name is required
	ErrDuplicateID        = "E102" // id used by more than one entity
	ErrInvalidMerge       = "E103" // merged location problem
	ErrPrizeEmpty         = "E104" // prize lists no facts
	ErrUnknownDefault     = "E105" // default names no known fact
	ErrTooManyKeys        = "E106" // keys exceed chest count
	ErrMedallionsNoSlot   = "E107" // medallion dungeon without a medallions slot
	ErrUnsupportedType    = "E108" // unsupported value passed to Validate
	ErrRuleCycle          = "E109" // rules depend on each other in a loop
)

// MedallionSlot is the slot listing the medallions a dungeon may require.
const MedallionSlot = "medallions"

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// structValidate checks the struct tags on logic entities.
var structValidate *validator.Validate

func init() {
	structValidate = validator.New()
	structValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	if err := structValidate.RegisterValidation("factid", validateFactID); err != nil {
		panic(fmt.Sprintf("register factid validation: %v", err))
	}
}

// validateFactID rejects ids that cannot be written as a rule lookup.
func validateFactID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && !strings.ContainsFunc(id, unicode.IsSpace)
}

// Validate checks a compiled database. It returns all errors found and does
// not fail fast.
func Validate(v any) []ValidationError {
	switch db := v.(type) {
	case *logic.Database:
		if db == nil {
			break
		}
		return validateDatabase(db)
	case logic.Database:
		return validateDatabase(&db)
	}
	return []ValidationError{{
		Field:   "type",
		Message: fmt.Sprintf("unsupported type for validation: %T", v),
		Code:    ErrUnsupportedType,
	}}
}

func validateDatabase(db *logic.Database) []ValidationError {
	var errs []ValidationError

	errs = append(errs, structErrors("", db)...)
	for i, ml := range db.Locations {
		errs = append(errs, structErrors(fmt.Sprintf("locations[%d]", i), ml)...)
	}

	// E101: name is required
	if strings.TrimSpace(db.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "logic name is required and must be non-empty",
			Code:    ErrNameEmpty,
		})
	}

	errs = append(errs, checkDuplicateIDs(db)...)
	errs = append(errs, checkMerges(db)...)

	// E104: prizes must name facts
	for i, p := range db.Prizes {
		if len(p.Facts) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("prizes[%d]", i),
				Message: fmt.Sprintf("prize %q lists no facts", p.Name),
				Code:    ErrPrizeEmpty,
			})
		}
	}

	// E105: defaults must name known facts
	known := knownFacts(db)
	for i, name := range db.Defaults {
		if !known[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("defaults[%d]", i),
				Message: fmt.Sprintf("default %q is not a known fact", name),
				Code:    ErrUnknownDefault,
			})
		}
	}

	for i, d := range db.Dungeons {
		// E106: keys are stored in chests
		if d.Keys > len(d.Chests) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("dungeons[%d].keys", i),
				Message: fmt.Sprintf("dungeon %q has %d keys but only %d chests", d.ID, d.Keys, len(d.Chests)),
				Code:    ErrTooManyKeys,
			})
		}
		// E107: medallion choices come from a slot
		if d.Medallion != "" && len(db.Slots[MedallionSlot]) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("dungeons[%d].medallion", i),
				Message: fmt.Sprintf("dungeon %q requires a medallion but slots.%s is empty", d.ID, MedallionSlot),
				Code:    ErrMedallionsNoSlot,
			})
		}
	}

	// E109: rule loops cannot be bound
	for _, w := range AnalyzeCycles(db.DerivedRules()) {
		errs = append(errs, ValidationError{
			Field:   w.Path[0],
			Message: w.Message,
			Code:    ErrRuleCycle,
		})
	}

	return errs
}

// structErrors converts validator failures into E100 errors.
func structErrors(prefix string, v any) []ValidationError {
	err := structValidate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: prefix, Message: err.Error(), Code: ErrSchema}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Namespace starts with the struct type name.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if prefix != "" {
			field = prefix + "." + field
		}
		msg := fmt.Sprintf("failed %q constraint", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q constraint (%s)", fe.Tag(), fe.Param())
		}
		out = append(out, ValidationError{Field: field, Message: msg, Code: ErrSchema})
	}
	return out
}

// checkDuplicateIDs reports E102 for ids shared by entities of any kind.
func checkDuplicateIDs(db *logic.Database) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]string)
	add := func(field, id string) {
		if id == "" {
			return
		}
		if first, ok := seen[id]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate id %q (first used by %s)", id, first),
				Code:    ErrDuplicateID,
			})
			return
		}
		seen[id] = field
	}

	for i, it := range db.Items {
		add(fmt.Sprintf("items[%d]", i), it.ID)
	}
	for i, r := range db.Rules {
		add(fmt.Sprintf("rules[%d]", i), r.ID)
	}
	for i, r := range db.Regions {
		add(fmt.Sprintf("regions[%d]", i), r.ID)
	}
	for i, ml := range db.Locations {
		add(fmt.Sprintf("locations[%d]", i), ml.LocationID())
		if m, ok := ml.(*logic.MergeLocation); ok {
			for j, s := range m.Subs {
				add(fmt.Sprintf("locations[%d].subs[%d]", i, j), s.ID)
			}
		}
	}
	for i, d := range db.Dungeons {
		add(fmt.Sprintf("dungeons[%d]", i), d.ID)
	}
	return errs
}

// checkMerges reports E103 for merged markers without locations and for
// locations merged into more than one marker.
func checkMerges(db *logic.Database) []ValidationError {
	var errs []ValidationError
	owner := make(map[string]string)
	for i, ml := range db.Locations {
		m, ok := ml.(*logic.MergeLocation)
		if !ok {
			continue
		}
		if len(m.Subs) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("locations[%d].merge", i),
				Message: fmt.Sprintf("merged location %q merges nothing", m.ID),
				Code:    ErrInvalidMerge,
			})
		}
		for j, s := range m.Subs {
			if prev, dup := owner[s.ID]; dup {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("locations[%d].merge[%d]", i, j),
					Message: fmt.Sprintf("location %q is already merged into %q", s.ID, prev),
					Code:    ErrInvalidMerge,
				})
				continue
			}
			owner[s.ID] = m.ID
		}
	}
	return errs
}

// knownFacts is every fact name a database can set or bind.
func knownFacts(db *logic.Database) map[string]bool {
	known := make(map[string]bool)
	for name := range db.DerivedRules() {
		known[name] = true
	}
	for _, it := range db.Items {
		known[it.ID] = true
	}
	for _, p := range db.Prizes {
		for _, f := range p.Facts {
			known[f] = true
		}
	}
	for _, d := range db.Dungeons {
		known[d.ClearedID()] = true
	}
	for _, list := range db.Slots {
		for _, f := range list {
			known[f] = true
		}
	}
	return known
}
