// Package rule implements immutable boolean rules over named facts.
//
// A rule is a tree whose leaves are constants or fact lookups and whose
// interior nodes combine their children with ALL (conjunction) or ANY
// (disjunction) semantics. Rules hold no reference to the facts they read:
// evaluation takes a Facts view, so one rule instance can be shared by any
// number of environments and bindings.
//
// # Definitions
//
// Logic descriptions express rules as a small configuration language:
//
//	true / false          constant
//	"hookshot"            lookup of the fact "hookshot"
//	["bow", "lamp"]       all of the listed entries
//	{all: [...]}          all of the listed entries
//	{any: [...]}          any of the listed entries
//	{any: [...], all: [...]}
//	                      any of the first list and all of the second
//	{all: "lamp"}         shorthand for a single-entry list
//
// Definition is the tagged-union form of that language. It decodes from
// JSON, YAML or generic Go values and rejects every other shape with an
// InvalidDefinitionError. Parse compiles a Definition into a Rule.
//
// # Invariants
//
//   - A List is never empty: an empty ANY collapses to False and an empty ALL
//     (with no sibling ANY) collapses to True.
//   - Dependencies() is exactly the set of fact names Evaluate can read.
//     Environments rely on this to maintain dependency edges and to detect
//     circular bindings.
package rule
