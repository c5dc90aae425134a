// Package ontology defines the schema-validation boundary TRANSFORM calls
// into (SPEC_FULL.md §4.7, §6): "an Ontology handle ... treated as a pure
// function triple -> Valid|Invalid." Turtle/RDF parsing, SHACL validation
// and SPARQL execution are explicitly out of scope (§1) — this package only
// defines the seam and a stub good enough to drive TRANSFORM end to end.
package ontology

import "github.com/knhk/core/internal/triple"

// Validator is the external collaborator TRANSFORM consults per triple.
type Validator interface {
	Validate(t triple.Triple) bool
}

// AllowAll accepts every triple. Useful for tests and for deployments that
// push schema enforcement upstream of this core entirely.
type AllowAll struct{}

func (AllowAll) Validate(triple.Triple) bool { return true }

// PredicateAllowlist accepts a triple only if its predicate fingerprint is
// in the configured set — the minimal stand-in for "a registered ontology"
// the core needs without embedding a real SHACL engine.
type PredicateAllowlist struct {
	allowed map[uint64]bool
}

// NewPredicateAllowlist builds an allowlist from a set of predicate
// fingerprints.
func NewPredicateAllowlist(predicates ...uint64) *PredicateAllowlist {
	a := &PredicateAllowlist{allowed: make(map[uint64]bool, len(predicates))}
	for _, p := range predicates {
		a.allowed[p] = true
	}
	return a
}

func (a *PredicateAllowlist) Validate(t triple.Triple) bool {
	return a.allowed[t.P]
}

// Allow adds a predicate fingerprint to the allowlist.
func (a *PredicateAllowlist) Allow(predicate uint64) {
	a.allowed[predicate] = true
}
