// Package reasoner abstracts the optional N3 reasoning capability described
// in §4.F and the Design Notes ("Optional reasoner → capability
// abstraction"): the orchestrator hands it a fact base plus a rule program
// and drains derived facts through a callback. Absence of a bound
// Capability is a first-class state ("SPARQL-only mode"), not an error.
package reasoner

import "context"

// Fact is one derived statement, already split into term strings; the
// orchestrator turns Object into a JSON-LD value itself (N3-quoted literals
// are included verbatim in Object so the caller can strip quoting).
type Fact struct {
	Subject   string // IRI or blank node ("_:...")
	Predicate string // IRI
	Object    string // IRI, blank node, or an N3-quoted literal
}

// OnDerived is invoked once per fact the reasoner derives.
type OnDerived func(Fact)

// Capability is the black-box reasoning engine contract. A concrete
// implementation (see mangle.go) is injected at startup; its absence must
// degrade the orchestrator to SPARQL-only mode without failing.
type Capability interface {
	// Reason runs program (N-Triples fact lines, a blank line, then the
	// rule's N3 program text, per §4.F step 3) and calls onDerived once per
	// derived fact. It returns when the reasoner has no more facts to
	// derive or ctx is done.
	Reason(ctx context.Context, program string, onDerived OnDerived) error
}
