// Package quad defines the RDF term and quad types shared by every layer of
// the store. The naming follows the teacher's own quad vocabulary
// (quad.IRI, quad.BNode, quad.Quad{Subject,Predicate,Object,...}) adapted to
// a named-graph, JSON-LD-native world instead of the teacher's
// pluggable-backend one: terms here round-trip through JSON-LD value objects
// rather than through a backend-specific binary encoding.
package quad

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Value is any RDF term: an IRI, a blank node, or a literal.
type Value interface {
	// String returns the term in the store's internal textual form: an IRI
	// or blank-node id unwrapped, or a literal's lexical form.
	String() string
	isValue()
}

// IRI is an absolute or compacted (z:<n>) internationalized resource
// identifier.
type IRI string

func (v IRI) String() string { return string(v) }
func (IRI) isValue()         {}

// BNode is a dataset-scoped blank node identifier, of the form
// "_:b<uuid>" when generated by NewBlankNode.
type BNode string

func (v BNode) String() string { return string(v) }
func (BNode) isValue()         {}

// IsBlank reports whether s has the blank-node prefix.
func IsBlank(s string) bool { return strings.HasPrefix(s, "_:") }

// Literal is a typed or language-tagged RDF literal.
type Literal struct {
	Lexical  string
	Lang     string // optional BCP-47 tag; mutually exclusive with Datatype
	Datatype IRI    // optional; defaults to xsd:string when both are empty
}

func (v Literal) String() string { return v.Lexical }
func (Literal) isValue()         {}

// XSDString is the implicit datatype of an untyped, unlocalized literal.
const XSDString = IRI("http://www.w3.org/2001/XMLSchema#string")

// Quad is the store's atomic unit: a statement scoped to a named graph.
type Quad struct {
	Subject   Value // IRI or BNode
	Predicate IRI
	Object    Value // IRI, BNode, or Literal
	Graph     IRI
}

func (q Quad) String() string {
	return fmt.Sprintf("%s %s %s <%s>", q.Subject, q.Predicate, q.Object, q.Graph)
}

// blankNodeGen is swappable in tests for deterministic output.
var blankNodeGen = func() string { return uuid.NewString() }

// NewBlankNode mints a dataset-local blank node that cannot collide with
// ids already present in existing, which the normalizer passes in so
// flattening never clashes with author-supplied blank node ids.
func NewBlankNode(existing map[string]bool) BNode {
	for {
		id := "_:b" + blankNodeGen()
		if !existing[id] {
			return BNode(id)
		}
	}
}
