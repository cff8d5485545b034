// Package rdfs holds the RDF Schema vocabulary IRIs included in the default
// dictionary seed (voc/core).
package rdfs

// NS is the RDFS namespace.
const NS = "http://www.w3.org/2000/01/rdf-schema#"

const (
	Label = NS + "label"
	Class = NS + "Class"
)
