// Package rdf holds the RDF core vocabulary IRIs the default dictionary seed
// (voc/core) needs by name, rather than as magic strings.
package rdf

// NS is the RDF core namespace.
const NS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// Type is rdf:type, the predicate the dictionary's index 0 is reserved for
// (see dict.TypeIndex) and the one the SPARQL gateway rewrites to the bare
// "a" keyword.
const Type = NS + "type"
