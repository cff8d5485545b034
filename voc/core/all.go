// Package core aggregates the well-known vocabularies into the default IRI
// list a fresh deployment's dictionary bootstraps from when no dictionary
// file is configured (dict.TypeIndex reserves index 0 for rdf:type).
package core

import (
	"github.com/nrua/urdf-core/voc/rdf"
	"github.com/nrua/urdf-core/voc/rdfs"
	"github.com/nrua/urdf-core/voc/schema"
)

// DefaultIRIs returns the canonical dictionary seed: rdf:type first (so it
// lands on index 0, the index the SPARQL gateway special-cases as the bare
// "a" keyword), followed by every schema.org and rdfs term the translator
// and inference orchestrator reference by name.
func DefaultIRIs() []string {
	return []string{
		rdf.Type,
		schema.PropertyValue,
		schema.ItemList,
		schema.ListItem,
		schema.StructuredValue,
		schema.SoftwareSourceCode,
		schema.Rule,
		schema.Name,
		schema.Value,
		schema.Position,
		schema.Item,
		schema.ItemListElement,
		schema.AdditionalProperty,
		schema.Keywords,
		schema.Text,
		schema.ProgrammingLanguage,
		schema.EncodingFormat,
		schema.HasPart,
		rdfs.Label,
		rdfs.Class,
	}
}
