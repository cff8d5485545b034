// Package schema holds the schema.org vocabulary IRIs used to shape the
// application graph (§3 "Application graph") and the rules graph's
// Rule/SoftwareSourceCode resources (§3 "Rule resource").
package schema

// NS is the schema.org namespace.
const NS = "http://schema.org/"

// Classes used by the translator's PropertyValue encoder (§4.E) and by the
// rules graph (§3 "Rule resource").
const (
	PropertyValue      = NS + "PropertyValue"
	ItemList           = NS + "ItemList"
	ListItem           = NS + "ListItem"
	StructuredValue    = NS + "StructuredValue"
	SoftwareSourceCode = NS + "SoftwareSourceCode"
	Rule               = NS + "Rule"
)

// Properties used by the translator and the inference orchestrator.
const (
	Name                = NS + "name"
	Value               = NS + "value"
	Position            = NS + "position"
	Item                = NS + "item"
	ItemListElement     = NS + "itemListElement"
	AdditionalProperty  = NS + "additionalProperty"
	Keywords            = NS + "keywords"
	Text                = NS + "text"
	ProgrammingLanguage = NS + "programmingLanguage"
	EncodingFormat      = NS + "encodingFormat"
	HasPart             = NS + "hasPart"
)
