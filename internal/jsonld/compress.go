package jsonld

import (
	"regexp"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/quad"
)

// Compress rewrites every predicate key, every "@type" member, every "@id",
// and every recognized IRI-shaped literal datatype using d. JSON-LD
// keywords are never compressed; "@value" payloads are never rewritten.
func Compress(nodes []Node, d *dict.Dictionary) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = compressNode(n, d)
	}
	return out
}

func compressNode(n Node, d *dict.Dictionary) Node {
	out := Node{}
	if id, ok := n["@id"].(string); ok {
		out["@id"] = compressIdent(id, d)
	}
	if types := n.Types(); types != nil {
		ctypes := make([]string, len(types))
		for i, t := range types {
			ctypes[i] = d.CompressToken(t)
		}
		out["@type"] = ctypes
	}
	for k, v := range n {
		if k == "@id" || k == "@type" {
			continue
		}
		arr, _ := v.([]interface{})
		cvals := make([]interface{}, len(arr))
		for i, vo := range arr {
			cvals[i] = compressValueObject(vo, d)
		}
		out[d.CompressToken(k)] = cvals
	}
	return out
}

// compressIdent compresses an @id unless it is a blank node, which is never
// dictionary-eligible.
func compressIdent(id string, d *dict.Dictionary) string {
	if quad.IsBlank(id) {
		return id
	}
	return d.CompressToken(id)
}

func compressValueObject(v interface{}, d *dict.Dictionary) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	out := map[string]interface{}{}
	if id, ok := m["@id"].(string); ok {
		out["@id"] = compressIdent(id, d)
		return out
	}
	// value object: @value payload untouched, only datatype IRI compressed.
	for k, vv := range m {
		out[k] = vv
	}
	if dt, ok := m["@type"].(string); ok {
		out["@type"] = d.CompressToken(dt)
	}
	return out
}

// ExpandGraph is the inverse of Compress for a stored/retrieved graph
// ("deep-graph expansion"): it decodes only the exact "z:N" form used for
// predicate keys, types, and @ids.
func ExpandGraph(nodes []Node, d *dict.Dictionary) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = expandGraphNode(n, d)
	}
	return out
}

func expandGraphNode(n Node, d *dict.Dictionary) Node {
	out := Node{}
	if id, ok := n["@id"].(string); ok {
		out["@id"] = d.ExpandToken(id)
	}
	if types := n.Types(); types != nil {
		etypes := make([]string, len(types))
		for i, t := range types {
			etypes[i] = d.ExpandToken(t)
		}
		out["@type"] = etypes
	}
	for k, v := range n {
		if k == "@id" || k == "@type" {
			continue
		}
		arr, _ := v.([]interface{})
		evals := make([]interface{}, len(arr))
		for i, vo := range arr {
			evals[i] = expandGraphValueObject(vo, d)
		}
		out[d.ExpandToken(k)] = evals
	}
	return out
}

func expandGraphValueObject(v interface{}, d *dict.Dictionary) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	out := map[string]interface{}{}
	for k, vv := range m {
		out[k] = vv
	}
	if id, ok := m["@id"].(string); ok {
		out["@id"] = d.ExpandToken(id)
	}
	if dt, ok := m["@type"].(string); ok {
		out["@type"] = d.ExpandToken(dt)
	}
	return out
}

// embeddedTokenPattern matches a z:N token appearing inside a larger string,
// such as the "<z:3>" form a SPARQL evaluator may echo back in a binding.
var embeddedTokenPattern = regexp.MustCompile(`z:\d+`)

// ExpandQueryValue is "deep-query expansion": it decodes both bare tokens
// and tokens embedded in string values (e.g. "<z:3>"), recursing through
// maps and slices. Used to expand SPARQL/query results before they leave
// the core.
func ExpandQueryValue(v interface{}, d *dict.Dictionary) interface{} {
	switch vv := v.(type) {
	case string:
		if embeddedTokenPattern.MatchString(vv) {
			return embeddedTokenPattern.ReplaceAllStringFunc(vv, func(tok string) string {
				return d.ExpandToken(tok)
			})
		}
		return vv
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = ExpandQueryValue(e, d)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, e := range vv {
			out[k] = ExpandQueryValue(e, d)
		}
		return out
	default:
		return vv
	}
}
