// Package jsonld implements the normalizer (component C): flattening,
// predicate-array normalization, and dictionary-driven compression /
// expansion of JSON-LD data as it crosses the store boundary.
package jsonld

import (
	"fmt"
	"sort"

	"github.com/nrua/urdf-core/internal/urdferr"
)

// Node is a normalized JSON-LD node: at most one "@id", at most one "@type"
// (always []string), and zero or more predicate keys each mapping to
// []interface{} of value-objects (map[string]interface{} with "@id" or
// "@value").
type Node map[string]interface{}

// ID returns the node's "@id", or "" if absent.
func (n Node) ID() string {
	s, _ := n["@id"].(string)
	return s
}

// Types returns the node's "@type" array, or nil.
func (n Node) Types() []string {
	v, _ := n["@type"].([]string)
	return v
}

func isKeyword(k string) bool {
	return len(k) > 0 && k[0] == '@'
}

// ValidateArrayShaped checks the store-wide invariant: every predicate value
// other than "@id"/"@type" must be an []interface{}. It is the gate every
// producer (translator, rule aggregation) must pass before a load.
func ValidateArrayShaped(nodes []Node) error {
	for _, n := range nodes {
		for k, v := range n {
			if k == "@id" || k == "@type" {
				continue
			}
			if _, ok := v.([]interface{}); !ok {
				return urdferr.New(urdferr.KindSchema,
					fmt.Sprintf("predicate %q on node %q is not array-valued", k, n.ID()))
			}
		}
	}
	return nil
}

// isValueObject reports whether v carries "@value".
func isValueObject(v map[string]interface{}) bool {
	_, ok := v["@value"]
	return ok
}

// isPureReference reports whether v is only {"@id": ...} (no other keys).
func isPureReference(v map[string]interface{}) bool {
	if _, ok := v["@id"]; !ok {
		return false
	}
	return len(v) == 1
}

// MergeNode unions incoming into existing in place, following the store's
// merge invariants: existing scalars are preferred over overwrites, arrays
// are concatenated and de-duplicated.
func MergeNode(existing, incoming Node) Node {
	if existing == nil {
		return incoming
	}
	for k, v := range incoming {
		switch k {
		case "@id":
			if existing[k] == nil {
				existing[k] = v
			}
		case "@type":
			existing["@type"] = mergeTypeArrays(existing.Types(), v.([]string))
		default:
			cur, _ := existing[k].([]interface{})
			add, _ := v.([]interface{})
			existing[k] = dedupValueObjects(append(append([]interface{}{}, cur...), add...))
		}
	}
	return existing
}

func mergeTypeArrays(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func valueObjectKey(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if id, ok := m["@id"].(string); ok {
		return "@id:" + id
	}
	lit := fmt.Sprintf("%v", m["@value"])
	lang, _ := m["@language"].(string)
	dt, _ := m["@type"].(string)
	return "@value:" + lit + "|" + lang + "|" + dt
}

func dedupValueObjects(in []interface{}) []interface{} {
	seen := make(map[string]bool, len(in))
	out := make([]interface{}, 0, len(in))
	for _, v := range in {
		k := valueObjectKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// SortedKeys returns the keys of m sorted ascending, used wherever the
// Translator and the rule aggregator must traverse in a deterministic order.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
