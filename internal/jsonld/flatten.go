package jsonld

import (
	"fmt"

	"github.com/nrua/urdf-core/internal/quad"
)

// Flatten lifts every node reachable through raw to the top level and
// rewrites embedded node-like objects as {"@id": "..."} references in situ.
// raw is the "@graph" array of a single named graph as received from a
// loader or the translator. Nodes without an "@id" receive a generated
// blank-node id that cannot collide with any id already present in raw.
func Flatten(raw []interface{}) ([]Node, error) {
	existing := map[string]bool{}
	collectIDs(raw, existing)

	f := &flattener{existing: existing, byID: map[string]Node{}}
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("flatten: top-level entry is not an object: %T", item)
		}
		if _, err := f.hoist(obj); err != nil {
			return nil, err
		}
	}
	out := make([]Node, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out, nil
}

type flattener struct {
	existing map[string]bool
	byID     map[string]Node
	order    []string
}

func collectIDs(raw []interface{}, into map[string]bool) {
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := obj["@id"].(string); ok {
			into[id] = true
		}
		for k, v := range obj {
			if isKeyword(k) {
				continue
			}
			collectIDsFromValue(v, into)
		}
	}
}

func collectIDsFromValue(v interface{}, into map[string]bool) {
	switch vv := v.(type) {
	case []interface{}:
		for _, e := range vv {
			collectIDsFromValue(e, into)
		}
	case map[string]interface{}:
		if id, ok := vv["@id"].(string); ok {
			into[id] = true
		}
	}
}

// hoist normalizes obj into a Node registered by id, recursively hoisting
// any node-like embedded object, and returns the {"@id": id} reference that
// replaces obj in its parent's predicate array (Flatten discards it for
// top-level entries).
func (f *flattener) hoist(obj map[string]interface{}) (map[string]interface{}, error) {
	id, hadID := obj["@id"].(string)
	if !hadID {
		id = string(quad.NewBlankNode(f.existing))
		f.existing[id] = true
	}

	node := Node{"@id": id}
	if t, ok := obj["@type"]; ok {
		types, err := normalizeTypes(t)
		if err != nil {
			return nil, err
		}
		node["@type"] = types
	}

	for _, k := range SortedKeys(obj) {
		if isKeyword(k) {
			continue
		}
		v := obj[k]
		arr := asArray(v)
		vals := make([]interface{}, 0, len(arr))
		for _, item := range arr {
			vo, err := f.hoistValue(item)
			if err != nil {
				return nil, err
			}
			vals = append(vals, vo)
		}
		node[k] = vals
	}

	if prev, ok := f.byID[id]; ok {
		f.byID[id] = MergeNode(prev, node)
	} else {
		f.byID[id] = node
		f.order = append(f.order, id)
	}
	return map[string]interface{}{"@id": id}, nil
}

// hoistValue normalizes a single predicate value into a value-object,
// hoisting embedded node-like objects as it goes.
func (f *flattener) hoistValue(v interface{}) (interface{}, error) {
	switch vv := v.(type) {
	case string:
		return map[string]interface{}{"@value": vv}, nil
	case float64, bool:
		return map[string]interface{}{"@value": vv}, nil
	case map[string]interface{}:
		if isValueObject(vv) {
			return vv, nil
		}
		if isPureReference(vv) {
			return vv, nil
		}
		// node-like: hoist it and replace with a reference
		return f.hoist(vv)
	default:
		return nil, fmt.Errorf("flatten: unsupported value type %T", v)
	}
}

func asArray(v interface{}) []interface{} {
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	return []interface{}{v}
}

func normalizeTypes(v interface{}) ([]string, error) {
	if ss, ok := v.([]string); ok {
		return append([]string{}, ss...), nil
	}
	arr := asArray(v)
	out := make([]string, 0, len(arr))
	for _, t := range arr {
		s, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("flatten: @type member is not a string: %T", t)
		}
		out = append(out, s)
	}
	return out, nil
}
