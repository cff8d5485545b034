// Package translator implements the Flow→Graph Translator (component E):
// a deterministic mapping from a host flow-configuration document (an
// ordered list of Node-RED-shaped tab and node objects) to the application
// JSON-LD graph, with stable identifiers and a recursive encoder for
// arbitrary configuration values.
package translator

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/voc/schema"
)

// RawNode is one entry of the host's flow configuration: either a tab
// ({"id", "type": "tab", "label", ...}) or a wired node ({"id", "type",
// "z", "wires", "name", ...arbitrary config}).
type RawNode map[string]interface{}

// Classes and link predicates minted for the application graph. "Part of
// flow" and "part of application" are deliberately distinct predicates
// (§4.E step 3b) so a consumer can tell at a glance whether a node sits
// inside a flow or hangs directly off the application root.
const (
	ClassApplication = "urn:nrua:Application"
	ClassFlow        = "urn:nrua:Flow"
	ClassNode        = "urn:nrua:Node"
	ClassNodeOutput  = "urn:nrua:NodeOutput"

	PartOfFlow        = "urn:nrua:partOfFlow"
	PartOfApplication = "urn:nrua:partOfApplication"
	HasOutput         = "urn:nrua:hasOutput"
	OutputIndex       = "urn:nrua:outputIndex"
	OutputTarget      = "urn:nrua:outputTarget"
)

// excludedKeys are never walked by the PropertyValue encoder; id/type/z are
// structural, x/y/d/g are editor canvas placement, wires/name/label are
// captured as first-class relations, info/disabled/env are non-semantic.
var excludedKeys = map[string]bool{
	"id": true, "type": true, "z": true, "x": true, "y": true,
	"wires": true, "info": true, "d": true, "g": true,
	"label": true, "disabled": true, "env": true, "name": true,
}

// AppID, FlowID, NodeID, OutputID mint the stable identifiers of §3
// "Identifier rules". They are pure functions of their inputs: re-running
// the translator over byte-identical input reproduces identical ids.
func AppID(instance string) string { return "urn:nrua:a" + instance }
func FlowID(tabID string) string   { return "urn:nrua:f" + tabID }
func NodeID(nodeID string) string  { return "urn:nrua:n" + nodeID }
func OutputID(nodeID string, gate int) string {
	return "urn:nrua:o" + nodeID + strconv.Itoa(gate)
}

func typeOf(r RawNode) string {
	s, _ := r["type"].(string)
	return s
}

func idOf(r RawNode) string {
	s, _ := r["id"].(string)
	return s
}

func refValue(id string) map[string]interface{} {
	return map[string]interface{}{"@id": id}
}

func litValue(v interface{}) map[string]interface{} {
	return map[string]interface{}{"@value": v}
}

func urlSafe(s string) string {
	return url.QueryEscape(s)
}

// Translate builds the full application graph for flowConfig, rooted at the
// application identified by instance. It returns the final, already
// array-shaped node list (§4.E "Final check before load"); a SchemaViolation
// error means the caller must not submit anything to the store.
func Translate(instance string, flowConfig []RawNode) ([]jsonld.Node, error) {
	appID := AppID(instance)
	nodes := []jsonld.Node{{"@id": appID, "@type": []string{ClassApplication}}}

	flowIndex := map[string]int{} // flow id -> index into nodes
	keywordSets := map[string]map[string]bool{}

	for _, raw := range flowConfig {
		if typeOf(raw) != "tab" {
			continue
		}
		fid := FlowID(idOf(raw))
		fn := jsonld.Node{
			"@id":             fid,
			"@type":           []string{ClassFlow},
			PartOfApplication: []interface{}{refValue(appID)},
		}
		if label, ok := raw["label"].(string); ok && label != "" {
			fn[schema.Name] = []interface{}{litValue(label)}
		}
		nodes = append(nodes, fn)
		flowIndex[fid] = len(nodes) - 1
		keywordSets[fid] = map[string]bool{}
	}

	var auxNodes []jsonld.Node
	var outputNodes []jsonld.Node

	for _, raw := range flowConfig {
		if typeOf(raw) == "tab" {
			continue
		}
		nid := NodeID(idOf(raw))

		partPred, containerID := PartOfApplication, appID
		if z, ok := raw["z"].(string); ok && z != "" {
			if fid := FlowID(z); keywordSets[fid] != nil {
				partPred, containerID = PartOfFlow, fid
				keywordSets[fid][typeOf(raw)] = true
			}
		}

		nn := jsonld.Node{
			"@id":    nid,
			"@type":  []string{ClassNode},
			partPred: []interface{}{refValue(containerID)},
		}
		if name, ok := raw["name"].(string); ok && name != "" {
			nn[schema.Name] = []interface{}{litValue(name)}
		}

		var addlProps []interface{}
		for _, k := range jsonld.SortedKeys(raw) {
			if excludedKeys[k] {
				continue
			}
			auxID := nid + "/" + urlSafe(k)
			encodeProperty(auxID, k, raw[k], &auxNodes)
			addlProps = append(addlProps, refValue(auxID))
		}
		if len(addlProps) > 0 {
			nn[schema.AdditionalProperty] = addlProps
		}

		if wires, ok := raw["wires"].([]interface{}); ok {
			var hasOutputs []interface{}
			for gi, wg := range wires {
				targets, _ := wg.([]interface{})
				var targetRefs []interface{}
				for _, t := range targets {
					tid, _ := t.(string)
					if tid == "" {
						continue
					}
					targetRefs = append(targetRefs, refValue(NodeID(tid)))
				}
				if len(targetRefs) == 0 {
					continue
				}
				outID := OutputID(idOf(raw), gi)
				outputNodes = append(outputNodes, jsonld.Node{
					"@id":        outID,
					"@type":      []string{ClassNodeOutput},
					OutputIndex:  []interface{}{litValue(gi)},
					OutputTarget: targetRefs,
				})
				hasOutputs = append(hasOutputs, refValue(outID))
			}
			if len(hasOutputs) > 0 {
				nn[HasOutput] = hasOutputs
			}
		}

		nodes = append(nodes, nn)
	}

	for fid, idx := range flowIndex {
		set := keywordSets[fid]
		if len(set) == 0 {
			continue
		}
		kws := make([]string, 0, len(set))
		for k := range set {
			kws = append(kws, strings.TrimSpace(k))
		}
		sort.Strings(kws)
		nodes[idx][schema.Keywords] = []interface{}{litValue(strings.Join(kws, ","))}
	}

	nodes = append(nodes, auxNodes...)
	nodes = append(nodes, outputNodes...)

	if err := jsonld.ValidateArrayShaped(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// classify dispatches a raw config value into the three shapes the
// PropertyValue encoder recognizes (§4.E, §9 "recursive tagged encoding").
func classify(v interface{}) string {
	switch v.(type) {
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "primitive"
	}
}

// encodeProperty emits the aux node(s) representing key's value at id, per
// the PropertyValue/ItemList/StructuredValue encoding rules. Object keys are
// visited in sorted order so that repeated runs over identical input
// produce identical ids (§4.E "Determinism requirements").
func encodeProperty(id, key string, value interface{}, out *[]jsonld.Node) {
	switch classify(value) {
	case "array":
		arr := value.([]interface{})
		elements := make([]interface{}, 0, len(arr))
		for i, item := range arr {
			itemID := id + "/" + strconv.Itoa(i)
			li := jsonld.Node{
				"@id":           itemID,
				"@type":         []string{schema.ListItem},
				schema.Position: []interface{}{litValue(i)},
			}
			if classify(item) == "primitive" {
				li[schema.Item] = []interface{}{litValue(item)}
			} else {
				nestedID := itemID + "/item"
				encodeProperty(nestedID, "", item, out)
				li[schema.Item] = []interface{}{refValue(nestedID)}
			}
			*out = append(*out, li)
			elements = append(elements, refValue(itemID))
		}
		*out = append(*out, jsonld.Node{
			"@id":                  id,
			"@type":                []string{schema.ItemList},
			schema.ItemListElement: elements,
		})
	case "object":
		obj := value.(map[string]interface{})
		props := make([]interface{}, 0, len(obj))
		for _, k := range jsonld.SortedKeys(obj) {
			childID := id + "/" + urlSafe(k)
			encodeProperty(childID, k, obj[k], out)
			props = append(props, refValue(childID))
		}
		*out = append(*out, jsonld.Node{
			"@id":                     id,
			"@type":                   []string{schema.StructuredValue},
			schema.AdditionalProperty: props,
		})
	default:
		*out = append(*out, jsonld.Node{
			"@id":        id,
			"@type":      []string{schema.PropertyValue},
			schema.Name:  []interface{}{litValue(key)},
			schema.Value: []interface{}{litValue(value)},
		})
	}
}

