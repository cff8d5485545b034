package translator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/translator"
	"github.com/nrua/urdf-core/voc/schema"
)

func findNode(t *testing.T, nodes []jsonld.Node, id string) jsonld.Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID() == id {
			return n
		}
	}
	t.Fatalf("node %q not found", id)
	return nil
}

// TestOneFlowTwoInjectsOneDebug covers §8 scenario S4: one tab containing
// two inject nodes wired to one debug node.
func TestOneFlowTwoInjectsOneDebug(t *testing.T) {
	flow := []translator.RawNode{
		{"id": "tab1", "type": "tab", "label": "Flow 1"},
		{"id": "n1", "type": "inject", "z": "tab1", "name": "", "payload": "1", "wires": []interface{}{
			[]interface{}{"n3"},
		}},
		{"id": "n2", "type": "inject", "z": "tab1", "payload": "2", "wires": []interface{}{
			[]interface{}{"n3"},
		}},
		{"id": "n3", "type": "debug", "z": "tab1", "wires": []interface{}{}},
	}

	nodes, err := translator.Translate("host1", flow)
	require.NoError(t, err)
	require.NoError(t, jsonld.ValidateArrayShaped(nodes))

	var apps, flows, ns, outs, propVals int
	for _, n := range nodes {
		for _, ty := range n.Types() {
			switch ty {
			case translator.ClassApplication:
				apps++
			case translator.ClassFlow:
				flows++
			case translator.ClassNode:
				ns++
			case translator.ClassNodeOutput:
				outs++
			case schema.PropertyValue:
				propVals++
			}
		}
	}
	require.Equal(t, 1, apps)
	require.Equal(t, 1, flows)
	require.Equal(t, 3, ns)
	require.Equal(t, 2, outs)
	require.GreaterOrEqual(t, propVals, 1)

	flowNode := findNode(t, nodes, translator.FlowID("tab1"))
	kw := flowNode[schema.Keywords].([]interface{})
	require.Len(t, kw, 1)
	require.Equal(t, "debug,inject", kw[0].(map[string]interface{})["@value"])

	debugNode := findNode(t, nodes, translator.NodeID("n3"))
	require.Nil(t, debugNode[translator.HasOutput])
}

func TestDeterministicAcrossReruns(t *testing.T) {
	flow := []translator.RawNode{
		{"id": "tab1", "type": "tab", "label": "Flow 1"},
		{"id": "n1", "type": "inject", "z": "tab1", "config": map[string]interface{}{
			"b": 2, "a": 1,
		}, "wires": []interface{}{}},
	}
	a, err := translator.Translate("host1", flow)
	require.NoError(t, err)
	b, err := translator.Translate("host1", flow)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))

	idsA := map[string]bool{}
	for _, n := range a {
		idsA[n.ID()] = true
	}
	for _, n := range b {
		require.True(t, idsA[n.ID()], "id %q missing from second run", n.ID())
	}
}

func TestNodeWithoutFlowAttachesToApplication(t *testing.T) {
	flow := []translator.RawNode{
		{"id": "n1", "type": "global-config", "wires": []interface{}{}},
	}
	nodes, err := translator.Translate("host1", flow)
	require.NoError(t, err)

	n := findNode(t, nodes, translator.NodeID("n1"))
	ref := n[translator.PartOfApplication].([]interface{})
	require.Len(t, ref, 1)
	require.Equal(t, translator.AppID("host1"), ref[0].(map[string]interface{})["@id"])
}
