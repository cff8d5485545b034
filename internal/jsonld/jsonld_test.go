package jsonld_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/jsonld"
)

func mustDict(t *testing.T, iris ...string) *dict.Dictionary {
	t.Helper()
	raw := "["
	for i, iri := range iris {
		if i > 0 {
			raw += ","
		}
		raw += `"` + iri + `"`
	}
	raw += "]"
	d, err := dict.Load([]byte(raw))
	require.NoError(t, err)
	return d
}

// S1 from spec.md §8.
func TestCompressExpandRoundTrip(t *testing.T) {
	d := mustDict(t, "urn:a/type", "urn:a/name")

	raw := []interface{}{
		map[string]interface{}{
			"@id":        "urn:x",
			"urn:a/type": map[string]interface{}{"@id": "urn:C"},
			"urn:a/name": map[string]interface{}{"@value": "N"},
		},
	}
	flat, err := jsonld.Flatten(raw)
	require.NoError(t, err)
	require.NoError(t, jsonld.ValidateArrayShaped(flat))

	compressed := jsonld.Compress(flat, d)
	require.Contains(t, compressed[0], "z:0")
	require.Contains(t, compressed[0], "z:1")

	expanded := jsonld.ExpandGraph(compressed, d)
	require.Equal(t, flat, expanded)
}

func TestFlattenHoistsEmbeddedNode(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{
			"@id":  "urn:parent",
			"@type": "urn:Parent",
			"urn:has": map[string]interface{}{
				"@type":   "urn:Child",
				"urn:name": "kid",
			},
		},
	}
	flat, err := jsonld.Flatten(raw)
	require.NoError(t, err)
	require.Len(t, flat, 2)

	var parent, child jsonld.Node
	for _, n := range flat {
		if n.ID() == "urn:parent" {
			parent = n
		} else {
			child = n
		}
	}
	require.NotNil(t, parent)
	require.NotNil(t, child)

	refs, ok := parent["urn:has"].([]interface{})
	require.True(t, ok)
	require.Len(t, refs, 1)
	ref := refs[0].(map[string]interface{})
	require.Equal(t, child.ID(), ref["@id"])
	require.Len(t, ref, 1, "embedded node must be replaced by a pure reference")
}

func TestValidateArrayShapedRejectsScalar(t *testing.T) {
	bad := []jsonld.Node{
		{"@id": "urn:x", "urn:p": "not-an-array"},
	}
	err := jsonld.ValidateArrayShaped(bad)
	require.Error(t, err)
}

func TestExpandQueryValueHandlesEmbeddedTokens(t *testing.T) {
	d := mustDict(t, "urn:a/type")
	out := jsonld.ExpandQueryValue("<z:0>", d)
	require.Equal(t, "<urn:a/type>", out)
}
