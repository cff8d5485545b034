package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/store"
)

func TestLoadFindClearSize(t *testing.T) {
	d, err := dict.Load([]byte(`["urn:a/type","urn:a/name"]`))
	require.NoError(t, err)
	s := store.New(d, nil)

	docs := []store.GraphDoc{{
		ID: "urn:graphs:app",
		Graph: []interface{}{
			map[string]interface{}{
				"@id":        "urn:x",
				"urn:a/type": map[string]interface{}{"@id": "urn:C"},
				"urn:a/name": map[string]interface{}{"@value": "N"},
			},
		},
	}}
	added, err := s.Load(docs)
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, 2, s.Size("urn:graphs:app"))
	require.Equal(t, 2, s.Size(""))

	n, err := s.Find("urn:x", "urn:graphs:app")
	require.NoError(t, err)
	require.Equal(t, "urn:x", n.ID())

	_, err = s.Find("urn:missing", "")
	require.Error(t, err)

	nodes, err := s.FindGraph("urn:graphs:app")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	s.Clear("urn:graphs:app")
	require.Equal(t, 0, s.Size(""))
	_, err = s.FindGraph("urn:graphs:app")
	require.Error(t, err)
}

func TestLoadUnionSemanticsMergesExistingNode(t *testing.T) {
	s := store.New(nil, nil)
	gid := "urn:graphs:g"
	_, err := s.Load([]store.GraphDoc{{ID: gid, Graph: []interface{}{
		map[string]interface{}{"@id": "urn:x", "urn:p": "a"},
	}}})
	require.NoError(t, err)
	_, err = s.Load([]store.GraphDoc{{ID: gid, Graph: []interface{}{
		map[string]interface{}{"@id": "urn:x", "urn:p": "b"},
	}}})
	require.NoError(t, err)

	n, err := s.Find("urn:x", gid)
	require.NoError(t, err)
	vals := n["urn:p"].([]interface{})
	require.Len(t, vals, 2)
}

func TestClearWholeStore(t *testing.T) {
	s := store.New(nil, nil)
	_, err := s.Load([]store.GraphDoc{{ID: "g1", Graph: []interface{}{
		map[string]interface{}{"@id": "urn:x", "urn:p": "a"},
	}}})
	require.NoError(t, err)
	s.Clear("")
	require.Equal(t, 0, s.Size(""))
	require.Empty(t, s.GraphIDs())
}
