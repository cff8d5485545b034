package rulesmgr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/rulesmgr"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/internal/urdferr"
	"github.com/nrua/urdf-core/voc/schema"
)

func ruleNode(id string) jsonld.Node {
	return jsonld.Node{
		"@id":         id,
		"@type":       []string{schema.Rule},
		schema.Text:   []interface{}{map[string]interface{}{"@value": "SELECT * WHERE { ?s ?p ?o }"}},
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	st := store.New(dict.New(), nil)
	m := rulesmgr.New(st, "urn:rules", nil)

	require.NoError(t, m.Create(ruleNode("urn:r1")))
	err := m.Create(ruleNode("urn:r1"))
	require.Error(t, err)
	require.Equal(t, urdferr.KindConflict, urdferr.KindOf(err))
	require.Equal(t, 409, urdferr.HTTPStatus(urdferr.KindOf(err)))
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	st := store.New(dict.New(), nil)
	m := rulesmgr.New(st, "urn:rules", nil)
	err := m.Update(ruleNode("urn:missing"))
	require.Error(t, err)
	require.Equal(t, urdferr.KindNotFound, urdferr.KindOf(err))
}

func TestDeleteFiresTrigger(t *testing.T) {
	st := store.New(dict.New(), nil)
	fired := ""
	m := rulesmgr.New(st, "urn:rules", func(ctx context.Context, reason string) { fired = reason })

	require.NoError(t, m.Create(ruleNode("urn:r1")))
	require.NoError(t, m.Delete("urn:r1"))
	require.Equal(t, "rules:delete", fired)

	_, err := st.Find("urn:r1", "urn:rules")
	require.Error(t, err)
}
