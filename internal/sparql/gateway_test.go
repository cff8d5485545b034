package sparql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/sparql"
	"github.com/nrua/urdf-core/internal/store"
)

func TestRewriteUsesBareAForTypeIndexZero(t *testing.T) {
	d, err := dict.Load([]byte(`["http://www.w3.org/1999/02/22-rdf-syntax-ns#type","urn:Person"]`))
	require.NoError(t, err)

	q := `SELECT ?s WHERE { ?s <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <urn:Person> . }`
	got := sparql.Rewrite(q, d)
	require.Equal(t, `SELECT ?s WHERE { ?s a <z:1> . }`, got)
}

func TestRewriteSkipsSubstitutionInsideCall(t *testing.T) {
	d, err := dict.Load([]byte(`["http://www.w3.org/1999/02/22-rdf-syntax-ns#type"]`))
	require.NoError(t, err)
	q := `SELECT ?s WHERE { ?s ?p ?o . FILTER(STRSTARTS(?o, <http://www.w3.org/1999/02/22-rdf-syntax-ns#type>)) }`
	got := sparql.Rewrite(q, d)
	require.Contains(t, got, "<z:0>")
	require.NotContains(t, got, " a ")
}

func TestCheckContractRejectsPrefixAndBase(t *testing.T) {
	require.Error(t, sparql.CheckContract(`PREFIX ex: <urn:ex:> SELECT * WHERE { ?s ?p ?o }`))
	require.Error(t, sparql.CheckContract(`BASE <urn:ex:> SELECT * WHERE { ?s ?p ?o }`))
	require.NoError(t, sparql.CheckContract(`SELECT * WHERE { ?s ?p ?o }`))
}

func TestGatewayEndToEnd(t *testing.T) {
	d, err := dict.Load([]byte(`["http://www.w3.org/1999/02/22-rdf-syntax-ns#type"]`))
	require.NoError(t, err)

	s2 := store.New(d, nil)
	s2.SetEvaluator(sparql.NewMemEvaluator(s2))
	_, err = s2.Load([]store.GraphDoc{{ID: "g", Graph: []interface{}{
		map[string]interface{}{"@id": "urn:x", "urn:name": "bob"},
	}}})
	require.NoError(t, err)

	gw := sparql.New(s2)
	res, err := gw.Query(context.Background(), `SELECT ?o WHERE { <urn:x> <urn:name> ?o . }`, "g")
	require.NoError(t, err)
	require.False(t, res.IsAsk)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "bob", res.Rows[0]["o"])
}
