package inference_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nrua/urdf-core/internal/inference"
	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/reasoner"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/voc/schema"
)

func lit(v interface{}) []interface{} { return []interface{}{map[string]interface{}{"@value": v}} }
func ref(id string) []interface{}     { return []interface{}{map[string]interface{}{"@id": id}} }

type fakeStore struct {
	rules        []jsonld.Node
	queryResults map[string]store.QueryResult
	cleared      []string
	loaded       []store.GraphDoc
}

func (f *fakeStore) FindGraph(gid string) ([]jsonld.Node, error) { return f.rules, nil }

func (f *fakeStore) Query(_ context.Context, q string, _ string) (store.QueryResult, error) {
	r, ok := f.queryResults[q]
	if !ok {
		return store.QueryResult{}, errors.New("unexpected query: " + q)
	}
	return r, nil
}

func (f *fakeStore) Clear(gid string) { f.cleared = append(f.cleared, gid) }

func (f *fakeStore) Load(docs []store.GraphDoc) (int, error) {
	f.loaded = docs
	total := 0
	for _, d := range docs {
		total += len(d.Graph)
	}
	return total, nil
}

type fakeReasoner struct{}

func (fakeReasoner) Reason(_ context.Context, _ string, onDerived reasoner.OnDerived) error {
	onDerived(reasoner.Fact{Subject: "urn:n1", Predicate: "urn:nrua:pv:name", Object: `"alice"`})
	onDerived(reasoner.Fact{Subject: "urn:n1", Predicate: "urn:derived2", Object: `"same-name-alice"`})
	return nil
}

// TestSPARQLAndN3RulesAggregate covers §8 scenario S3: a SPARQL rule and an
// N3 rule both contribute to the inferred graph, and any urn:nrua:pv: helper
// predicate never survives into it.
func TestSPARQLAndN3RulesAggregate(t *testing.T) {
	sparqlText := "SELECT ?s ?p ?o WHERE { ?s urn:name ?o }"
	projText := "SELECT ?n ?name WHERE { ?n urn:nrua:pv:name ?name }"

	sparqlRule := jsonld.Node{
		"@id":                       "urn:rule1",
		"@type":                     []string{schema.Rule},
		schema.Text:                 lit(sparqlText),
		schema.ProgrammingLanguage:  lit("sparql"),
	}
	projNode := jsonld.Node{
		"@id":   "urn:proj1",
		"@type": []string{schema.SoftwareSourceCode},
		schema.Text: lit(projText),
	}
	n3Rule := jsonld.Node{
		"@id":                      "urn:rule2",
		"@type":                    []string{schema.Rule},
		schema.ProgrammingLanguage: lit("n3"),
		schema.HasPart:             ref("urn:proj1"),
		schema.Text:                lit(`{?n urn:nrua:pv:name ?name} => {?n urn:derived2 "x"} .`),
	}

	fs := &fakeStore{
		rules: []jsonld.Node{sparqlRule, n3Rule, projNode},
		queryResults: map[string]store.QueryResult{
			sparqlText: {Rows: []map[string]interface{}{{"s": "urn:n1", "p": "urn:derived", "o": "same-name-alice"}}},
			projText:   {Rows: []map[string]interface{}{{"n": "urn:n1", "name": "alice"}}},
		},
	}

	o := inference.New(fs, fakeReasoner{}, "urn:rules", "urn:inferred", nil, nil)
	err := o.Run(context.Background(), "test")
	require.NoError(t, err)
	require.Contains(t, fs.cleared, "urn:inferred")
	require.Len(t, fs.loaded, 1)
	require.Equal(t, "urn:inferred", fs.loaded[0].ID)

	var n1 map[string]interface{}
	for _, raw := range fs.loaded[0].Graph {
		m := raw.(map[string]interface{})
		if m["@id"] == "urn:n1" {
			n1 = m
		}
	}
	require.NotNil(t, n1)
	require.Contains(t, n1, "urn:derived")
	require.Contains(t, n1, "urn:derived2")
	require.NotContains(t, n1, "urn:nrua:pv:name")
}

// TestMissingReasonerSkipsN3RulesOnly covers the "missing reasoner
// capability" failure mode: N3 rules are skipped but SPARQL rules still run.
func TestMissingReasonerSkipsN3RulesOnly(t *testing.T) {
	sparqlText := "SELECT ?s ?p ?o WHERE { ?s urn:name ?o }"
	sparqlRule := jsonld.Node{
		"@id":                      "urn:rule1",
		"@type":                    []string{schema.Rule},
		schema.Text:                lit(sparqlText),
		schema.ProgrammingLanguage: lit("sparql"),
	}
	n3Rule := jsonld.Node{
		"@id":                      "urn:rule2",
		"@type":                    []string{schema.Rule},
		schema.ProgrammingLanguage: lit("n3"),
		schema.HasPart:             ref("urn:missing"),
	}
	fs := &fakeStore{
		rules: []jsonld.Node{sparqlRule, n3Rule},
		queryResults: map[string]store.QueryResult{
			sparqlText: {Rows: []map[string]interface{}{{"s": "urn:n1", "p": "urn:derived", "o": "v"}}},
		},
	}

	o := inference.New(fs, nil, "urn:rules", "urn:inferred", nil, nil)
	err := o.Run(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, fs.loaded[0].Graph, 1)
}

// TestEmptyRulesGraphClearsInferred covers §4.F step 1.
func TestEmptyRulesGraphClearsInferred(t *testing.T) {
	fs := &fakeStore{rules: nil, queryResults: map[string]store.QueryResult{}}
	o := inference.New(fs, nil, "urn:rules", "urn:inferred", nil, nil)
	require.NoError(t, o.Run(context.Background(), "test"))
	require.Contains(t, fs.cleared, "urn:inferred")
	require.Nil(t, fs.loaded)
}

// TestDebouncerCoalescesWithinWindow covers §8 invariant 6 (S6): N triggers
// within the window collapse into one run.
func TestDebouncerCoalescesWithinWindow(t *testing.T) {
	runs := 0
	done := make(chan struct{}, 10)
	d := inference.NewDebouncer(30*time.Millisecond, func(ctx context.Context, reason string) error {
		runs++
		done <- struct{}{}
		return nil
	}, nil)

	for i := 0; i < 5; i++ {
		d.Trigger(context.Background(), "flows:updated")
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("debounced run never fired")
	}
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, runs)

	d.Trigger(context.Background(), "flows:updated")
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("second debounced run never fired")
	}
	require.Equal(t, 2, runs)
}
