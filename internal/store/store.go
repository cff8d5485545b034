// Package store implements the in-memory named-graph quad store (component
// B): union-semantics load, clear, find, size, and delegated SPARQL query.
//
// The store is the single shared mutable resource described in §5. Every
// method takes the store's own RWMutex, so individual calls are safe from
// concurrent goroutines (cmd/urdfd calls it from HTTP handlers and from the
// inference debouncer); a sequence of calls, such as Clear followed by Load,
// is not atomic as a whole.
package store

import (
	"context"
	"sync"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/urdferr"
)

// GraphDoc is one named graph as shaped on the wire: {"@id": gid, "@graph": [...]}.
type GraphDoc struct {
	ID    string        `json:"@id"`
	Graph []interface{} `json:"@graph"`
}

// Evaluator is the black-box SPARQL capability the store delegates queries
// to (component D wraps this with rewriting/expansion; the store itself
// only needs to know how to ask a question and get an answer back).
type Evaluator interface {
	// Query runs sparql against the graph named gid ("" for the whole
	// store) and returns either a bool (ASK) or []map[string]any (SELECT).
	Query(ctx context.Context, sparql string, gid string) (isAsk bool, ask bool, rows []map[string]interface{}, err error)
}

// Store is the in-memory named-graph container.
type Store struct {
	mu   sync.RWMutex // guards graphs; see package doc re single-writer discipline
	dict *dict.Dictionary
	eval Evaluator

	// graphs holds COMPRESSED nodes, indexed by graph id then node id.
	graphs map[string]map[string]jsonld.Node
}

// New builds an empty store bound to d for compression and eval for SPARQL
// delegation. Either may be nil in tests that do not exercise them.
func New(d *dict.Dictionary, eval Evaluator) *Store {
	if d == nil {
		d = dict.New()
	}
	return &Store{
		dict:   d,
		eval:   eval,
		graphs: map[string]map[string]jsonld.Node{},
	}
}

// Dictionary exposes the bound dictionary, e.g. for the SPARQL gateway.
func (s *Store) Dictionary() *dict.Dictionary { return s.dict }

// SetEvaluator binds (or rebinds) the SPARQL evaluator. It exists because an
// in-process evaluator (e.g. sparql.MemEvaluator) typically needs a
// reference to this very store to scan it, which creates an initialization
// cycle New(dict, eval) can't resolve by itself.
func (s *Store) SetEvaluator(eval Evaluator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eval = eval
}

// Load ingests docs with union semantics per graph: flattening, array-shape
// validation, and dictionary compression happen here, before anything is
// committed. No partial writes: if any graph fails validation, none of the
// docs are applied.
func (s *Store) Load(docs []GraphDoc) (addedTriples int, err error) {
	type prepared struct {
		gid   string
		nodes []jsonld.Node
	}
	var batch []prepared
	for _, doc := range docs {
		flat, ferr := jsonld.Flatten(doc.Graph)
		if ferr != nil {
			return 0, urdferr.Wrap(urdferr.KindSchema, "flatten failed for graph "+doc.ID, ferr)
		}
		if verr := jsonld.ValidateArrayShaped(flat); verr != nil {
			return 0, verr
		}
		batch = append(batch, prepared{gid: doc.ID, nodes: jsonld.Compress(flat, s.dict)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range batch {
		g, ok := s.graphs[b.gid]
		if !ok {
			g = map[string]jsonld.Node{}
			s.graphs[b.gid] = g
		}
		for _, n := range b.nodes {
			id := n.ID()
			before := tripleCount(g[id])
			if existing, ok := g[id]; ok {
				g[id] = jsonld.MergeNode(existing, n)
			} else {
				g[id] = n
			}
			addedTriples += tripleCount(g[id]) - before
		}
	}
	return addedTriples, nil
}

func tripleCount(n jsonld.Node) int {
	if n == nil {
		return 0
	}
	total := 0
	for k, v := range n {
		if k == "@id" {
			continue
		}
		if k == "@type" {
			total += len(n.Types())
			continue
		}
		arr, _ := v.([]interface{})
		total += len(arr)
	}
	return total
}

// Clear removes one named graph, or the entire store if gid == "".
func (s *Store) Clear(gid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gid == "" {
		s.graphs = map[string]map[string]jsonld.Node{}
		return
	}
	delete(s.graphs, gid)
}

// Find returns the expanded node with id, optionally scoped to gid ("" =
// search every graph, first match wins). It returns urdferr KindNotFound
// distinctly from any other error.
func (s *Store) Find(id string, gid string) (jsonld.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid := s.dict.CompressToken(id)

	search := func(g map[string]jsonld.Node) (jsonld.Node, bool) {
		if n, ok := g[cid]; ok {
			return n, true
		}
		return nil, false
	}

	if gid != "" {
		g, ok := s.graphs[gid]
		if !ok {
			return nil, urdferr.New(urdferr.KindNotFound, "graph not found: "+gid)
		}
		n, ok := search(g)
		if !ok {
			return nil, urdferr.New(urdferr.KindNotFound, "node not found: "+id)
		}
		return jsonld.ExpandGraph([]jsonld.Node{n}, s.dict)[0], nil
	}
	for _, g := range s.graphs {
		if n, ok := search(g); ok {
			return jsonld.ExpandGraph([]jsonld.Node{n}, s.dict)[0], nil
		}
	}
	return nil, urdferr.New(urdferr.KindNotFound, "node not found: "+id)
}

// FindGraph returns every node in the named graph (or every node in the
// store's default union if gid == "").
func (s *Store) FindGraph(gid string) ([]jsonld.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gid != "" {
		g, ok := s.graphs[gid]
		if !ok {
			return nil, urdferr.New(urdferr.KindNotFound, "graph not found: "+gid)
		}
		return jsonld.ExpandGraph(collectNodes(g), s.dict), nil
	}
	var all []jsonld.Node
	for _, g := range s.graphs {
		all = append(all, collectNodes(g)...)
	}
	return jsonld.ExpandGraph(all, s.dict), nil
}

// FindGraphCompressed returns every node in the named graph (or the whole
// store if gid == "") in its stored, dictionary-compressed form -- i.e.
// without the expansion FindGraph applies. It exists for evaluators such as
// sparql.MemEvaluator that scan triples against a query already rewritten
// to z:<n> tokens by the SPARQL Gateway: matching compressed query text
// against expanded node data would never succeed.
func (s *Store) FindGraphCompressed(gid string) ([]jsonld.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gid != "" {
		g, ok := s.graphs[gid]
		if !ok {
			return nil, urdferr.New(urdferr.KindNotFound, "graph not found: "+gid)
		}
		return collectNodes(g), nil
	}
	var all []jsonld.Node
	for _, g := range s.graphs {
		all = append(all, collectNodes(g)...)
	}
	return all, nil
}

func collectNodes(g map[string]jsonld.Node) []jsonld.Node {
	out := make([]jsonld.Node, 0, len(g))
	for _, n := range g {
		out = append(out, n)
	}
	return out
}

// Size returns the triple count of the whole store, or of gid if given.
func (s *Store) Size(gid string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	if gid != "" {
		for _, n := range s.graphs[gid] {
			total += tripleCount(n)
		}
		return total
	}
	for _, g := range s.graphs {
		for _, n := range g {
			total += tripleCount(n)
		}
	}
	return total
}

// GraphIDs returns every named graph id currently loaded.
func (s *Store) GraphIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.graphs))
	for gid := range s.graphs {
		out = append(out, gid)
	}
	return out
}

// QueryResult is the outcome of Query: exactly one of Ask/Rows is populated,
// selected by IsAsk.
type QueryResult struct {
	IsAsk bool
	Ask   bool
	Rows  []map[string]interface{}
}

// Query delegates sparql to the bound Evaluator and expands the result
// before returning it, per the store's "answers are expanded before leaving
// the core" contract.
func (s *Store) Query(ctx context.Context, sparql string, gid string) (QueryResult, error) {
	if s.eval == nil {
		return QueryResult{}, urdferr.New(urdferr.KindNotImplemented, "no SPARQL evaluator configured")
	}
	isAsk, ask, rows, err := s.eval.Query(ctx, sparql, gid)
	if err != nil {
		return QueryResult{}, urdferr.Wrap(urdferr.KindEvaluator, "query evaluation failed", err)
	}
	if isAsk {
		return QueryResult{IsAsk: true, Ask: ask}, nil
	}
	expanded := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		er := make(map[string]interface{}, len(row))
		for k, v := range row {
			er[k] = jsonld.ExpandQueryValue(v, s.dict)
		}
		expanded[i] = er
	}
	return QueryResult{Rows: expanded}, nil
}
