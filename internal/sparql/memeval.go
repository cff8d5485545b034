package sparql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/urdferr"
)

// GraphSource supplies the triples a MemEvaluator scans; *store.Store
// satisfies it via its FindGraphCompressed and GraphIDs methods, so the
// evaluator depends only on this narrow interface. FindGraphCompressed, not
// FindGraph, is the right source here:
// the Gateway rewrites query text to the store's compressed z:<n> tokens
// before it reaches this evaluator, so the triples it scans must be in that
// same compressed form or nothing would ever match.
type GraphSource interface {
	FindGraphCompressed(gid string) ([]jsonld.Node, error)
	GraphIDs() []string
}

// MemEvaluator is a minimal, in-process SPARQL SELECT/ASK evaluator over a
// single basic graph pattern of "s p o" lines, grounded on the
// bound-position pattern matching used by the pack's own triple-store query
// planners (selecting an index by which of S/P/O/G is bound). It is meant
// as the built-in, dependency-free default; §1 explicitly treats a full
// SPARQL evaluator as an external, swappable capability, so production
// deployments are expected to inject a real one via store.Evaluator.
type MemEvaluator struct {
	src GraphSource
}

// NewMemEvaluator builds an evaluator scanning src.
func NewMemEvaluator(src GraphSource) *MemEvaluator { return &MemEvaluator{src: src} }

var (
	selectHeader = regexp.MustCompile(`(?is)^\s*SELECT\s+(.*?)\s+WHERE\s*\{(.*)\}\s*$`)
	askHeader    = regexp.MustCompile(`(?is)^\s*ASK\s*\{(.*)\}\s*$`)
	triplePat    = regexp.MustCompile(`(?s)(\S+)\s+(\S+)\s+(\S+)\s*\.`)
)

type term struct {
	kind string // "var", "iri", "lit", "a"
	text string
}

func parseTerm(s string) term {
	switch {
	case s == "a":
		return term{kind: "a"}
	case strings.HasPrefix(s, "?") || strings.HasPrefix(s, "$"):
		return term{kind: "var", text: s[1:]}
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return term{kind: "iri", text: s[1 : len(s)-1]}
	default:
		return term{kind: "lit", text: strings.Trim(s, `"`)}
	}
}

// Query implements store.Evaluator (structurally; store.Evaluator has the
// identical signature, and cmd/urdfd passes a MemEvaluator to
// store.SetEvaluator).
func (m *MemEvaluator) Query(_ context.Context, sparqlText string, gid string) (isAsk bool, ask bool, rows []map[string]interface{}, err error) {
	if mm := askHeader.FindStringSubmatch(sparqlText); mm != nil {
		bindings, berr := m.eval(mm[1], gid)
		if berr != nil {
			return false, false, nil, berr
		}
		return true, len(bindings) > 0, nil, nil
	}
	mm := selectHeader.FindStringSubmatch(sparqlText)
	if mm == nil {
		return false, false, nil, urdferr.New(urdferr.KindEvaluator, "unsupported query form; expected SELECT ... WHERE { ... } or ASK { ... }")
	}
	vars := parseSelectVars(mm[1])
	bindings, berr := m.eval(mm[2], gid)
	if berr != nil {
		return false, false, nil, berr
	}
	rows = make([]map[string]interface{}, 0, len(bindings))
	for _, b := range bindings {
		row := map[string]interface{}{}
		if vars == nil {
			for k, val := range b {
				row[k] = val
			}
		}
		for _, v := range vars {
			if val, ok := b[v]; ok {
				row[v] = val
			}
		}
		rows = append(rows, row)
	}
	return false, false, rows, nil
}

func parseSelectVars(projection string) []string {
	projection = strings.TrimSpace(projection)
	if projection == "*" {
		return nil // resolved per-binding below when empty
	}
	var vars []string
	for _, f := range strings.Fields(projection) {
		f = strings.TrimPrefix(f, "?")
		f = strings.TrimPrefix(f, "$")
		vars = append(vars, f)
	}
	return vars
}

// eval matches every "s p o ." pattern in block against the nodes reachable
// from gid (or the whole store if gid == ""), conjunctively joining
// bindings across patterns the way a basic graph pattern does.
func (m *MemEvaluator) eval(block string, gid string) ([]map[string]string, error) {
	var patterns [][3]term
	for _, mm := range triplePat.FindAllStringSubmatch(block, -1) {
		patterns = append(patterns, [3]term{parseTerm(mm[1]), parseTerm(mm[2]), parseTerm(mm[3])})
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	triples, err := m.triples(gid)
	if err != nil {
		return nil, err
	}

	bindings := []map[string]string{{}}
	for _, p := range patterns {
		var next []map[string]string
		for _, b := range bindings {
			for _, t := range triples {
				nb, ok := matchPattern(p, t, b)
				if ok {
					next = append(next, nb)
				}
			}
		}
		bindings = next
	}
	return bindings, nil
}

type triple struct{ s, p, o string }

func (m *MemEvaluator) triples(gid string) ([]triple, error) {
	gids := []string{gid}
	if gid == "" {
		gids = m.src.GraphIDs()
	}
	var out []triple
	for _, g := range gids {
		nodes, err := m.src.FindGraphCompressed(g)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			s := n.ID()
			for _, t := range n.Types() {
				out = append(out, triple{s: s, p: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", o: t})
			}
			for k, v := range n {
				if k == "@id" || k == "@type" {
					continue
				}
				arr, _ := v.([]interface{})
				for _, vo := range arr {
					vm, _ := vo.(map[string]interface{})
					if id, ok := vm["@id"].(string); ok {
						out = append(out, triple{s: s, p: k, o: id})
					} else if val, ok := vm["@value"]; ok {
						out = append(out, triple{s: s, p: k, o: fmt.Sprintf("%v", val)})
					}
				}
			}
		}
	}
	return out, nil
}

func matchPattern(p [3]term, t triple, b map[string]string) (map[string]string, bool) {
	nb := make(map[string]string, len(b)+3)
	for k, v := range b {
		nb[k] = v
	}
	bindOne := func(pt term, val string) bool {
		switch pt.kind {
		case "a":
			return val == "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
		case "iri", "lit":
			return pt.text == val
		case "var":
			if existing, ok := nb[pt.text]; ok {
				return existing == val
			}
			nb[pt.text] = val
			return true
		}
		return false
	}
	if !bindOne(p[1], t.p) {
		return nil, false
	}
	if !bindOne(p[0], t.s) {
		return nil, false
	}
	if !bindOne(p[2], t.o) {
		return nil, false
	}
	return nb, true
}
