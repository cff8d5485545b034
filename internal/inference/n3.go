package inference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/reasoner"
	"github.com/nrua/urdf-core/voc/schema"
)

// runN3Rule executes the projection query referenced via schema:hasPart,
// serializes each valid binding to N-Triples, hands the concatenated
// fact-base plus the rule's own N3 program text to the reasoner, and
// collects every derived fact into derived (§4.F step 3, N3 branch).
func (o *Orchestrator) runN3Rule(ctx context.Context, rule jsonld.Node, byID map[string]jsonld.Node, derived map[string][]quadTerm) {
	part, ok := firstRef(rule, schema.HasPart)
	if !ok {
		o.log.Warn("N3 rule missing schema:hasPart projection resource", zap.String("rule", rule.ID()))
		return
	}
	src, ok := byID[part]
	if !ok {
		o.log.Warn("N3 rule's schema:hasPart target not found", zap.String("rule", rule.ID()), zap.String("part", part))
		return
	}
	projection := literalString(src, schema.Text)
	if projection == "" {
		o.log.Warn("N3 rule's projection resource has no schema:text", zap.String("rule", rule.ID()))
		return
	}

	res, err := o.store.Query(ctx, projection, o.queryGid)
	if err != nil {
		o.log.Warn("N3 rule projection query failed", zap.String("rule", rule.ID()), zap.Error(err))
		return
	}
	if res.IsAsk {
		o.log.Warn("N3 rule projection query must be a SELECT", zap.String("rule", rule.ID()))
		return
	}

	var facts strings.Builder
	for _, row := range res.Rows {
		s, p, o2, ok := extractSPO(row)
		if !ok {
			o.log.Warn("N3 projection binding could not be serialized", zap.String("rule", rule.ID()))
			continue
		}
		fmt.Fprintf(&facts, "<%s> <%s> %s .\n", s, p, ntriplesObject(o2))
	}

	program := facts.String() + "\n" + literalString(rule, schema.Text)

	err = o.reasoner.Reason(ctx, program, func(f reasoner.Fact) {
		derived[f.Subject] = append(derived[f.Subject], quadTerm{p: f.Predicate, o: decodeN3Object(f.Object)})
	})
	if err != nil {
		o.log.Warn("N3 rule reasoning failed", zap.String("rule", rule.ID()), zap.Error(err))
	}
}

// ntriplesObject renders an encodeLiteralOrIRI-marked string as an
// N-Triples object term: an IRI in angle brackets, or a quoted literal.
func ntriplesObject(marked string) string {
	if strings.HasPrefix(marked, "\x00") {
		return "<" + marked[1:] + ">"
	}
	return fmt.Sprintf("%q", strings.TrimPrefix(marked, "\x01"))
}

// decodeN3Object strips N3-style quoting from a reasoner-derived object term
// (§4.F step 3: "literal with N3-style quote stripping"), leaving IRIs and
// blank nodes untouched.
func decodeN3Object(s string) string {
	if looksLikeIRI(s) {
		return "\x00" + s
	}
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	return "\x01" + trimmed
}

func firstRef(n jsonld.Node, pred string) (string, bool) {
	arr, _ := n[pred].([]interface{})
	if len(arr) == 0 {
		return "", false
	}
	m, _ := arr[0].(map[string]interface{})
	id, ok := m["@id"].(string)
	return id, ok
}

// aggregate turns the per-subject quadTerm lists into array-shaped JSON-LD
// nodes, dropping internal helper predicates (§4.F step 4) in the single
// place both the SPARQL and N3 paths funnel through.
func aggregate(derived map[string][]quadTerm) []jsonld.Node {
	nodes := make([]jsonld.Node, 0, len(derived))
	for s, terms := range derived {
		byPred := map[string][]interface{}{}
		for _, t := range terms {
			if strings.HasPrefix(t.p, internalPredicatePrefix) {
				continue
			}
			byPred[t.p] = append(byPred[t.p], decodeMarked(t.o))
		}
		if len(byPred) == 0 {
			continue
		}
		n := jsonld.Node{"@id": s}
		for p, vals := range byPred {
			n[p] = vals
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func decodeMarked(marked string) map[string]interface{} {
	if strings.HasPrefix(marked, "\x00") {
		return map[string]interface{}{"@id": marked[1:]}
	}
	return map[string]interface{}{"@value": strings.TrimPrefix(marked, "\x01")}
}

// nodesToRaw converts normalized nodes back into the raw []interface{}
// shape store.Load expects on its GraphDoc.Graph (already array-shaped, so
// flattening is a no-op pass-through).
func nodesToRaw(nodes []jsonld.Node) []interface{} {
	out := make([]interface{}, len(nodes))
	for i, n := range nodes {
		out[i] = map[string]interface{}(n)
	}
	return out
}
