// Package inference implements the Inference Orchestrator (component F):
// on every trigger it reads the rules graph, executes each rule (SPARQL
// directly, N3 via the injected reasoner capability), and replaces the
// inferred named graph with the aggregated result by clearing it and then
// loading the new nodes. These are two separate store calls: a concurrent
// reader can see the graph empty between them, and a failed load leaves it
// empty rather than in its prior state.
package inference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/reasoner"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/internal/urdferr"
	"github.com/nrua/urdf-core/voc/schema"
)

// internalPredicatePrefix marks helper predicates emitted only to carry
// projection bindings into the reasoner; they never persist (§4.F step 4).
const internalPredicatePrefix = "urn:nrua:pv:"

// Store is the slice of *store.Store the orchestrator depends on.
type Store interface {
	FindGraph(gid string) ([]jsonld.Node, error)
	Query(ctx context.Context, sparqlText string, gid string) (store.QueryResult, error)
	Clear(gid string)
	Load(docs []store.GraphDoc) (int, error)
}

// Publisher emits the structured "inference" event described in §6. A nil
// Publisher is valid: event publication is best-effort (§5).
type Publisher func(Summary)

// Summary is published once per successful orchestration cycle.
type Summary struct {
	Reason       string
	RuleCount    int
	TripleCount  int
	InferredSize int
}

// Orchestrator wires together the store, the optional reasoner capability,
// and a logger.
type Orchestrator struct {
	store     Store
	reasoner  reasoner.Capability // nil means SPARQL-only mode
	rulesGid  string
	targetGid string
	queryGid  string // graph(s) rules query against; "" = whole store
	publish   Publisher
	log       *zap.Logger
}

// New builds an Orchestrator. reasonerCap may be nil (SPARQL-only mode,
// §9 "Optional reasoner → capability abstraction").
func New(st Store, reasonerCap reasoner.Capability, rulesGid, inferredGid string, publish Publisher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:     st,
		reasoner:  reasonerCap,
		rulesGid:  rulesGid,
		targetGid: inferredGid,
		publish:   publish,
		log:       logger,
	}
}

// Run executes one full orchestration cycle (§4.F), reporting reason in the
// published event. It returns an error only for the "graph replace" failure
// mode (§4.F "Failure semantics"); per-rule failures are logged and skipped.
func (o *Orchestrator) Run(ctx context.Context, reason string) error {
	rules, err := o.store.FindGraph(o.rulesGid)
	if err != nil {
		o.store.Clear(o.targetGid)
		return nil // empty/missing rules graph: clear and return, not an error (§4.F step 1)
	}
	if len(rules) == 0 {
		o.store.Clear(o.targetGid)
		return nil
	}

	byID := make(map[string]jsonld.Node, len(rules))
	for _, r := range rules {
		byID[r.ID()] = r
	}

	derived := map[string][]quadTerm{} // subject -> (predicate, object)
	ran := 0

	for _, rule := range rules {
		if !hasType(rule, schema.Rule) {
			continue
		}
		ran++
		lang := strings.ToLower(literalString(rule, schema.ProgrammingLanguage))
		format := strings.ToLower(literalString(rule, schema.EncodingFormat))
		isN3 := lang == "n3" || lang == "notation3" || strings.Contains(format, "n3")

		if !isN3 {
			o.runSPARQLRule(ctx, rule, derived)
			continue
		}
		if o.reasoner == nil {
			o.log.Warn("N3 rule skipped: no reasoner capability configured", zap.String("rule", rule.ID()))
			continue
		}
		o.runN3Rule(ctx, rule, byID, derived)
	}

	nodes := aggregate(derived)
	if err := jsonld.ValidateArrayShaped(nodes); err != nil {
		return urdferr.Wrap(urdferr.KindSchema, "aggregated inferred graph is not array-shaped", err)
	}

	o.store.Clear(o.targetGid)
	docs := []store.GraphDoc{{ID: o.targetGid, Graph: nodesToRaw(nodes)}}
	tripleCount, err := o.store.Load(docs)
	if err != nil {
		return urdferr.Wrap(urdferr.KindEvaluator, "failed to load inferred graph", err)
	}

	if o.publish != nil {
		o.publish(Summary{Reason: reason, RuleCount: ran, TripleCount: tripleCount, InferredSize: tripleCount})
	}
	return nil
}

func hasType(n jsonld.Node, t string) bool {
	for _, ty := range n.Types() {
		if ty == t {
			return true
		}
	}
	return false
}

func literalString(n jsonld.Node, pred string) string {
	arr, _ := n[pred].([]interface{})
	if len(arr) == 0 {
		return ""
	}
	m, _ := arr[0].(map[string]interface{})
	s, _ := m["@value"].(string)
	return s
}

type quadTerm struct{ p, o string }

func (o *Orchestrator) runSPARQLRule(ctx context.Context, rule jsonld.Node, derived map[string][]quadTerm) {
	text := literalString(rule, schema.Text)
	if text == "" {
		o.log.Warn("SPARQL rule missing schema:text", zap.String("rule", rule.ID()))
		return
	}
	res, err := o.store.Query(ctx, text, o.queryGid)
	if err != nil {
		o.log.Warn("SPARQL rule execution failed", zap.String("rule", rule.ID()), zap.Error(err))
		return
	}
	if res.IsAsk {
		return
	}
	for _, row := range res.Rows {
		s, p, val, ok := extractSPO(row)
		if !ok {
			o.log.Warn("SPARQL rule produced a binding without s/p/o", zap.String("rule", rule.ID()))
			continue
		}
		derived[s] = append(derived[s], quadTerm{p: p, o: val})
	}
}

func extractSPO(row map[string]interface{}) (s, p, o string, ok bool) {
	s, sok := firstString(row, "s", "subject")
	p, pok := firstString(row, "p", "predicate")
	oVal, ook := row["o"]
	if !ook {
		oVal, ook = row["object"]
	}
	if !sok || !pok || !ook {
		return "", "", "", false
	}
	return s, p, encodeLiteralOrIRI(oVal), true
}

func firstString(row map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// encodeLiteralOrIRI returns a marker-prefixed string the aggregator later
// decodes back into a value object: "\x00<iri>" for strings that look like
// an IRI or blank node (references), "\x01<text>" for everything else
// (treated as a plain literal).
func encodeLiteralOrIRI(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return "\x01" + toString(v)
	}
	if looksLikeIRI(s) {
		return "\x00" + s
	}
	return "\x01" + s
}

func looksLikeIRI(s string) bool {
	return strings.HasPrefix(s, "urn:") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "_:")
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
