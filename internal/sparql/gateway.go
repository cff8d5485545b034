// Package sparql implements the SPARQL Gateway (component D): rewriting
// full IRIs to compressed z:<n> tokens before a query reaches the
// evaluator, enforcing the "no PREFIX/BASE" contract, and delegating
// execution + result expansion to the bound store.
package sparql

import (
	"context"
	"regexp"
	"strings"

	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/internal/urdferr"
)

// Querier is anything that can run a rewritten query and expand its own
// results; *store.Store satisfies this.
type Querier interface {
	Query(ctx context.Context, sparql string, gid string) (store.QueryResult, error)
	Dictionary() *dict.Dictionary
}

// Gateway rewrites and validates SPARQL text before handing it to a Querier.
type Gateway struct {
	q Querier
}

// New builds a Gateway in front of q.
func New(q Querier) *Gateway { return &Gateway{q: q} }

var prefixOrBase = regexp.MustCompile(`(?i)(^|[\s{(])(PREFIX|BASE)\s`)

// CheckContract rejects any query containing a standalone PREFIX or BASE
// token: the store never resolves external contexts, so prefixes must
// already be expanded by the caller.
func CheckContract(q string) error {
	if prefixOrBase.MatchString(q) {
		return urdferr.New(urdferr.KindContract, "query must not contain PREFIX or BASE; expand all IRIs before sending")
	}
	return nil
}

// Query rewrites q, enforces the contract, executes against gid ("" = whole
// store), and returns the already-expanded result.
func (g *Gateway) Query(ctx context.Context, q string, gid string) (store.QueryResult, error) {
	if err := CheckContract(q); err != nil {
		return store.QueryResult{}, err
	}
	rewritten := Rewrite(q, g.q.Dictionary())
	return g.q.Query(ctx, rewritten, gid)
}

var iriRef = regexp.MustCompile(`<([^<>\s]+)>`)

// Rewrite rewrites every full IRI inside "<...>" to its compressed z:<n>
// form. In predicate position, the IRI that maps to dict.TypeIndex is
// rewritten to the bare keyword "a" instead -- SPARQL's own shortcut for
// rdf:type, mirroring the store's internal representation of the type
// predicate. The rewriter is parenthesis-aware: it never performs the "a"
// substitution for an IRIREF that sits inside a call expression (e.g. inside
// STRSTARTS(?x, <iri>)), since there the IRI is a function argument, not a
// predicate.
func Rewrite(q string, d *dict.Dictionary) string {
	calls := callSpans(q)

	var b strings.Builder
	last := 0
	for _, loc := range iriRef.FindAllStringSubmatchIndex(q, -1) {
		start, end := loc[0], loc[1]
		iri := q[loc[2]:loc[3]]
		b.WriteString(q[last:start])

		compressed := d.CompressToken(iri)
		if compressed == "z:0" && predicatePosition(q, start) && !insideCall(calls, start) {
			b.WriteString("a")
		} else {
			b.WriteString("<")
			b.WriteString(compressed)
			b.WriteString(">")
		}
		last = end
	}
	b.WriteString(q[last:])
	return b.String()
}

// span is a half-open [start,end) byte range of a call expression's
// argument list, i.e. the "(...)" immediately following an identifier.
type span struct{ start, end int }

// callSpans finds every "identifier(...)" argument list in q, so Rewrite can
// tell a function call's parens apart from a grouping "(" in a triple
// pattern.
func callSpans(q string) []span {
	var spans []span
	depthStack := []int{} // byte offsets of '(' that open a call
	for i := 0; i < len(q); i++ {
		switch q[i] {
		case '(':
			isCall := isIdentChar(precedingNonSpace(q, i))
			if isCall {
				depthStack = append(depthStack, i)
			} else {
				depthStack = append(depthStack, -1)
			}
		case ')':
			if len(depthStack) == 0 {
				continue
			}
			open := depthStack[len(depthStack)-1]
			depthStack = depthStack[:len(depthStack)-1]
			if open >= 0 {
				spans = append(spans, span{start: open, end: i + 1})
			}
		}
	}
	return spans
}

func insideCall(spans []span, pos int) bool {
	for _, s := range spans {
		if pos > s.start && pos < s.end {
			return true
		}
	}
	return false
}

func precedingNonSpace(q string, i int) byte {
	j := i - 1
	for j >= 0 && (q[j] == ' ' || q[j] == '\t' || q[j] == '\n' || q[j] == '\r') {
		j--
	}
	if j < 0 {
		return 0
	}
	return q[j]
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// predicatePosition heuristically decides whether the IRIREF starting at
// pos sits in a triple pattern's predicate slot: preceded by a subject term
// (another IRIREF, a variable, "a", or a literal) rather than by an opening
// brace, a clause keyword, or a comma.
func predicatePosition(q string, pos int) bool {
	prev := precedingNonSpace(q, pos)
	switch prev {
	case '>', '?', '$', '"', '\'', ']':
		return true
	}
	if isIdentChar(prev) {
		// could be the end of a keyword (SELECT, WHERE, FILTER...) or of a
		// bound term/variable name; keywords are followed by whitespace and
		// then structural tokens, never directly by another subject in the
		// same pattern, so require there is no clause keyword right before.
		word := precedingWord(q, pos)
		switch strings.ToUpper(word) {
		case "SELECT", "WHERE", "FILTER", "OPTIONAL", "CONSTRUCT", "ASK", "UNION", "GRAPH", "BIND", "VALUES":
			return false
		}
		return true
	}
	return false
}

func precedingWord(q string, pos int) string {
	j := pos - 1
	for j >= 0 && (q[j] == ' ' || q[j] == '\t' || q[j] == '\n' || q[j] == '\r') {
		j--
	}
	end := j + 1
	for j >= 0 && isIdentChar(q[j]) {
		j--
	}
	return q[j+1 : end]
}
