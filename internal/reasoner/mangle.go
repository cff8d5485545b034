package reasoner

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"

	"github.com/nrua/urdf-core/internal/urdferr"
)

// tripleDecl declares the single three-ary predicate every N-Triples fact
// line and every derived fact is projected onto: triple(Subject, Predicate,
// Object). This is the adapter's entire domain vocabulary -- the N3 rule
// body of a schema:Rule node is expected to derive more triple/3 facts from
// it, mirroring how an N3 {?s ?p ?o} graph pattern works, just expressed in
// Mangle's own rule syntax instead of N3's.
const tripleDecl = `Decl triple(Subject, Predicate, Object)
  bound[/string, /string, /string].
`

// MangleCapability backs the optional N3-equivalent reasoning capability
// (§4.F, §9 "Optional reasoner") with google/mangle, a real Datalog engine.
// It is an adapter, not a literal N3 interpreter: the orchestrator treats
// reasoning as an opaque capability behind Capability, so swapping this for
// a genuine N3 engine later only touches this file. See SPEC_FULL.md for
// the rationale.
type MangleCapability struct{}

// NewMangleCapability builds a stateless adapter; each Reason call gets its
// own fresh fact store and program, matching the orchestrator's
// clear-then-recompute model (§9 "Graph replacement over diff").
func NewMangleCapability() *MangleCapability { return &MangleCapability{} }

// Reason parses program as "<N-Triples fact lines>\n\n<rule clauses over
// triple/3>" per §4.F step 3, evaluates it, and reports every derived
// triple/3 fact through onDerived.
func (MangleCapability) Reason(ctx context.Context, program string, onDerived OnDerived) error {
	facts, rules, err := splitProgram(program)
	if err != nil {
		return urdferr.Wrap(urdferr.KindEvaluator, "malformed reasoner program", err)
	}

	unit, err := parse.Unit(strings.NewReader(tripleDecl + "\n" + rules))
	if err != nil {
		return urdferr.Wrap(urdferr.KindEvaluator, "failed to parse rule program as Mangle clauses", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return urdferr.Wrap(urdferr.KindEvaluator, "failed to analyze rule program", err)
	}

	base := factstore.NewSimpleInMemoryStore()
	store := factstore.ConcurrentFactStore(factstore.NewConcurrentFactStore(base))
	for _, f := range facts {
		atom, aerr := tripleAtom(f)
		if aerr != nil {
			return urdferr.Wrap(urdferr.KindEvaluator, "malformed fact line", aerr)
		}
		store.Add(atom)
	}

	if _, err := mengine.EvalProgramWithStats(info, store); err != nil {
		return urdferr.Wrap(urdferr.KindEvaluator, "rule evaluation failed", err)
	}

	var sym ast.PredicateSym
	for s := range info.Decls {
		if s.Symbol == "triple" {
			sym = s
			break
		}
	}
	if sym.Symbol == "" {
		return nil // program never declared triple/3; nothing to derive
	}

	var predToRules map[ast.PredicateSym][]ast.Clause
	var predToDecl map[ast.PredicateSym]*ast.Decl
	predToRules = make(map[ast.PredicateSym][]ast.Clause)
	predToDecl = make(map[ast.PredicateSym]*ast.Decl)
	for s, d := range info.Decls {
		predToDecl[s] = d
	}
	for _, c := range info.Rules {
		predToRules[c.Head.Predicate] = append(predToRules[c.Head.Predicate], c)
	}
	qctx := &mengine.QueryContext{PredToRules: predToRules, PredToDecl: predToDecl, Store: store}

	return qctx.EvalQuery(ast.NewQuery(sym), decl0Mode(predToDecl[sym]), unionfind.New(), func(atom ast.Atom) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if len(atom.Args) != 3 {
			return nil
		}
		onDerived(Fact{
			Subject:   constString(atom.Args[0]),
			Predicate: constString(atom.Args[1]),
			Object:    constString(atom.Args[2]),
		})
		return nil
	})
}

func decl0Mode(d *ast.Decl) ast.Mode {
	if d == nil || len(d.Modes()) == 0 {
		return nil
	}
	return d.Modes()[0]
}

func constString(t ast.BaseTerm) string {
	c, ok := t.(ast.Constant)
	if !ok {
		return fmt.Sprintf("%v", t)
	}
	return c.Symbol
}

// tripleAtom builds a triple(S, P, O) atom from f, using Mangle string
// constants rather than Name constants so arbitrary IRIs and literals
// round-trip without Mangle's stricter Name charset.
func tripleAtom(f Fact) (ast.Atom, error) {
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: "triple", Arity: 3},
		Args:      []ast.BaseTerm{ast.String(f.Subject), ast.String(f.Predicate), ast.String(f.Object)},
	}, nil
}

// splitProgram separates the N-Triples fact block from the trailing rule
// program text on the first blank line, per §4.F step 3.
func splitProgram(program string) ([]Fact, string, error) {
	if strings.HasPrefix(program, "\n") {
		// no fact lines: the program opens with the separating blank line
		return nil, program[1:], nil
	}
	parts := strings.SplitN(program, "\n\n", 2)
	factBlock := parts[0]
	rules := ""
	if len(parts) == 2 {
		rules = parts[1]
	}

	var facts []Fact
	sc := bufio.NewScanner(strings.NewReader(factBlock))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f, err := parseNTripleLine(line)
		if err != nil {
			return nil, "", err
		}
		facts = append(facts, f)
	}
	return facts, rules, sc.Err()
}

// parseNTripleLine parses a minimal "<s> <p> <o-or-literal> ." line, the
// shape the orchestrator serializes projection bindings into.
func parseNTripleLine(line string) (Fact, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	line = strings.TrimSpace(line)
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return Fact{}, fmt.Errorf("malformed N-Triples line: %q", line)
	}
	return Fact{
		Subject:   unwrapTerm(fields[0]),
		Predicate: unwrapTerm(fields[1]),
		Object:    unwrapTerm(fields[2]),
	}, nil
}

func unwrapTerm(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return s[1 : len(s)-1]
	}
	return s
}
