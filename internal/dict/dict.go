// Package dict implements the IRI dictionary (component A): an ordered,
// read-only sequence of IRIs that defines the z:<n> compression token set
// used everywhere else in the core.
package dict

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/nrua/urdf-core/internal/urdferr"
)

// TypeIndex is the dictionary index that the SPARQL Gateway treats
// specially: when the predicate position resolves to this index, the
// rewriter emits the bare keyword "a" instead of "z:<TypeIndex>". The
// dictionary itself does not special-case it; only callers that render
// query text need to know about it.
const TypeIndex = 0

var tokenPattern = regexp.MustCompile(`^z:(\d+)$`)

// Dictionary is a bidirectional IRI <-> token mapping, immutable after Load.
type Dictionary struct {
	iris    []string
	indexOf map[string]int
}

// New returns an empty dictionary; Load must be called before use in
// non-trivial ways, but a zero-value Dictionary behaves as an all-pass-through
// dictionary (every lookup misses, every compress/expand is a no-op).
func New() *Dictionary {
	return &Dictionary{indexOf: map[string]int{}}
}

// Load initializes the dictionary from an ordered list of IRIs. Non-string
// entries are a fatal ConfigError for the caller; first occurrence of a
// duplicate IRI wins and later occurrences are ignored (their IRI remains
// reachable only via the earlier index).
func Load(raw []byte) (*Dictionary, error) {
	var entries []interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, urdferr.Wrap(urdferr.KindConfig, "dictionary is not a JSON array", err)
	}
	d := New()
	for i, e := range entries {
		s, ok := e.(string)
		if !ok {
			return nil, urdferr.New(urdferr.KindConfig,
				"dictionary entry "+strconv.Itoa(i)+" is not a string")
		}
		if _, exists := d.indexOf[s]; exists {
			continue // first occurrence wins
		}
		d.indexOf[s] = len(d.iris)
		d.iris = append(d.iris, s)
	}
	return d, nil
}

// IRIs returns the ordered list of IRIs exactly as loaded (for GET /urdf/zurl).
func (d *Dictionary) IRIs() []string {
	out := make([]string, len(d.iris))
	copy(out, d.iris)
	return out
}

// IndexOf returns the dictionary index of iri, if known.
func (d *Dictionary) IndexOf(iri string) (int, bool) {
	i, ok := d.indexOf[iri]
	return i, ok
}

// IRIOf returns the IRI at index i, if in range.
func (d *Dictionary) IRIOf(i int) (string, bool) {
	if i < 0 || i >= len(d.iris) {
		return "", false
	}
	return d.iris[i], true
}

// CompressToken returns "z:<i>" if iri is known, else iri unchanged.
func (d *Dictionary) CompressToken(iri string) string {
	if i, ok := d.IndexOf(iri); ok {
		return "z:" + strconv.Itoa(i)
	}
	return iri
}

// ExpandToken returns the IRI for a well-formed "z:<n>" token with n in
// range, else s unchanged. Lookups never fail; unknown inputs pass through.
func (d *Dictionary) ExpandToken(s string) string {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return s
	}
	if iri, ok := d.IRIOf(n); ok {
		return iri
	}
	return s
}
