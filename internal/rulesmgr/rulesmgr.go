// Package rulesmgr implements the rules graph CRUD contract (§6
// "rules/create|update|delete") on top of the store, re-triggering the
// debounced inference cycle after every successful mutation.
package rulesmgr

import (
	"context"

	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/internal/urdferr"
)

// Store is the subset of *store.Store rulesmgr needs.
type Store interface {
	Find(id, gid string) (jsonld.Node, error)
	Load(docs []store.GraphDoc) (int, error)
	Clear(gid string)
	FindGraph(gid string) ([]jsonld.Node, error)
}

// Trigger schedules a debounced reload after a rules mutation; it mirrors
// inference.Debouncer.Trigger's signature so callers can pass it directly.
type Trigger func(ctx context.Context, reason string)

// Manager mutates the rules named graph.
type Manager struct {
	store   Store
	rulesID string
	trigger Trigger
}

// New builds a Manager bound to the rules graph rulesGid. trigger may be
// nil in tests that don't care about re-inference.
func New(st Store, rulesGid string, trigger Trigger) *Manager {
	return &Manager{store: st, rulesID: rulesGid, trigger: trigger}
}

// Create adds rule to the rules graph. A rule with the same @id that
// already exists is a 409 Conflict.
func (m *Manager) Create(rule jsonld.Node) error {
	if rule.ID() == "" {
		return urdferr.New(urdferr.KindContract, "rule must carry @id")
	}
	if _, err := m.store.Find(rule.ID(), m.rulesID); err == nil {
		return urdferr.New(urdferr.KindConflict, "rule already exists: "+rule.ID())
	}
	if _, err := m.store.Load([]store.GraphDoc{{ID: m.rulesID, Graph: []interface{}{map[string]interface{}(rule)}}}); err != nil {
		return err
	}
	m.fireTrigger("rules:create")
	return nil
}

// Update replaces an existing rule. A rule with no matching @id is a
// 404-equivalent NotFound.
func (m *Manager) Update(rule jsonld.Node) error {
	if rule.ID() == "" {
		return urdferr.New(urdferr.KindContract, "rule must carry @id")
	}
	if _, err := m.store.Find(rule.ID(), m.rulesID); err != nil {
		return urdferr.New(urdferr.KindNotFound, "rule not found: "+rule.ID())
	}
	if err := m.replace(rule.ID(), &rule); err != nil {
		return err
	}
	m.fireTrigger("rules:update")
	return nil
}

// Delete removes the rule with id. A missing rule is a 404-equivalent
// NotFound.
func (m *Manager) Delete(id string) error {
	if _, err := m.store.Find(id, m.rulesID); err != nil {
		return urdferr.New(urdferr.KindNotFound, "rule not found: "+id)
	}
	if err := m.replace(id, nil); err != nil {
		return err
	}
	m.fireTrigger("rules:delete")
	return nil
}

// replace rebuilds the rules graph with id's node removed (newNode == nil)
// or replaced (newNode != nil), since the store only exposes union-load and
// whole-graph clear, not a single-node delete/replace primitive (§4.B).
func (m *Manager) replace(id string, newNode *jsonld.Node) error {
	existing, err := m.store.FindGraph(m.rulesID)
	if err != nil {
		existing = nil
	}
	kept := make([]interface{}, 0, len(existing)+1)
	for _, n := range existing {
		if n.ID() == id {
			continue
		}
		kept = append(kept, map[string]interface{}(n))
	}
	if newNode != nil {
		kept = append(kept, map[string]interface{}(*newNode))
	}
	m.store.Clear(m.rulesID)
	_, err = m.store.Load([]store.GraphDoc{{ID: m.rulesID, Graph: kept}})
	return err
}

func (m *Manager) fireTrigger(reason string) {
	if m.trigger != nil {
		m.trigger(context.Background(), reason)
	}
}
