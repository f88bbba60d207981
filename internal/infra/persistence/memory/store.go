// Package memory implements the catalog PersistentStore in process memory.
// It is the transactional core the sqlite and postgres stores wrap.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storagecore/internal/catalog"
)

// state is the full catalog content. Copied wholesale per transaction so a
// failed commit leaves the published state untouched.
type state struct {
	records map[string]catalog.ObjectRecord
	events  []catalog.EventRecord
}

func newState() state {
	return state{records: make(map[string]catalog.ObjectRecord)}
}

func (s state) clone() state {
	cp := state{
		records: make(map[string]catalog.ObjectRecord, len(s.records)),
		events:  append([]catalog.EventRecord(nil), s.events...),
	}
	for k, v := range s.records {
		v.Metadata = cloneMetadata(v.Metadata)
		cp.records[k] = v
	}
	return cp
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Snapshot is the serializable catalog state used by the persistent wrappers.
type Snapshot struct {
	Records []catalog.ObjectRecord `json:"records"`
	Events  []catalog.EventRecord  `json:"events"`
}

// Store implements catalog.PersistentStore in memory.
type Store struct {
	mu     sync.RWMutex
	state  state
	engine *catalog.RulesEngine
}

// NewStore constructs an empty in-memory catalog store.
func NewStore(engine *catalog.RulesEngine) *Store {
	if engine == nil {
		engine = catalog.NewRulesEngine()
	}
	return &Store{state: newState(), engine: engine}
}

// Engine exposes the rules engine so plugin rules can be registered.
func (s *Store) Engine() *catalog.RulesEngine { return s.engine }

// RunInTransaction applies fn against a copy of the state, evaluates rules
// over the pending view, and publishes the copy on success.
func (s *Store) RunInTransaction(ctx context.Context, fn func(catalog.Transaction) error) (catalog.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return catalog.Result{}, err
	}
	result, err := s.engine.Evaluate(ctx, tx, tx.changes)
	if err != nil {
		return result, err
	}
	if result.Blocking() {
		return result, fmt.Errorf("transaction blocked by %d rule violation(s)", len(result.Violations))
	}
	s.state = tx.state
	return result, nil
}

// View runs fn against a read-only copy of the current state.
func (s *Store) View(_ context.Context, fn func(catalog.TransactionView) error) error {
	s.mu.RLock()
	snap := s.state.clone()
	s.mu.RUnlock()
	return fn(&transaction{state: snap})
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ExportState captures the current state as a Snapshot.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Events: append([]catalog.EventRecord(nil), s.state.events...)}
	for _, rec := range s.state.records {
		rec.Metadata = cloneMetadata(rec.Metadata)
		snap.Records = append(snap.Records, rec)
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].Key < snap.Records[j].Key })
	return snap
}

// ImportState replaces the current state with the Snapshot content.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := newState()
	for _, rec := range snap.Records {
		rec.Metadata = cloneMetadata(rec.Metadata)
		st.records[rec.Key] = rec
	}
	st.events = append([]catalog.EventRecord(nil), snap.Events...)
	s.state = st
}

var _ catalog.PersistentStore = (*Store)(nil)

// transaction carries the pending state plus the change log for rules.
type transaction struct {
	state   state
	changes []catalog.Change
}

func (t *transaction) ListRecords() []catalog.ObjectRecord {
	out := make([]catalog.ObjectRecord, 0, len(t.state.records))
	for _, rec := range t.state.records {
		rec.Metadata = cloneMetadata(rec.Metadata)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (t *transaction) FindRecord(key string) (catalog.ObjectRecord, bool) {
	rec, ok := t.state.records[key]
	if ok {
		rec.Metadata = cloneMetadata(rec.Metadata)
	}
	return rec, ok
}

func (t *transaction) ListEvents() []catalog.EventRecord {
	return append([]catalog.EventRecord(nil), t.state.events...)
}

func (t *transaction) CreateRecord(record catalog.ObjectRecord) (catalog.ObjectRecord, error) {
	if _, exists := t.state.records[record.Key]; exists {
		return catalog.ObjectRecord{}, fmt.Errorf("catalog record %s already exists", record.Key)
	}
	record.Metadata = cloneMetadata(record.Metadata)
	t.state.records[record.Key] = record
	t.changes = append(t.changes, catalog.Change{Operation: "put", Record: record})
	return record, nil
}

func (t *transaction) DeleteRecord(key string) error {
	rec, ok := t.state.records[key]
	if !ok {
		return catalog.ErrNotFound{Key: key}
	}
	delete(t.state.records, key)
	t.changes = append(t.changes, catalog.Change{Operation: "delete", Record: rec})
	return nil
}

func (t *transaction) AppendEvent(event catalog.EventRecord) {
	t.state.events = append(t.state.events, event)
}

var _ catalog.Transaction = (*transaction)(nil)
