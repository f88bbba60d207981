// Package catalog defines the object catalog: the transactional record of
// what was stored where, and the rules evaluated on every mutation.
package catalog

import (
	"context"
	"fmt"
	"time"
)

// ObjectRecord is the catalog entry for one stored object.
type ObjectRecord struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Driver      string            `json:"driver"`
	Size        int64             `json:"size_bytes"`
	ContentType string            `json:"content_type,omitempty"`
	ETag        string            `json:"etag,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// EventRecord is an append-only audit entry for a catalog mutation.
type EventRecord struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"` // put|delete
	Key        string    `json:"key"`
	Driver     string    `json:"driver"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Change describes a pending mutation handed to rules.
type Change struct {
	Operation string       `json:"operation"` // put|delete
	Record    ObjectRecord `json:"record"`
}

// Severity grades a rule violation.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Violation reports a rule failure for a pending change.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Key      string   `json:"key,omitempty"`
}

// Result aggregates rule outcomes for one transaction.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Blocking reports whether any violation should abort the transaction.
func (r Result) Blocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// TransactionView is the read-only catalog state visible to rules.
type TransactionView interface {
	ListRecords() []ObjectRecord
	FindRecord(key string) (ObjectRecord, bool)
	ListEvents() []EventRecord
}

// Transaction mutates catalog state. Mutations become visible only on commit.
type Transaction interface {
	TransactionView
	CreateRecord(record ObjectRecord) (ObjectRecord, error)
	DeleteRecord(key string) error
	AppendEvent(event EventRecord)
}

// PersistentStore is the catalog storage contract. Implementations evaluate
// registered rules at commit time and abort on blocking violations.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}

// Rule validates the pending changes of a transaction.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error)
}

// RulesEngine evaluates an ordered rule set.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine with the supplied rules.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	return &RulesEngine{rules: rules}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	if rule != nil {
		e.rules = append(e.rules, rule)
	}
}

// Rules returns a copy of the registered rules.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule, merging results. The first rule error aborts.
func (e *RulesEngine) Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error) {
	var merged Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return merged, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		merged.Violations = append(merged.Violations, res.Violations...)
	}
	return merged, nil
}

// ErrNotFound is returned when a catalog record does not exist.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("catalog record %s not found", e.Key)
}
