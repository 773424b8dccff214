package store

import (
	"context"

	"github.com/pagesmith/pagesmith/internal/core/domain"
)

// =============================================================================
// Admission
// =============================================================================

// Admission is the outcome of admitting a deploy request.
type Admission string

const (
	// Admitted means the request was novel and a task record was created.
	Admitted Admission = "admitted"

	// AlreadyProcessed means a task with the same dedup key already exists;
	// nothing was written.
	AlreadyProcessed Admission = "already_processed"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for the idempotency ledger and
// the outcome log. All writes are single atomic inserts keyed by dedup key
// or row ID; implementations must tolerate concurrent writers.
type Store interface {
	// Admit atomically inserts the task unless a record with the same
	// (email, task, round, nonce) key exists. Exactly one of two concurrent
	// admissions of the same key observes Admitted.
	Admit(ctx context.Context, task *domain.AdmittedTask) (Admission, error)

	// Task lookups
	GetTask(ctx context.Context, key domain.DedupKey) (*domain.AdmittedTask, error)
	ListTasks(ctx context.Context, opts ListOptions) ([]domain.AdmittedTask, error)

	// Outcome log (append only)
	CreateOutcome(ctx context.Context, outcome *domain.Outcome) error
	GetOutcomeByKey(ctx context.Context, key domain.DedupKey) (*domain.Outcome, error)
	ListOutcomes(ctx context.Context, opts ListOptions) ([]domain.Outcome, error)

	// Check results (append only)
	CreateCheckResult(ctx context.Context, result *domain.CheckResult) error
	ListCheckResults(ctx context.Context, task string, round int) ([]domain.CheckResult, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
