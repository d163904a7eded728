package store

import (
	"context"
	"time"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
)

// EligibilityFilter selects prospects that still need a given enhancement.
type EligibilityFilter struct {
	Kind model.EnhancementKind `json:"kind"`

	// SkipExisting excludes prospects the model has already processed.
	SkipExisting bool `json:"skip_existing"`

	// IDs restricts the selection to an explicit set when non-empty.
	IDs []string `json:"ids,omitempty"`

	Limit int `json:"limit,omitempty"`
}

// Store defines the persistence interface for the enhancement pipeline.
type Store interface {
	// Prospects
	CreateProspect(ctx context.Context, p *model.Prospect) error
	GetProspect(ctx context.Context, id string) (*model.Prospect, error)
	UpdateProspect(ctx context.Context, p *model.Prospect) error
	ListEligible(ctx context.Context, filter EligibilityFilter) ([]model.Prospect, error)
	CountEligible(ctx context.Context, filter EligibilityFilter) (int, error)

	// In-progress bookkeeping for crash detection
	MarkInProgress(ctx context.Context, id, userID string) error
	ClearInProgress(ctx context.Context, id string, status model.EnhancementStatus) error
	ResetStaleInProgress(ctx context.Context, olderThan time.Duration) (int, error)

	// Audit log (append-only)
	InsertAuditEntry(ctx context.Context, e *model.AuditEntry) error
	ListAuditEntries(ctx context.Context, prospectID string, kind model.EnhancementKind, limit int) ([]model.AuditEntry, error)

	// Run summaries (append-only)
	InsertRunSummary(ctx context.Context, s *model.RunSummary) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
