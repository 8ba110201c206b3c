package database

import (
	"context"
	"time"

	"github.com/pressline/pressline/internal/models"
)

// QueueRepository is the persistent publish queue for one tenant: enriched
// items waiting to be posted, unique by semantic hash, drained oldest-first.
type QueueRepository interface {
	// Enqueue inserts the item. A semantic-hash conflict is a silent no-op;
	// the earlier record wins.
	Enqueue(ctx context.Context, item models.QueueItem) error

	// PeekOldest returns the earliest-enqueued item without removing it,
	// or nil when the queue is empty.
	PeekOldest(ctx context.Context) (*models.QueueItem, error)

	// GetByID returns the item with the given id, or nil when absent.
	GetByID(ctx context.Context, id string) (*models.QueueItem, error)

	// Remove deletes the item with the given id. Removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// Clear empties the queue unconditionally.
	Clear(ctx context.Context) error

	// ListAll returns summaries of every queued item, oldest first.
	ListAll(ctx context.Context) ([]models.QueueSummary, error)

	// HasTitle reports whether any queued item has this exact original title.
	HasTitle(ctx context.Context, title string) (bool, error)

	// HasSemanticHash reports whether any queued item has this semantic hash.
	HasSemanticHash(ctx context.Context, hash string) (bool, error)

	// RecentTitles returns the newest refined titles, up to limit.
	RecentTitles(ctx context.Context, limit int) ([]string, error)

	// Depth returns the number of queued items.
	Depth(ctx context.Context) (int, error)
}

// HistoryRepository is the append-only ledger of terminal outcomes for one
// tenant, plus the lifetime cost counter.
type HistoryRepository interface {
	// Record appends a ledger entry for the item. A semantic-hash conflict
	// skips the content insert but still increments the lifetime cost counter
	// by the item's cost.
	Record(ctx context.Context, item models.QueueItem, status models.HistoryStatus, reason string) error

	// TotalLifetimeCost returns the cumulative cost of every recorded call.
	TotalLifetimeCost(ctx context.Context) (float64, error)

	// Recent returns the newest records first, up to limit.
	Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error)

	// HasTitle reports whether any record has this exact original title.
	HasTitle(ctx context.Context, title string) (bool, error)

	// HasSemanticHash reports whether any record has this semantic hash.
	HasSemanticHash(ctx context.Context, hash string) (bool, error)
}

// AgentRepository stores per-tenant configuration in the shared schema.
type AgentRepository interface {
	Upsert(ctx context.Context, agent models.AgentConfig) error
	Get(ctx context.Context, id string) (*models.AgentConfig, error)
	List(ctx context.Context) ([]models.AgentConfig, error)
}

// LocalArticleRepository backs the internal news provider: operator-submitted
// articles served back to the fetch cycle while still fresh.
type LocalArticleRepository interface {
	Insert(ctx context.Context, article models.Candidate) error

	// RecentWithin returns articles inserted within the trailing window.
	RecentWithin(ctx context.Context, window time.Duration) ([]models.Candidate, error)
}
