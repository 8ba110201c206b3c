package dedup

import (
	"context"
	"log/slog"

	"github.com/pressline/pressline/internal/database"
)

// Index answers "have we already processed an equivalent article?" for one
// tenant by looking up exact titles and semantic hashes across the publish
// queue and the history ledger.
//
// Both checks fail closed: an empty value, or a storage error, reads as
// duplicate. Nothing unknown is ever published.
type Index struct {
	queue   database.QueueRepository
	history database.HistoryRepository
	logger  *slog.Logger
}

// NewIndex creates a duplicate index over the tenant's queue and ledger.
func NewIndex(queue database.QueueRepository, history database.HistoryRepository, logger *slog.Logger) *Index {
	return &Index{queue: queue, history: history, logger: logger}
}

// IsDuplicateTitle checks the exact original title against queue and history.
// Title comparison is byte equality; no case or whitespace normalization.
func (i *Index) IsDuplicateTitle(ctx context.Context, title string) bool {
	if title == "" {
		return true
	}

	if found, err := i.queue.HasTitle(ctx, title); err != nil {
		i.logger.Warn("queue title lookup failed, treating as duplicate", "error", err)
		return true
	} else if found {
		return true
	}

	if found, err := i.history.HasTitle(ctx, title); err != nil {
		i.logger.Warn("history title lookup failed, treating as duplicate", "error", err)
		return true
	} else if found {
		return true
	}

	return false
}

// IsDuplicateSemantic checks the semantic hash against queue and history.
func (i *Index) IsDuplicateSemantic(ctx context.Context, hash string) bool {
	if hash == "" {
		return true
	}

	if found, err := i.queue.HasSemanticHash(ctx, hash); err != nil {
		i.logger.Warn("queue hash lookup failed, treating as duplicate", "error", err)
		return true
	} else if found {
		return true
	}

	if found, err := i.history.HasSemanticHash(ctx, hash); err != nil {
		i.logger.Warn("history hash lookup failed, treating as duplicate", "error", err)
		return true
	} else if found {
		return true
	}

	return false
}
