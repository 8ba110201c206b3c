package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pressline/pressline/internal/models"
)

// MemoryQueueRepository is an in-memory QueueRepository used in tests and as
// a stand-in when no database is configured.
type MemoryQueueRepository struct {
	mu    sync.RWMutex
	items []models.QueueItem
}

var _ QueueRepository = (*MemoryQueueRepository)(nil)

// NewMemoryQueueRepository creates an empty in-memory queue.
func NewMemoryQueueRepository() *MemoryQueueRepository {
	return &MemoryQueueRepository{}
}

// Enqueue inserts the item; a semantic-hash conflict is silently dropped.
func (r *MemoryQueueRepository) Enqueue(ctx context.Context, item models.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.SemanticHash == item.SemanticHash {
			return nil
		}
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	r.items = append(r.items, item)
	return nil
}

// PeekOldest returns the earliest-enqueued item without removing it.
func (r *MemoryQueueRepository) PeekOldest(ctx context.Context) (*models.QueueItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.items) == 0 {
		return nil, nil
	}

	oldest := r.items[0]
	for _, item := range r.items[1:] {
		if item.EnqueuedAt.Before(oldest.EnqueuedAt) {
			oldest = item
		}
	}
	copied := oldest
	return &copied, nil
}

// GetByID returns the item with the given id, or nil.
func (r *MemoryQueueRepository) GetByID(ctx context.Context, id string) (*models.QueueItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.ID == id {
			copied := item
			return &copied, nil
		}
	}
	return nil, nil
}

// Remove deletes the item with the given id; absent ids are a no-op.
func (r *MemoryQueueRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// Clear empties the queue.
func (r *MemoryQueueRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
	return nil
}

// ListAll returns summaries of all queued items, oldest first.
func (r *MemoryQueueRepository) ListAll(ctx context.Context) ([]models.QueueSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]models.QueueItem, len(r.items))
	copy(sorted, r.items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EnqueuedAt.Before(sorted[j].EnqueuedAt)
	})

	summaries := make([]models.QueueSummary, 0, len(sorted))
	for _, item := range sorted {
		summaries = append(summaries, models.QueueSummary{
			ID:        item.ID,
			Title:     item.TitleRefined,
			Category:  item.Category,
			SourceAPI: item.SourceAPI,
		})
	}
	return summaries, nil
}

// HasTitle reports whether any queued item has this exact original title.
func (r *MemoryQueueRepository) HasTitle(ctx context.Context, title string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.TitleOriginal == title {
			return true, nil
		}
	}
	return false, nil
}

// HasSemanticHash reports whether any queued item has this semantic hash.
func (r *MemoryQueueRepository) HasSemanticHash(ctx context.Context, hash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.SemanticHash == hash {
			return true, nil
		}
	}
	return false, nil
}

// RecentTitles returns the newest refined titles, up to limit.
func (r *MemoryQueueRepository) RecentTitles(ctx context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]models.QueueItem, len(r.items))
	copy(sorted, r.items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EnqueuedAt.After(sorted[j].EnqueuedAt)
	})

	titles := make([]string, 0, limit)
	for _, item := range sorted {
		if len(titles) == limit {
			break
		}
		titles = append(titles, item.TitleRefined)
	}
	return titles, nil
}

// Depth returns the number of queued items.
func (r *MemoryQueueRepository) Depth(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

// MemoryHistoryRepository is an in-memory HistoryRepository.
type MemoryHistoryRepository struct {
	mu       sync.RWMutex
	records  []models.HistoryRecord
	lifetime float64
}

var _ HistoryRepository = (*MemoryHistoryRepository)(nil)

// NewMemoryHistoryRepository creates an empty in-memory ledger.
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{}
}

// Record appends a ledger entry; hash conflicts skip the insert but still
// increment the lifetime cost counter.
func (r *MemoryHistoryRepository) Record(ctx context.Context, item models.QueueItem, status models.HistoryStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lifetime += item.CostUSD

	for _, existing := range r.records {
		if existing.SemanticHash == item.SemanticHash {
			return nil
		}
	}

	r.records = append(r.records, models.HistoryRecord{
		ID:            uuid.New().String(),
		TitleOriginal: item.TitleOriginal,
		TitleRefined:  item.TitleRefined,
		BodyOriginal:  item.BodyOriginal,
		BodyRewritten: item.BodyRewritten,
		SourceAPI:     item.SourceAPI,
		Language:      item.Language,
		SemanticHash:  item.SemanticHash,
		Status:        status,
		Reason:        reason,
		CostUSD:       item.CostUSD,
		ProcessedAt:   time.Now().UTC(),
	})
	return nil
}

// TotalLifetimeCost returns the cumulative cost counter.
func (r *MemoryHistoryRepository) TotalLifetimeCost(ctx context.Context) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lifetime, nil
}

// Recent returns the newest records first, up to limit.
func (r *MemoryHistoryRepository) Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	recent := make([]models.HistoryRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, r.records[i])
	}
	return recent, nil
}

// HasTitle reports whether any record has this exact original title.
func (r *MemoryHistoryRepository) HasTitle(ctx context.Context, title string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.TitleOriginal == title {
			return true, nil
		}
	}
	return false, nil
}

// HasSemanticHash reports whether any record has this semantic hash.
func (r *MemoryHistoryRepository) HasSemanticHash(ctx context.Context, hash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.SemanticHash == hash {
			return true, nil
		}
	}
	return false, nil
}

// MemoryLocalArticleRepository is an in-memory LocalArticleRepository.
type MemoryLocalArticleRepository struct {
	mu       sync.RWMutex
	articles []localArticle
}

type localArticle struct {
	candidate  models.Candidate
	insertedAt time.Time
}

var _ LocalArticleRepository = (*MemoryLocalArticleRepository)(nil)

// NewMemoryLocalArticleRepository creates an empty in-memory article store.
func NewMemoryLocalArticleRepository() *MemoryLocalArticleRepository {
	return &MemoryLocalArticleRepository{}
}

// Insert stores a submitted article.
func (r *MemoryLocalArticleRepository) Insert(ctx context.Context, article models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles = append(r.articles, localArticle{candidate: article, insertedAt: time.Now()})
	return nil
}

// InsertAt stores an article with an explicit insertion time. Test helper.
func (r *MemoryLocalArticleRepository) InsertAt(article models.Candidate, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles = append(r.articles, localArticle{candidate: article, insertedAt: at})
}

// RecentWithin returns articles inserted within the trailing window.
func (r *MemoryLocalArticleRepository) RecentWithin(ctx context.Context, window time.Duration) ([]models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var fresh []models.Candidate
	for _, a := range r.articles {
		if !a.insertedAt.Before(cutoff) {
			fresh = append(fresh, a.candidate)
		}
	}
	return fresh, nil
}

// MemoryAgentRepository is an in-memory AgentRepository.
type MemoryAgentRepository struct {
	mu     sync.RWMutex
	agents map[string]models.AgentConfig
	order  []string
}

var _ AgentRepository = (*MemoryAgentRepository)(nil)

// NewMemoryAgentRepository creates an empty in-memory agent store.
func NewMemoryAgentRepository() *MemoryAgentRepository {
	return &MemoryAgentRepository{agents: make(map[string]models.AgentConfig)}
}

// Upsert inserts or replaces an agent configuration.
func (r *MemoryAgentRepository) Upsert(ctx context.Context, agent models.AgentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agent.ID]; !ok {
		r.order = append(r.order, agent.ID)
	}
	r.agents[agent.ID] = agent
	return nil
}

// Get returns the agent with the given id, or nil.
func (r *MemoryAgentRepository) Get(ctx context.Context, id string) (*models.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, nil
	}
	copied := agent
	return &copied, nil
}

// List returns every configured agent in insertion order.
func (r *MemoryAgentRepository) List(ctx context.Context) ([]models.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]models.AgentConfig, 0, len(r.order))
	for _, id := range r.order {
		agents = append(agents, r.agents[id])
	}
	return agents, nil
}
