package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressline/pressline/internal/config"
	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/dedup"
	"github.com/pressline/pressline/internal/enrichment"
	"github.com/pressline/pressline/internal/ingestion"
	"github.com/pressline/pressline/internal/media"
	"github.com/pressline/pressline/internal/metrics"
	"github.com/pressline/pressline/internal/models"
	"github.com/pressline/pressline/internal/pipeline"
	"github.com/pressline/pressline/internal/scheduler"
	"github.com/pressline/pressline/internal/social"
)

// AgentStatus is the dashboard view of one agent.
type AgentStatus struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Running         bool                    `json:"running"`
	Connection      social.ConnectionStatus `json:"connection"`
	QueueDepth      int                     `json:"queue_depth"`
	NextPostAt      *time.Time              `json:"next_post_at,omitempty"`
	LifetimeCostUSD float64                 `json:"lifetime_cost_usd"`
}

// tenantStore bundles the per-agent repositories. Stores outlive runtimes:
// queue and ledger stay reachable while an agent is stopped.
type tenantStore struct {
	queue     database.QueueRepository
	history   database.HistoryRepository
	articles  database.LocalArticleRepository
	index     *dedup.Index
	processor *pipeline.Processor
}

// agentRuntime is one running agent: its publisher session and the two
// scheduler loops.
type agentRuntime struct {
	agent     models.AgentConfig
	publisher social.Publisher
	poster    *pipeline.Poster
	fetchLoop *scheduler.FetchScheduler
	postLoop  *scheduler.PostScheduler
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Manager owns agent lifecycles. Each started agent gets an isolated
// storage namespace, an authenticated publisher session, and its own fetch
// and post schedulers.
type Manager struct {
	cfg       config.Config
	db        *sql.DB
	agents    database.AgentRepository
	llm       enrichment.Completer
	stages    *enrichment.Stages
	validator pipeline.ImageValidator
	renderer  media.Renderer
	collector *metrics.Collector
	logger    *slog.Logger

	// newPublisher builds the platform client for an agent. Swappable in
	// tests.
	newPublisher func(agent models.AgentConfig) social.Publisher

	mu      sync.Mutex
	stores  map[string]*tenantStore
	running map[string]*agentRuntime
}

// NewManager creates an agent manager. db may be nil, in which case agents
// run on in-memory stores.
func NewManager(
	cfg config.Config,
	db *sql.DB,
	agents database.AgentRepository,
	llm enrichment.Completer,
	validator pipeline.ImageValidator,
	renderer media.Renderer,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Manager {
	m := &Manager{
		cfg:       cfg,
		db:        db,
		agents:    agents,
		llm:       llm,
		stages:    enrichment.NewStages(llm, logger),
		validator: validator,
		renderer:  renderer,
		collector: collector,
		logger:    logger,
		stores:    make(map[string]*tenantStore),
		running:   make(map[string]*agentRuntime),
	}
	m.newPublisher = func(agent models.AgentConfig) social.Publisher {
		return social.NewInstagramClient(agent.InstagramUser, agent.InstagramPass, cfg.Media.SessionDir, logger)
	}
	return m
}

// SetPublisherFactory overrides how platform clients are built.
func (m *Manager) SetPublisherFactory(factory func(agent models.AgentConfig) social.Publisher) {
	m.newPublisher = factory
}

// store returns the tenant store for an agent, provisioning it on first use.
func (m *Manager) store(ctx context.Context, agentID string) (*tenantStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storeLocked(ctx, agentID)
}

func (m *Manager) storeLocked(ctx context.Context, agentID string) (*tenantStore, error) {
	if store, ok := m.stores[agentID]; ok {
		return store, nil
	}

	store := &tenantStore{}
	if m.db != nil {
		if err := database.ProvisionTenant(ctx, m.db, agentID, m.logger); err != nil {
			return nil, fmt.Errorf("provision tenant %s: %w", agentID, err)
		}
		store.queue = database.NewPostgresQueueRepository(m.db, agentID)
		store.history = database.NewPostgresHistoryRepository(m.db, agentID)
		store.articles = database.NewPostgresLocalArticleRepository(m.db, agentID)
	} else {
		store.queue = database.NewMemoryQueueRepository()
		store.history = database.NewMemoryHistoryRepository()
		store.articles = database.NewMemoryLocalArticleRepository()
	}

	store.index = dedup.NewIndex(store.queue, store.history, m.logger)
	store.processor = pipeline.NewProcessor(m.stages, store.index, store.queue, store.history, m.validator, m.logger)

	m.stores[agentID] = store
	return store, nil
}

// Queue exposes an agent's publish queue to the API layer.
func (m *Manager) Queue(ctx context.Context, agentID string) (database.QueueRepository, error) {
	store, err := m.store(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return store.queue, nil
}

// History exposes an agent's ledger to the API layer.
func (m *Manager) History(ctx context.Context, agentID string) (database.HistoryRepository, error) {
	store, err := m.store(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return store.history, nil
}

// SubmitLocalArticle stores an operator-submitted article for the agent's
// internal provider.
func (m *Manager) SubmitLocalArticle(ctx context.Context, agentID string, article models.Candidate) error {
	store, err := m.store(ctx, agentID)
	if err != nil {
		return err
	}
	return store.articles.Insert(ctx, article)
}

// Start brings an agent online: provisions storage, authenticates the
// publishing session, and arms both schedulers. Starting a running agent is
// a no-op. A failed authentication leaves the agent fully stopped.
func (m *Manager) Start(ctx context.Context, agentID string) error {
	agent, err := m.agents.Get(ctx, agentID)
	if err != nil {
		return fmt.Errorf("load agent %s: %w", agentID, err)
	}
	if agent == nil {
		return fmt.Errorf("agent %s not found", agentID)
	}
	if !agent.HasCredentials() {
		m.logger.Error("agent has no publishing credentials", "agent", agentID)
		return fmt.Errorf("agent %s has no publishing credentials", agentID)
	}

	m.mu.Lock()
	if _, ok := m.running[agentID]; ok {
		m.mu.Unlock()
		m.logger.Info("agent already running", "agent", agentID)
		return nil
	}
	store, err := m.storeLocked(ctx, agentID)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	publisher := m.newPublisher(*agent)
	if err := publisher.Authenticate(ctx); err != nil {
		m.logger.Error("agent authentication failed", "agent", agentID, "error", err)
		return fmt.Errorf("authenticate agent %s: %w", agentID, err)
	}

	poster := pipeline.NewPoster(*agent, store.queue, store.history, m.stages, m.renderer, publisher, m.logger)
	fetcher := ingestion.NewFetcher(m.providersFor(*agent, store), m.logger)

	// Scheduler loops outlive the Start call; they stop via the runtime's
	// own cancel, not the request context.
	runCtx, cancel := context.WithCancel(context.Background())

	runtime := &agentRuntime{
		agent:     *agent,
		publisher: publisher,
		poster:    poster,
		cancel:    cancel,
	}
	runtime.fetchLoop = scheduler.NewFetchScheduler(*agent, func(ctx context.Context) {
		m.fetchCycle(ctx, *agent, store, fetcher)
	}, m.logger)
	runtime.postLoop = scheduler.NewPostScheduler(*agent, func(ctx context.Context) bool {
		return m.postCycle(ctx, *agent, store, poster)
	}, m.logger)

	runtime.wg.Add(2)
	go func() {
		defer runtime.wg.Done()
		runtime.fetchLoop.Start(runCtx)
	}()
	go func() {
		defer runtime.wg.Done()
		runtime.postLoop.Start(runCtx)
	}()

	m.mu.Lock()
	m.running[agentID] = runtime
	m.mu.Unlock()

	m.logger.Info("agent started", "agent", agentID, "name", agent.Name)
	return nil
}

// Stop takes an agent offline. Stopping a stopped agent is a no-op.
func (m *Manager) Stop(agentID string) {
	m.mu.Lock()
	runtime, ok := m.running[agentID]
	if ok {
		delete(m.running, agentID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	runtime.fetchLoop.Stop()
	runtime.postLoop.Stop()
	runtime.cancel()
	runtime.wg.Wait()
	m.logger.Info("agent stopped", "agent", agentID)
}

// StopAll takes every running agent offline.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Stop(id)
	}
}

// PostNow triggers a manual publish for the agent, of a specific queued
// item when itemID is set, otherwise of the oldest. Manual posts do not
// reset the automatic cadence.
func (m *Manager) PostNow(ctx context.Context, agentID, itemID string) error {
	m.mu.Lock()
	runtime, ok := m.running[agentID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent %s is not running", agentID)
	}

	if itemID != "" {
		return runtime.poster.PostItem(ctx, itemID)
	}
	_, err := runtime.poster.PostNext(ctx)
	return err
}

// RejectItem moves a queued item to the ledger as manually rejected.
// Unknown ids are a no-op.
func (m *Manager) RejectItem(ctx context.Context, agentID, itemID string) error {
	store, err := m.store(ctx, agentID)
	if err != nil {
		return err
	}

	item, err := store.queue.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}

	if err := store.history.Record(ctx, *item, models.StatusRejected, "Rejected manually"); err != nil {
		return err
	}
	return store.queue.Remove(ctx, itemID)
}

// Status reports every configured agent with its runtime state.
func (m *Manager) Status(ctx context.Context) ([]AgentStatus, error) {
	agents, err := m.agents.List(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]AgentStatus, 0, len(agents))
	for _, agent := range agents {
		status := AgentStatus{
			ID:         agent.ID,
			Name:       agent.Name,
			Connection: social.StatusDisconnected,
		}

		m.mu.Lock()
		runtime, running := m.running[agent.ID]
		m.mu.Unlock()
		if running {
			status.Running = true
			status.Connection = runtime.publisher.ConnectionStatus()
			next := runtime.postLoop.NextPostTime()
			status.NextPostAt = &next
		}

		store, err := m.store(ctx, agent.ID)
		if err != nil {
			return nil, err
		}
		if depth, err := store.queue.Depth(ctx); err == nil {
			status.QueueDepth = depth
		}
		if cost, err := store.history.TotalLifetimeCost(ctx); err == nil {
			status.LifetimeCostUSD = cost
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (m *Manager) providersFor(agent models.AgentConfig, store *tenantStore) []ingestion.Provider {
	var providers []ingestion.Provider
	for _, name := range agent.Providers {
		switch name {
		case ingestion.ProviderGNews:
			providers = append(providers, ingestion.NewGNewsProvider(agent.GNewsAPIKey))
		case ingestion.ProviderNewsData:
			providers = append(providers, ingestion.NewNewsDataProvider(agent.NewsDataAPIKey))
		case ingestion.ProviderLocal:
			providers = append(providers, ingestion.NewLocalProvider(store.articles))
		default:
			m.logger.Warn("unknown provider in agent config", "agent", agent.ID, "provider", name)
		}
	}
	return providers
}

// fetchCycle runs one fetch-and-process pass and refreshes the gauges.
func (m *Manager) fetchCycle(ctx context.Context, agent models.AgentConfig, store *tenantStore, fetcher *ingestion.Fetcher) {
	candidates := fetcher.FetchAll(ctx, agent)
	stats := store.processor.ProcessBatch(ctx, agent, candidates)

	if m.collector != nil {
		m.observeBatch(agent.ID, stats)
		if depth, err := store.queue.Depth(ctx); err == nil {
			m.collector.SetQueueDepth(agent.ID, depth)
		}
		if cost, err := store.history.TotalLifetimeCost(ctx); err == nil {
			m.collector.SetLifetimeCost(agent.ID, cost)
		}
	}
}

// postCycle runs one automatic publish pass and reports whether an item was
// drained. Empty-queue firings produce no publish observation.
func (m *Manager) postCycle(ctx context.Context, agent models.AgentConfig, store *tenantStore, poster *pipeline.Poster) bool {
	posted, err := poster.PostNext(ctx)
	if m.collector != nil {
		if posted {
			m.collector.ObservePublish(agent.ID, err == nil)
		}
		if depth, qErr := store.queue.Depth(ctx); qErr == nil {
			m.collector.SetQueueDepth(agent.ID, depth)
		}
	}
	return posted
}

func (m *Manager) observeBatch(agentID string, stats pipeline.BatchStats) {
	counts := map[string]int{
		string(pipeline.ResultDiscarded):         stats.Discarded,
		string(pipeline.ResultDuplicateTitle):    stats.DuplicateTitles,
		string(pipeline.ResultDuplicateSemantic): stats.DuplicateSemantics,
		string(pipeline.ResultRejected):          stats.Rejected,
		string(pipeline.ResultEnqueued):          stats.Enqueued,
	}
	for result, count := range counts {
		for i := 0; i < count; i++ {
			m.collector.ObserveCandidate(agentID, result)
		}
	}
}
