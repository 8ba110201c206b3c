package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pressline/pressline/internal/config"
	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/enrichment"
	"github.com/pressline/pressline/internal/metrics"
	"github.com/pressline/pressline/internal/models"
	"github.com/pressline/pressline/internal/pipeline"
	"github.com/pressline/pressline/internal/social"
)

type fakePublisher struct {
	authErr   error
	published atomic.Int32
	status    social.ConnectionStatus
}

func (f *fakePublisher) Authenticate(ctx context.Context) error {
	if f.authErr != nil {
		return f.authErr
	}
	f.status = social.StatusConnected
	return nil
}

func (f *fakePublisher) Publish(ctx context.Context, imagePNG []byte, caption string) error {
	f.published.Add(1)
	return nil
}

func (f *fakePublisher) ConnectionStatus() social.ConnectionStatus {
	if f.status == "" {
		return social.StatusDisconnected
	}
	return f.status
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, item models.QueueItem, overlayOpacity float64) ([]byte, error) {
	return []byte("png"), nil
}

type fakeValidator struct{}

func (fakeValidator) Validate(ctx context.Context, imageURL string) bool { return imageURL != "" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAgent() models.AgentConfig {
	return models.AgentConfig{
		ID:                   "noticias-br",
		Name:                 "Notícias BR",
		Active:               true,
		InstagramUser:        "noticias.br",
		InstagramPass:        "hunter2",
		Providers:            []string{"local"},
		Categories:           []string{"business"},
		Languages:            []string{"pt"},
		FetchIntervalMinutes: 60,
		PostIntervalMinutes:  60,
	}
}

func newTestManager(t *testing.T, publisher social.Publisher) (*Manager, database.AgentRepository) {
	t.Helper()

	agents := database.NewMemoryAgentRepository()
	llm := &enrichment.ScriptedCompleter{}
	m := NewManager(config.Config{}, nil, agents, llm, fakeValidator{}, fakeRenderer{}, nil, testLogger())
	m.SetPublisherFactory(func(agent models.AgentConfig) social.Publisher {
		return publisher
	})
	t.Cleanup(m.StopAll)
	return m, agents
}

func TestStartAndStopAgent(t *testing.T) {
	ctx := context.Background()
	publisher := &fakePublisher{}
	m, agents := newTestManager(t, publisher)

	if err := agents.Upsert(ctx, testAgent()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, "noticias-br"); err != nil {
		t.Fatal(err)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if !statuses[0].Running || statuses[0].Connection != social.StatusConnected {
		t.Errorf("status = %+v, want running and connected", statuses[0])
	}

	m.Stop("noticias-br")

	statuses, err = m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if statuses[0].Running || statuses[0].Connection == social.StatusConnected {
		t.Errorf("status after stop = %+v", statuses[0])
	}
}

func TestStartUnknownAgent(t *testing.T) {
	m, _ := newTestManager(t, &fakePublisher{})

	if err := m.Start(context.Background(), "ghost"); err == nil {
		t.Error("starting an unknown agent succeeded")
	}
}

func TestStartWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	m, agents := newTestManager(t, &fakePublisher{})

	agent := testAgent()
	agent.InstagramPass = ""
	if err := agents.Upsert(ctx, agent); err != nil {
		t.Fatal(err)
	}

	if err := m.Start(ctx, agent.ID); err == nil {
		t.Error("agent without credentials started")
	}
}

func TestStartAuthFailureLeavesAgentStopped(t *testing.T) {
	ctx := context.Background()
	m, agents := newTestManager(t, &fakePublisher{authErr: errors.New("challenge required")})

	if err := agents.Upsert(ctx, testAgent()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, "noticias-br"); err == nil {
		t.Fatal("start with failing authentication succeeded")
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if statuses[0].Running {
		t.Error("agent reported running after failed authentication")
	}
}

func TestStartTwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	m, agents := newTestManager(t, &fakePublisher{})

	if err := agents.Upsert(ctx, testAgent()); err != nil {
		t.Fatal(err)
	}

	var factoryCalls atomic.Int32
	m.SetPublisherFactory(func(agent models.AgentConfig) social.Publisher {
		factoryCalls.Add(1)
		return &fakePublisher{}
	})

	if err := m.Start(ctx, "noticias-br"); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, "noticias-br"); err != nil {
		t.Fatal(err)
	}
	if got := factoryCalls.Load(); got != 1 {
		t.Errorf("publisher built %d times, want 1", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, &fakePublisher{})

	m.Stop("noticias-br")
	m.Stop("noticias-br")
}

func TestPostNowRequiresRunningAgent(t *testing.T) {
	m, _ := newTestManager(t, &fakePublisher{})

	if err := m.PostNow(context.Background(), "noticias-br", ""); err == nil {
		t.Error("manual post on a stopped agent succeeded")
	}
}

func TestRejectItem(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, &fakePublisher{})

	queue, err := m.Queue(ctx, "noticias-br")
	if err != nil {
		t.Fatal(err)
	}
	item := models.QueueItem{
		ID:            "item-1",
		TitleOriginal: "Juros sobem",
		TitleRefined:  "Juros sobem de novo",
		SemanticHash:  "abc123",
		CostUSD:       0.004,
		EnqueuedAt:    time.Now().UTC(),
	}
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatal(err)
	}

	if err := m.RejectItem(ctx, "noticias-br", "item-1"); err != nil {
		t.Fatal(err)
	}

	got, err := queue.GetByID(ctx, "item-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("rejected item still queued")
	}

	history, err := m.History(ctx, "noticias-br")
	if err != nil {
		t.Fatal(err)
	}
	records, err := history.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Status != models.StatusRejected || records[0].Reason != "Rejected manually" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestRejectUnknownItemIsNoOp(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, &fakePublisher{})

	if err := m.RejectItem(ctx, "noticias-br", "missing"); err != nil {
		t.Errorf("rejecting an unknown item errored: %v", err)
	}
}

func scrapeMetrics(t *testing.T, collector *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestPostCycleCountsOnlyDrainedItems(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	collector, err := metrics.NewCollector()
	if err != nil {
		t.Fatal(err)
	}

	llm := &enrichment.ScriptedCompleter{}
	m := NewManager(config.Config{}, nil, database.NewMemoryAgentRepository(),
		llm, fakeValidator{}, fakeRenderer{}, collector, logger)

	agent := testAgent()
	store, err := m.store(ctx, agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	poster := pipeline.NewPoster(agent, store.queue, store.history,
		enrichment.NewStages(llm, logger), fakeRenderer{}, &fakePublisher{}, logger)

	if m.postCycle(ctx, agent, store, poster) {
		t.Error("empty queue reported a post")
	}
	if strings.Contains(scrapeMetrics(t, collector), "pressline_pipeline_publishes_total") {
		t.Error("empty-queue firing produced a publish observation")
	}

	item := models.QueueItem{
		ID:           "item-1",
		TitleRefined: "Juros sobem",
		SemanticHash: "hash-1",
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := store.queue.Enqueue(ctx, item); err != nil {
		t.Fatal(err)
	}

	if !m.postCycle(ctx, agent, store, poster) {
		t.Error("drained item not reported")
	}
	body := scrapeMetrics(t, collector)
	want := `pressline_pipeline_publishes_total{agent="noticias-br",outcome="success"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("scrape missing %q", want)
	}
}

func TestSubmitLocalArticle(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, &fakePublisher{})

	article := models.Candidate{
		Title:    "Prefeitura anuncia obras",
		Content:  "Detalhes da obra.",
		ImageURL: "https://example.com/obra.jpg",
		Language: "pt",
	}
	if err := m.SubmitLocalArticle(ctx, "noticias-br", article); err != nil {
		t.Fatal(err)
	}
}
