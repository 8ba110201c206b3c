package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/dedup"
	"github.com/pressline/pressline/internal/enrichment"
	"github.com/pressline/pressline/internal/models"
)

type fakeValidator struct {
	ok bool
}

func (f fakeValidator) Validate(ctx context.Context, imageURL string) bool {
	return f.ok
}

// Responses keyed by fragments of each stage's prompt template.
func scriptedResponses() map[string]string {
	return map[string]string{
		"Summarize the core news event": "central bank raises rates",
		"editor of a general-interest":  "APPROVED",
		"Translate the following":       "texto em português",
		"Rewrite the headline":          "Juros sobem de novo",
		"Rewrite the news article":      "O banco central subiu os juros. ||| O que você acha?",
		"Classify the news post":        "Economy",
	}
}

type processorFixture struct {
	processor *Processor
	completer *enrichment.ScriptedCompleter
	queue     *database.MemoryQueueRepository
	history   *database.MemoryHistoryRepository
}

func newFixture(responses map[string]string, imageOK bool) *processorFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	completer := &enrichment.ScriptedCompleter{
		Responses: responses,
		CallCost:  enrichment.Cost{USD: 0.001},
	}
	queue := database.NewMemoryQueueRepository()
	history := database.NewMemoryHistoryRepository()
	index := dedup.NewIndex(queue, history, logger)
	stages := enrichment.NewStages(completer, logger)

	return &processorFixture{
		processor: NewProcessor(stages, index, queue, history, fakeValidator{ok: imageOK}, logger),
		completer: completer,
		queue:     queue,
		history:   history,
	}
}

func testAgent() models.AgentConfig {
	return models.AgentConfig{ID: "br-news", TargetLanguage: "pt"}
}

func englishCandidate() models.Candidate {
	return models.Candidate{
		Title:      "Central bank raises rates - Reuters",
		Content:    "The central bank raised interest rates today.",
		ImageURL:   "https://example.com/img.jpg",
		SourceName: "Reuters",
		SourceAPI:  "gnews",
		Language:   "en",
	}
}

func TestProcessCandidateEnqueued(t *testing.T) {
	f := newFixture(scriptedResponses(), true)
	ctx := context.Background()

	result, cost := f.processor.ProcessCandidate(ctx, testAgent(), englishCandidate())
	if result != ResultEnqueued {
		t.Fatalf("result = %s, want enqueued", result)
	}

	// canonical + filter + 2 translations + refine + rewrite + categorize.
	if f.completer.Calls() != 7 {
		t.Errorf("model calls = %d, want 7", f.completer.Calls())
	}
	if math.Abs(cost.USD-0.007) > 1e-9 {
		t.Errorf("cost = %f, want 0.007", cost.USD)
	}

	item, err := f.queue.PeekOldest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if item == nil {
		t.Fatal("nothing enqueued")
	}
	if item.TitleOriginal != "Central bank raises rates" {
		t.Errorf("source suffix not stripped: %q", item.TitleOriginal)
	}
	if item.TitleRefined != "Juros sobem de novo" {
		t.Errorf("refined title = %q", item.TitleRefined)
	}
	if item.BodyRewritten != "O banco central subiu os juros.\n\nO que você acha?" {
		t.Errorf("rewritten body = %q", item.BodyRewritten)
	}
	if item.Category != "Economy" {
		t.Errorf("category = %q", item.Category)
	}
	if item.SemanticHash != dedup.SemanticHash("central bank raises rates") {
		t.Errorf("semantic hash mismatch: %q", item.SemanticHash)
	}
	if math.Abs(item.CostUSD-0.007) > 1e-9 {
		t.Errorf("item cost = %f, want 0.007", item.CostUSD)
	}
}

func TestProcessCandidateSameLanguageSkipsTranslation(t *testing.T) {
	f := newFixture(scriptedResponses(), true)

	candidate := englishCandidate()
	candidate.Language = "pt"
	result, _ := f.processor.ProcessCandidate(context.Background(), testAgent(), candidate)
	if result != ResultEnqueued {
		t.Fatalf("result = %s, want enqueued", result)
	}

	// canonical + filter + refine + rewrite + categorize, no translations.
	if f.completer.Calls() != 5 {
		t.Errorf("model calls = %d, want 5", f.completer.Calls())
	}
}

func TestProcessCandidateDiscards(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.Candidate
		imageOK   bool
	}{
		{"missing title", models.Candidate{ImageURL: "https://example.com/i.jpg"}, true},
		{"bad image", englishCandidate(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(scriptedResponses(), tt.imageOK)

			result, cost := f.processor.ProcessCandidate(context.Background(), testAgent(), tt.candidate)
			if result != ResultDiscarded {
				t.Errorf("result = %s, want discarded", result)
			}
			if cost.USD != 0 {
				t.Errorf("discard must cost nothing, got %f", cost.USD)
			}
			if f.completer.Calls() != 0 {
				t.Errorf("discard must not call the model, got %d calls", f.completer.Calls())
			}
			if records, _ := f.history.Recent(context.Background(), 10); len(records) != 0 {
				t.Errorf("discard must not touch the ledger, got %d records", len(records))
			}
		})
	}
}

func TestProcessCandidateDuplicateTitle(t *testing.T) {
	f := newFixture(scriptedResponses(), true)
	ctx := context.Background()

	seed := models.QueueItem{TitleOriginal: "Central bank raises rates", SemanticHash: "seeded"}
	if err := f.queue.Enqueue(ctx, seed); err != nil {
		t.Fatal(err)
	}

	result, cost := f.processor.ProcessCandidate(ctx, testAgent(), englishCandidate())
	if result != ResultDuplicateTitle {
		t.Fatalf("result = %s, want duplicate_title", result)
	}
	if cost.USD != 0 {
		t.Errorf("title duplicate must be free, got %f", cost.USD)
	}
	if f.completer.Calls() != 0 {
		t.Errorf("title duplicate must not call the model")
	}

	records, _ := f.history.Recent(ctx, 10)
	if len(records) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(records))
	}
	if !strings.HasPrefix(records[0].TitleRefined, "[DUPLICATE TITLE] ") {
		t.Errorf("marker missing: %q", records[0].TitleRefined)
	}
	if records[0].Status != models.StatusRejected {
		t.Errorf("status = %s, want REJECTED", records[0].Status)
	}
}

func TestProcessCandidateSemanticDuplicate(t *testing.T) {
	f := newFixture(scriptedResponses(), true)
	ctx := context.Background()

	// Same event, differently worded title, already in the ledger.
	seed := models.QueueItem{
		TitleOriginal: "Rates go up again",
		SemanticHash:  dedup.SemanticHash("central bank raises rates"),
	}
	if err := f.history.Record(ctx, seed, models.StatusPublished, ""); err != nil {
		t.Fatal(err)
	}

	result, cost := f.processor.ProcessCandidate(ctx, testAgent(), englishCandidate())
	if result != ResultDuplicateSemantic {
		t.Fatalf("result = %s, want duplicate_semantic", result)
	}
	// Only the canonical-title call was paid.
	if math.Abs(cost.USD-0.001) > 1e-9 {
		t.Errorf("cost = %f, want 0.001", cost.USD)
	}
	if f.completer.Calls() != 1 {
		t.Errorf("model calls = %d, want 1", f.completer.Calls())
	}

	// The ledger entry was skipped by the hash conflict, but the spend
	// still ratcheted the counter.
	total, _ := f.history.TotalLifetimeCost(ctx)
	if math.Abs(total-0.001) > 1e-9 {
		t.Errorf("lifetime cost = %f, want 0.001", total)
	}
}

func TestProcessCandidateRejectedByFilter(t *testing.T) {
	responses := scriptedResponses()
	responses["editor of a general-interest"] = "REPROVADA"
	f := newFixture(responses, true)
	ctx := context.Background()

	result, _ := f.processor.ProcessCandidate(ctx, testAgent(), englishCandidate())
	if result != ResultRejected {
		t.Fatalf("result = %s, want rejected", result)
	}

	records, _ := f.history.Recent(ctx, 10)
	if len(records) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(records))
	}
	if !strings.HasPrefix(records[0].TitleRefined, "[REJECTED] ") {
		t.Errorf("marker missing: %q", records[0].TitleRefined)
	}
	if records[0].Reason != "REPROVADA" {
		t.Errorf("raw verdict must be kept as reason, got %q", records[0].Reason)
	}

	if depth, _ := f.queue.Depth(ctx); depth != 0 {
		t.Errorf("rejected candidate must not be enqueued")
	}
}

func TestProcessBatchCounts(t *testing.T) {
	f := newFixture(scriptedResponses(), true)

	good := englishCandidate()
	noTitle := models.Candidate{ImageURL: "https://example.com/i.jpg"}
	dupTitle := englishCandidate() // same title as good, enqueued first

	stats := f.processor.ProcessBatch(context.Background(), testAgent(), []models.Candidate{good, noTitle, dupTitle})
	if stats.Enqueued != 1 || stats.Discarded != 1 || stats.DuplicateTitles != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
