package pipeline

import (
	"context"
	"log/slog"

	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/dedup"
	"github.com/pressline/pressline/internal/enrichment"
	"github.com/pressline/pressline/internal/models"
)

// Result classifies what happened to one candidate.
type Result string

const (
	ResultDiscarded         Result = "discarded"
	ResultDuplicateTitle    Result = "duplicate_title"
	ResultDuplicateSemantic Result = "duplicate_semantic"
	ResultRejected          Result = "rejected"
	ResultEnqueued          Result = "enqueued"
)

// History title markers for candidates that never reached the queue. The
// marked title is what operators see in the ledger view.
const (
	markerDuplicateTitle    = "[DUPLICATE TITLE] "
	markerDuplicateSemantic = "[DUPLICATE] "
	markerRejected          = "[REJECTED] "

	markerTitleLimit = 150
)

// ImageValidator decides whether a candidate's image is usable for a post.
type ImageValidator interface {
	Validate(ctx context.Context, imageURL string) bool
}

// Processor runs candidates through deduplication and enrichment, enqueueing
// the survivors and ledgering everything else. Stage ordering is a cost
// control: the free title check and the cheap canonical-title call run
// before the expensive stages, so duplicates are settled before most of the
// spend.
type Processor struct {
	stages  *enrichment.Stages
	index   *dedup.Index
	queue   database.QueueRepository
	history database.HistoryRepository
	images  ImageValidator
	logger  *slog.Logger
}

// NewProcessor wires a candidate processor for one agent.
func NewProcessor(
	stages *enrichment.Stages,
	index *dedup.Index,
	queue database.QueueRepository,
	history database.HistoryRepository,
	images ImageValidator,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		stages:  stages,
		index:   index,
		queue:   queue,
		history: history,
		images:  images,
		logger:  logger,
	}
}

// BatchStats summarizes one processing cycle.
type BatchStats struct {
	Discarded          int
	DuplicateTitles    int
	DuplicateSemantics int
	Rejected           int
	Enqueued           int
	Cost               enrichment.Cost
}

// ProcessBatch runs every candidate through the pipeline.
func (p *Processor) ProcessBatch(ctx context.Context, agent models.AgentConfig, candidates []models.Candidate) BatchStats {
	var stats BatchStats

	for _, candidate := range candidates {
		result, cost := p.ProcessCandidate(ctx, agent, candidate)
		stats.Cost = stats.Cost.Add(cost)

		switch result {
		case ResultDiscarded:
			stats.Discarded++
		case ResultDuplicateTitle:
			stats.DuplicateTitles++
		case ResultDuplicateSemantic:
			stats.DuplicateSemantics++
		case ResultRejected:
			stats.Rejected++
		case ResultEnqueued:
			stats.Enqueued++
		}
	}

	p.logger.Info("processing cycle complete",
		"agent", agent.ID,
		"candidates", len(candidates),
		"enqueued", stats.Enqueued,
		"duplicate_titles", stats.DuplicateTitles,
		"duplicate_semantics", stats.DuplicateSemantics,
		"rejected", stats.Rejected,
		"discarded", stats.Discarded,
		"cost_usd", stats.Cost.USD)
	return stats
}

// ProcessCandidate runs a single candidate through the pipeline and returns
// what happened plus the total language-model spend it incurred.
func (p *Processor) ProcessCandidate(ctx context.Context, agent models.AgentConfig, candidate models.Candidate) (Result, enrichment.Cost) {
	var total enrichment.Cost

	if candidate.Title == "" || !p.images.Validate(ctx, candidate.ImageURL) {
		return ResultDiscarded, total
	}

	title := candidate.BaseTitle()
	body := candidate.Body()

	// Free check first: an exact title we have already seen costs nothing
	// to detect.
	if p.index.IsDuplicateTitle(ctx, title) {
		p.recordRejection(ctx, candidate, title, markerDuplicateTitle, dedup.SemanticHash(title), total, "Duplicate title")
		return ResultDuplicateTitle, total
	}

	canonical, cost := p.stages.CanonicalTitle(ctx, title, body)
	total = total.Add(cost)
	hash := dedup.SemanticHash(canonical)

	if p.index.IsDuplicateSemantic(ctx, hash) {
		p.recordRejection(ctx, candidate, title, markerDuplicateSemantic, hash, total, "Semantic duplicate")
		return ResultDuplicateSemantic, total
	}

	verdict, reason, cost := p.stages.FilterRelevance(ctx, title, body)
	total = total.Add(cost)
	if verdict != enrichment.VerdictApproved {
		p.recordRejection(ctx, candidate, title, markerRejected, hash, total, reason)
		return ResultRejected, total
	}

	processedTitle, processedBody := title, body
	if candidate.Language != agent.TargetLang() {
		processedTitle, cost = p.stages.Translate(ctx, title, agent.TargetLang())
		total = total.Add(cost)
		processedBody, cost = p.stages.Translate(ctx, body, agent.TargetLang())
		total = total.Add(cost)
	}

	refined, cost := p.stages.RefineTitle(ctx, processedTitle, agent.TargetLang())
	total = total.Add(cost)

	rewritten, cost := p.stages.RewriteCaption(ctx, refined, processedBody, agent.TargetLang())
	total = total.Add(cost)

	category, cost := p.stages.Categorize(ctx, refined, rewritten)
	total = total.Add(cost)

	item := models.QueueItem{
		TitleOriginal: title,
		TitleRefined:  refined,
		BodyOriginal:  body,
		BodyRewritten: rewritten,
		Description:   candidate.Description,
		ImageURL:      candidate.ImageURL,
		SourceName:    candidate.SourceName,
		SourceAPI:     candidate.SourceAPI,
		Language:      candidate.Language,
		Category:      category,
		SemanticHash:  hash,
		CostUSD:       total.USD,
	}
	if err := p.queue.Enqueue(ctx, item); err != nil {
		p.logger.Error("enqueue failed", "agent", agent.ID, "title", refined, "error", err)
		return ResultDiscarded, total
	}

	p.logger.Info("candidate enqueued",
		"agent", agent.ID,
		"title", refined,
		"category", category,
		"source_api", candidate.SourceAPI,
		"cost_usd", total.USD)
	return ResultEnqueued, total
}

// recordRejection ledgers a candidate that never reached the queue, with a
// marked truncated title and the cost spent before the decision.
func (p *Processor) recordRejection(ctx context.Context, candidate models.Candidate, title, marker, hash string, cost enrichment.Cost, reason string) {
	item := models.QueueItem{
		TitleOriginal: title,
		TitleRefined:  marker + truncateRunes(title, markerTitleLimit),
		BodyOriginal:  candidate.Body(),
		SourceAPI:     candidate.SourceAPI,
		Language:      candidate.Language,
		SemanticHash:  hash,
		CostUSD:       cost.USD,
	}
	if err := p.history.Record(ctx, item, models.StatusRejected, reason); err != nil {
		p.logger.Error("history record failed", "title", title, "error", err)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
