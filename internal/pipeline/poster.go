package pipeline

import (
	"context"
	"log/slog"

	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/enrichment"
	"github.com/pressline/pressline/internal/media"
	"github.com/pressline/pressline/internal/models"
	"github.com/pressline/pressline/internal/social"
)

// Poster consumes the publish queue: it renders the post image, finalizes
// the caption, publishes, and moves the item into the history ledger.
//
// Consumption is at most once. After a publish attempt the item leaves the
// queue whether the attempt succeeded or not; only a render failure leaves
// it queued for a later try.
type Poster struct {
	agent     models.AgentConfig
	queue     database.QueueRepository
	history   database.HistoryRepository
	stages    *enrichment.Stages
	renderer  media.Renderer
	publisher social.Publisher
	logger    *slog.Logger
}

// NewPoster wires a queue consumer for one agent.
func NewPoster(
	agent models.AgentConfig,
	queue database.QueueRepository,
	history database.HistoryRepository,
	stages *enrichment.Stages,
	renderer media.Renderer,
	publisher social.Publisher,
	logger *slog.Logger,
) *Poster {
	return &Poster{
		agent:     agent,
		queue:     queue,
		history:   history,
		stages:    stages,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
	}
}

// PostNext publishes the oldest queued item. It reports whether an item was
// found to attempt; an empty queue logs and returns (false, nil).
func (p *Poster) PostNext(ctx context.Context) (bool, error) {
	item, err := p.queue.PeekOldest(ctx)
	if err != nil {
		return false, err
	}
	if item == nil {
		p.logger.Info("publish queue empty", "agent", p.agent.ID)
		return false, nil
	}
	return true, p.post(ctx, *item)
}

// PostItem publishes a specific queued item by id. An unknown id logs and
// returns without error.
func (p *Poster) PostItem(ctx context.Context, id string) error {
	item, err := p.queue.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		p.logger.Warn("queue item not found", "agent", p.agent.ID, "id", id)
		return nil
	}
	return p.post(ctx, *item)
}

func (p *Poster) post(ctx context.Context, item models.QueueItem) error {
	p.logger.Info("starting publish", "agent", p.agent.ID, "title", item.TitleRefined)

	imagePNG, err := p.renderer.Render(ctx, item, p.agent.OverlayOpacity)
	if err != nil {
		// Item stays queued; the image may be reachable next cycle.
		p.logger.Error("post image render failed, item left in queue",
			"agent", p.agent.ID, "title", item.TitleRefined, "error", err)
		return err
	}

	// Hashtags are deferred to publish time so rejected and duplicate
	// items never pay for them.
	hashtags, cost := p.stages.Hashtags(ctx, item.TitleRefined+" "+item.BodyRewritten, item.Category)
	item.CostUSD += cost.USD

	caption := social.BuildCaption(p.agent.InstagramUser, item.BodyRewritten, item.SourceName, item.Category, hashtags)

	publishErr := p.publisher.Publish(ctx, imagePNG, caption)
	if publishErr != nil {
		p.logger.Error("publish failed", "agent", p.agent.ID, "title", item.TitleRefined, "error", publishErr)
		if err := p.history.Record(ctx, item, models.StatusFailed, "Error during publishing"); err != nil {
			p.logger.Error("history record failed", "agent", p.agent.ID, "error", err)
		}
	} else {
		p.logger.Info("publish complete", "agent", p.agent.ID, "title", item.TitleRefined)
		if err := p.history.Record(ctx, item, models.StatusPublished, ""); err != nil {
			p.logger.Error("history record failed", "agent", p.agent.ID, "error", err)
		}
	}

	if err := p.queue.Remove(ctx, item.ID); err != nil {
		p.logger.Error("queue remove failed", "agent", p.agent.ID, "id", item.ID, "error", err)
		return err
	}
	return publishErr
}
