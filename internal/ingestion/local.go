package ingestion

import (
	"context"
	"time"

	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/models"
)

// localRecencyWindow bounds how old an operator-submitted article can be and
// still enter a fetch cycle.
const localRecencyWindow = 30 * time.Minute

// LocalProvider serves operator-submitted articles stored in the tenant's
// local_articles table. It ignores category and country; submitted articles
// are always considered on-topic.
type LocalProvider struct {
	articles database.LocalArticleRepository
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider over the tenant's submitted articles.
func NewLocalProvider(articles database.LocalArticleRepository) *LocalProvider {
	return &LocalProvider{articles: articles}
}

// Name returns the provider identifier.
func (p *LocalProvider) Name() string { return ProviderLocal }

// Fetch returns articles submitted within the recency window.
func (p *LocalProvider) Fetch(ctx context.Context, category, language, country string) ([]models.Candidate, error) {
	fresh, err := p.articles.RecentWithin(ctx, localRecencyWindow)
	if err != nil {
		return nil, err
	}

	for i := range fresh {
		fresh[i].SourceAPI = ProviderLocal
		if fresh[i].Language == "" {
			fresh[i].Language = language
		}
	}
	return fresh, nil
}
