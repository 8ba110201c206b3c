package ingestion

import (
	"context"
	"log/slog"

	"github.com/pressline/pressline/internal/models"
)

// Fetcher runs a full fetch cycle across an agent's enabled providers,
// languages and categories.
type Fetcher struct {
	providers []Provider
	logger    *slog.Logger
}

// NewFetcher creates a fetcher over the agent's providers.
func NewFetcher(providers []Provider, logger *slog.Logger) *Fetcher {
	return &Fetcher{providers: providers, logger: logger}
}

// countryFor picks the request country for a search language.
func countryFor(language string) string {
	if language == "en" {
		return "us"
	}
	return "br"
}

// FetchAll gathers candidates from every provider for every language and
// category combination. A failing provider call is logged and skipped; one
// broken source never empties the whole cycle. The local provider is polled
// once per cycle since submitted articles carry no category.
func (f *Fetcher) FetchAll(ctx context.Context, agent models.AgentConfig) []models.Candidate {
	var all []models.Candidate

	for _, provider := range f.providers {
		if provider.Name() == ProviderLocal {
			lang := agent.TargetLang()
			candidates, err := provider.Fetch(ctx, "", lang, countryFor(lang))
			if err != nil {
				f.logger.Error("local articles fetch failed", "agent", agent.ID, "error", err)
				continue
			}
			all = append(all, f.annotate(candidates, "")...)
			continue
		}

		for _, language := range agent.Languages {
			country := countryFor(language)
			for _, category := range agent.Categories {
				candidates, err := provider.Fetch(ctx, category, language, country)
				if err != nil {
					f.logger.Error("provider fetch failed",
						"agent", agent.ID,
						"provider", provider.Name(),
						"category", category,
						"language", language,
						"error", err)
					continue
				}

				f.logger.Info("provider fetch complete",
					"agent", agent.ID,
					"provider", provider.Name(),
					"category", category,
					"language", language,
					"count", len(candidates))
				all = append(all, f.annotate(candidates, category)...)
			}
		}
	}

	f.logger.Info("fetch cycle complete", "agent", agent.ID, "total", len(all))
	return all
}

func (f *Fetcher) annotate(candidates []models.Candidate, category string) []models.Candidate {
	for i := range candidates {
		if candidates[i].FeedCategory == "" {
			candidates[i].FeedCategory = category
		}
	}
	return candidates
}
