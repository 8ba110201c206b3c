package ingestion

import (
	"context"
	"net/http"
	"time"

	"github.com/pressline/pressline/internal/models"
)

// Provider fetches candidate articles from one news source for a given
// category, language and country.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, category, language, country string) ([]models.Candidate, error)
}

// Provider names as they appear in agent configuration and on stored items.
const (
	ProviderGNews    = "gnews"
	ProviderNewsData = "newsdata"
	ProviderLocal    = "local"
)

const fetchTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: fetchTimeout}
}
