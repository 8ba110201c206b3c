package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pressline/pressline/internal/models"
)

const newsdataEndpoint = "https://newsdata.io/api/1/news"

// NewsDataProvider fetches latest news from the NewsData API.
type NewsDataProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Provider = (*NewsDataProvider)(nil)

// NewNewsDataProvider creates a NewsData provider with the given API key.
func NewNewsDataProvider(apiKey string) *NewsDataProvider {
	return &NewsDataProvider{apiKey: apiKey, baseURL: newsdataEndpoint, client: newHTTPClient()}
}

// Name returns the provider identifier.
func (p *NewsDataProvider) Name() string { return ProviderNewsData }

// NewsData uses its own category taxonomy; remap the shared categories it
// does not understand.
var newsdataCategoryMap = map[string]string{
	"breaking-news": "top",
	"nation":        "politics",
}

type newsdataResponse struct {
	Results []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		ImageURL    string `json:"image_url"`
		SourceID    string `json:"source_id"`
	} `json:"results"`
}

// Fetch retrieves the latest articles for the category.
func (p *NewsDataProvider) Fetch(ctx context.Context, category, language, country string) ([]models.Candidate, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	if remapped, ok := newsdataCategoryMap[category]; ok {
		category = remapped
	}

	params := url.Values{}
	params.Set("apikey", p.apiKey)
	params.Set("category", category)
	params.Set("language", language)
	params.Set("country", country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build newsdata request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsdata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsdata returned status %d", resp.StatusCode)
	}

	var payload newsdataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode newsdata response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(payload.Results))
	for _, a := range payload.Results {
		candidates = append(candidates, models.Candidate{
			Title:       stripHTML(a.Title),
			Description: stripHTML(a.Description),
			Content:     stripHTML(a.Content),
			ImageURL:    a.ImageURL,
			SourceName:  a.SourceID,
			SourceAPI:   ProviderNewsData,
			Language:    language,
		})
	}
	return candidates, nil
}
