package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pressline/pressline/internal/models"
)

const gnewsEndpoint = "https://gnews.io/api/v4/top-headlines"

// GNewsProvider fetches top headlines from the GNews API.
type GNewsProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Provider = (*GNewsProvider)(nil)

// NewGNewsProvider creates a GNews provider with the given API key.
func NewGNewsProvider(apiKey string) *GNewsProvider {
	return &GNewsProvider{apiKey: apiKey, baseURL: gnewsEndpoint, client: newHTTPClient()}
}

// Name returns the provider identifier.
func (p *GNewsProvider) Name() string { return ProviderGNews }

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		Image       string `json:"image"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch retrieves up to 10 headlines for the category, with full article
// content expanded.
func (p *GNewsProvider) Fetch(ctx context.Context, category, language, country string) ([]models.Candidate, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("topic", category)
	params.Set("lang", language)
	params.Set("country", country)
	params.Set("max", "10")
	params.Set("expand", "content")
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build gnews request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gnews request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gnews returned status %d", resp.StatusCode)
	}

	var payload gnewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode gnews response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		candidates = append(candidates, models.Candidate{
			Title:       stripHTML(a.Title),
			Description: stripHTML(a.Description),
			Content:     stripHTML(a.Content),
			ImageURL:    a.Image,
			SourceName:  a.Source.Name,
			SourceAPI:   ProviderGNews,
			Language:    language,
		})
	}
	return candidates, nil
}
