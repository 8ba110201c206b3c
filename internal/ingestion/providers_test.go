package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGNewsFetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"topic":   r.URL.Query().Get("topic"),
			"lang":    r.URL.Query().Get("lang"),
			"country": r.URL.Query().Get("country"),
			"max":     r.URL.Query().Get("max"),
			"expand":  r.URL.Query().Get("expand"),
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"articles": []map[string]interface{}{
				{
					"title":       "Rates <b>rise</b>",
					"description": "A description",
					"content":     "Full content",
					"image":       "https://example.com/i.jpg",
					"source":      map[string]string{"name": "Reuters"},
				},
			},
		})
	}))
	defer srv.Close()

	provider := NewGNewsProvider("test-key")
	provider.baseURL = srv.URL

	candidates, err := provider.Fetch(context.Background(), "business", "en", "us")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}

	c := candidates[0]
	if c.Title != "Rates rise" {
		t.Errorf("markup not stripped from title: %q", c.Title)
	}
	if c.SourceName != "Reuters" || c.SourceAPI != ProviderGNews || c.Language != "en" {
		t.Errorf("candidate metadata wrong: %+v", c)
	}

	if gotQuery["topic"] != "business" || gotQuery["lang"] != "en" || gotQuery["country"] != "us" {
		t.Errorf("query params = %v", gotQuery)
	}
	if gotQuery["max"] != "10" || gotQuery["expand"] != "content" {
		t.Errorf("fixed params = %v", gotQuery)
	}
}

func TestGNewsWithoutKeyReturnsNothing(t *testing.T) {
	provider := NewGNewsProvider("")
	candidates, err := provider.Fetch(context.Background(), "business", "en", "us")
	if err != nil || candidates != nil {
		t.Errorf("unkeyed provider must be silent, got %v / %v", candidates, err)
	}
}

func TestNewsDataCategoryRemap(t *testing.T) {
	tests := []struct {
		requested string
		sent      string
	}{
		{"breaking-news", "top"},
		{"nation", "politics"},
		{"sports", "sports"},
	}

	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			var gotCategory string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCategory = r.URL.Query().Get("category")
				json.NewEncoder(w).Encode(map[string]interface{}{
					"results": []map[string]interface{}{},
				})
			}))
			defer srv.Close()

			provider := NewNewsDataProvider("test-key")
			provider.baseURL = srv.URL

			if _, err := provider.Fetch(context.Background(), tt.requested, "pt", "br"); err != nil {
				t.Fatal(err)
			}
			if gotCategory != tt.sent {
				t.Errorf("category sent = %q, want %q", gotCategory, tt.sent)
			}
		})
	}
}

func TestNewsDataFetchParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"title":       "Juros sobem",
					"description": "desc",
					"content":     "conteudo",
					"image_url":   "https://example.com/i.jpg",
					"source_id":   "g1",
				},
			},
		})
	}))
	defer srv.Close()

	provider := NewNewsDataProvider("test-key")
	provider.baseURL = srv.URL

	candidates, err := provider.Fetch(context.Background(), "top", "pt", "br")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if candidates[0].SourceName != "g1" || candidates[0].SourceAPI != ProviderNewsData {
		t.Errorf("candidate = %+v", candidates[0])
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"  spaced  ", "spaced"},
	}

	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
