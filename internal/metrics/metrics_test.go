package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestPipelineMetrics(t *testing.T) {
	c, err := NewCollector()
	if err != nil {
		t.Fatal(err)
	}

	c.ObserveCandidate("noticias-br", "enqueued")
	c.ObserveCandidate("noticias-br", "enqueued")
	c.ObserveCandidate("noticias-br", "duplicate_title")
	c.ObservePublish("noticias-br", true)
	c.ObservePublish("noticias-br", false)
	c.SetQueueDepth("noticias-br", 4)
	c.SetLifetimeCost("noticias-br", 1.25)

	body := scrape(t, c)
	for _, want := range []string{
		`pressline_pipeline_candidates_total{agent="noticias-br",result="enqueued"} 2`,
		`pressline_pipeline_candidates_total{agent="noticias-br",result="duplicate_title"} 1`,
		`pressline_pipeline_publishes_total{agent="noticias-br",outcome="success"} 1`,
		`pressline_pipeline_publishes_total{agent="noticias-br",outcome="failure"} 1`,
		`pressline_pipeline_queue_depth{agent="noticias-br"} 4`,
		`pressline_pipeline_lifetime_cost_usd{agent="noticias-br"} 1.25`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestInstrumentHandler(t *testing.T) {
	c, err := NewCollector()
	if err != nil {
		t.Fatal(err)
	}

	handler := c.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("wrapped status = %d", rec.Code)
	}

	body := scrape(t, c)
	want := `pressline_http_requests_total{method="GET",path="/api/status",status="418"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("scrape missing %q", want)
	}
}
