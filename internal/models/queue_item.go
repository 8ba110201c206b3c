package models

import "time"

// QueueItem is a fully enriched article waiting to be published. It is owned
// by the publish queue until it is drained into the history ledger.
type QueueItem struct {
	ID            string
	TitleOriginal string
	TitleRefined  string
	BodyOriginal  string
	BodyRewritten string
	Description   string
	ImageURL      string
	SourceName    string
	SourceAPI     string
	Language      string
	Category      string
	SemanticHash  string
	CostUSD       float64
	EnqueuedAt    time.Time
}

// QueueSummary is the projection returned by queue listings.
type QueueSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	SourceAPI string `json:"source_api"`
}
