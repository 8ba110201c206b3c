package models

import "time"

// HistoryStatus is the terminal outcome recorded for a processed article.
type HistoryStatus string

const (
	StatusPublished HistoryStatus = "PUBLISHED"
	StatusRejected  HistoryStatus = "REJECTED"
	StatusFailed    HistoryStatus = "FAILED"
)

// HistoryRecord is an append-only ledger entry. Records are never mutated or
// deleted once written.
type HistoryRecord struct {
	ID            string
	TitleOriginal string
	TitleRefined  string
	BodyOriginal  string
	BodyRewritten string
	SourceAPI     string
	Language      string
	SemanticHash  string
	Status        HistoryStatus
	Reason        string
	CostUSD       float64
	ProcessedAt   time.Time
}
