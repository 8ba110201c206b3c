package models

import "strings"

// Candidate is a raw article produced by one fetch cycle. It is never
// persisted directly; survivors become queue items after enrichment.
type Candidate struct {
	Title        string
	Description  string
	Content      string
	ImageURL     string
	SourceName   string
	SourceAPI    string
	Language     string
	FeedCategory string
}

// BaseTitle strips a trailing " - Publisher" suffix that aggregators append
// to headlines, so duplicate detection sees the same title across providers.
func (c Candidate) BaseTitle() string {
	if idx := strings.LastIndex(c.Title, " - "); idx > 0 {
		return c.Title[:idx]
	}
	return c.Title
}

// Body returns the richest text available for the candidate: full content
// when the provider exposes it, the short description otherwise.
func (c Candidate) Body() string {
	if c.Content != "" {
		return c.Content
	}
	return c.Description
}
