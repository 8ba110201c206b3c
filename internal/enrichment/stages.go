package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Relevance verdicts returned by FilterRelevance.
const (
	VerdictApproved = "APPROVED"
	VerdictRejected = "REJECTED"
)

// CaptionSeparator splits a rewritten caption into lead and closing hook.
const CaptionSeparator = "|||"

const (
	canonicalExcerptLimit = 300
	filterExcerptLimit    = 700
)

var listMarkerRe = regexp.MustCompile(`^\s*[\d.\-*]+\s*`)

// Stages bundles the language-model transformations the pipeline applies to
// a candidate article. Every stage degrades to a safe fallback when the
// model is unavailable; none of them returns an error.
type Stages struct {
	llm    Completer
	logger *slog.Logger
}

// NewStages wires the stage set to a completer.
func NewStages(llm Completer, logger *slog.Logger) *Stages {
	return &Stages{llm: llm, logger: logger}
}

// CanonicalTitle reduces the article to a canonical one-sentence English
// summary of the underlying event, used for semantic deduplication. Falls
// back to the original title when the model yields nothing.
func (s *Stages) CanonicalTitle(ctx context.Context, title, content string) (string, Cost) {
	prompt := fmt.Sprintf(canonicalTitlePrompt, title, truncateRunes(content, canonicalExcerptLimit))
	result, cost := s.llm.Complete(ctx, prompt)
	if result == "" {
		s.logger.Warn("canonical title unavailable, falling back to original", "title", title)
		return title, cost
	}
	return result, cost
}

// FilterRelevance asks the editorial filter for a verdict. Only the exact
// approval literal approves; anything else, including model failure, is a
// rejection with the raw verdict text as the reason.
func (s *Stages) FilterRelevance(ctx context.Context, title, body string) (string, string, Cost) {
	prompt := fmt.Sprintf(filterRelevancePrompt, title, truncateRunes(body, filterExcerptLimit))
	result, cost := s.llm.Complete(ctx, prompt)
	if result == "" {
		return VerdictRejected, VerdictRejected, cost
	}

	if result == VerdictApproved {
		return VerdictApproved, "", cost
	}
	return VerdictRejected, result, cost
}

// Translate converts the text into the target language. Empty input and
// model failure both pass the original text through unchanged.
func (s *Stages) Translate(ctx context.Context, text, targetLang string) (string, Cost) {
	if strings.TrimSpace(text) == "" {
		return text, Cost{}
	}

	result, cost := s.llm.Complete(ctx, fmt.Sprintf(translatePrompt, targetLang, text))
	if result == "" {
		s.logger.Warn("translation unavailable, keeping original text", "target_lang", targetLang)
		return text, cost
	}
	return result, cost
}

// RefineTitle rewrites the headline for posting. Quotation marks are
// stripped from the result; failure keeps the original headline.
func (s *Stages) RefineTitle(ctx context.Context, title, targetLang string) (string, Cost) {
	result, cost := s.llm.Complete(ctx, fmt.Sprintf(refineTitlePrompt, targetLang, title))
	if result == "" {
		return title, cost
	}
	return strings.ReplaceAll(result, `"`, ""), cost
}

// RewriteCaption produces the caption body. A response containing exactly
// one separator becomes lead and hook joined by a blank line; anything else
// is used as a single block. Failure falls back to the original body.
func (s *Stages) RewriteCaption(ctx context.Context, title, body, targetLang string) (string, Cost) {
	result, cost := s.llm.Complete(ctx, fmt.Sprintf(rewriteCaptionPrompt, targetLang, title, body))
	if result == "" {
		s.logger.Warn("caption rewrite unavailable, keeping original body", "title", title)
		return body, cost
	}

	parts := strings.Split(result, CaptionSeparator)
	if len(parts) == 2 {
		return cleanSegment(parts[0]) + "\n\n" + cleanSegment(parts[1]), cost
	}
	return cleanSegment(result), cost
}

// Categorize assigns a single broad category, defaulting to General.
func (s *Stages) Categorize(ctx context.Context, title, caption string) (string, Cost) {
	result, cost := s.llm.Complete(ctx, fmt.Sprintf(categorizePrompt, title, caption))
	if result == "" {
		return "General", cost
	}
	if line, _, found := strings.Cut(result, "\n"); found {
		result = line
	}
	return strings.TrimSpace(result), cost
}

// Hashtags suggests three specific hashtags for the post. Failure returns
// an empty string; the caption builder simply omits them.
func (s *Stages) Hashtags(ctx context.Context, title, category string) (string, Cost) {
	result, cost := s.llm.Complete(ctx, fmt.Sprintf(hashtagsPrompt, category, title))
	return result, cost
}

// cleanSegment trims a caption segment and strips a leading list marker
// from each of its lines.
func cleanSegment(segment string) string {
	lines := strings.Split(strings.TrimSpace(segment), "\n")
	for i, line := range lines {
		lines[i] = listMarkerRe.ReplaceAllString(line, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// truncateRunes limits a string to n runes, multibyte-safe.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
