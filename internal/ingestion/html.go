package ingestion

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripHTML flattens any markup in provider text fields to plain text.
// Providers occasionally leak tags into titles and descriptions; captions
// must never contain them.
func stripHTML(text string) string {
	if !strings.ContainsRune(text, '<') {
		return strings.TrimSpace(text)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
