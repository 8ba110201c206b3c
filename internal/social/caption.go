package social

import (
	"fmt"
	"strings"
)

// Fallback caption fields, in the publishing language.
const (
	fallbackBody   = "Sem conteúdo adicional."
	fallbackSource = "Fonte não informada"
	fallbackTag    = "noticias"
)

// BuildCaption assembles the post caption: follow call-to-action, rewritten
// body, source attribution, then the category tag and suggested hashtags.
func BuildCaption(handle, body, source, category, hashtags string) string {
	if strings.TrimSpace(body) == "" {
		body = fallbackBody
	}
	if strings.TrimSpace(source) == "" {
		source = fallbackSource
	}

	tag := strings.ReplaceAll(strings.TrimSpace(category), " ", "")
	if tag == "" {
		tag = fallbackTag
	}

	caption := fmt.Sprintf("siga: @%s | %s\n\nFonte: %s\n\n#%s", handle, body, source, tag)
	if hashtags = strings.TrimSpace(hashtags); hashtags != "" {
		caption += " " + hashtags
	}
	return caption
}
