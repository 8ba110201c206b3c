package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SemanticHash fingerprints a canonical event summary. The input is
// lowercased and whitespace-collapsed before hashing so cosmetic variation
// in the summary does not defeat deduplication.
func SemanticHash(canonical string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(canonical), " "))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
