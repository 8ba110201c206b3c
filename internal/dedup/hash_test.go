package dedup

import "testing"

func TestSemanticHashNormalization(t *testing.T) {
	base := SemanticHash("Central bank raises interest rates")

	tests := []struct {
		name  string
		input string
		same  bool
	}{
		{"identical", "Central bank raises interest rates", true},
		{"case difference", "central BANK raises INTEREST rates", true},
		{"whitespace collapse", "  Central   bank raises\tinterest rates ", true},
		{"different event", "Central bank cuts interest rates", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SemanticHash(tt.input)
			if (got == base) != tt.same {
				t.Errorf("SemanticHash(%q) == base: got %v, want %v", tt.input, got == base, tt.same)
			}
		})
	}
}

func TestSemanticHashEmpty(t *testing.T) {
	if got := SemanticHash("   "); got != "" {
		t.Errorf("expected empty hash for blank input, got %q", got)
	}
}
