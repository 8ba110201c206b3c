package enrichment

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testStages(responses map[string]string, fallback string) (*Stages, *ScriptedCompleter) {
	completer := &ScriptedCompleter{
		Responses: responses,
		Default:   fallback,
		CallCost:  Cost{USD: 0.001, PromptTokens: 100, CompletionTokens: 20},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStages(completer, logger), completer
}

func TestFilterRelevance(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantVerdict string
		wantReason  string
	}{
		{"approved", "APPROVED", VerdictApproved, ""},
		{"lowercase verdict is out of set", "approved", VerdictRejected, "approved"},
		{"suffixed approval is out of set", "APPROVED BUT IT READS LIKE AN ADVERTORIAL", VerdictRejected, "APPROVED BUT IT READS LIKE AN ADVERTORIAL"},
		{"rejected with reason", "REJECTED - advertorial content", VerdictRejected, "REJECTED - advertorial content"},
		{"unexpected verdict kept as reason", "REPROVADA", VerdictRejected, "REPROVADA"},
		{"model failure", "", VerdictRejected, VerdictRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, _ := testStages(nil, tt.response)
			verdict, reason, _ := stages.FilterRelevance(context.Background(), "title", "body")
			if verdict != tt.wantVerdict {
				t.Errorf("verdict = %q, want %q", verdict, tt.wantVerdict)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestRewriteCaption(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			"lead and hook",
			"The facts of the story. ||| What do you think?",
			"The facts of the story.\n\nWhat do you think?",
		},
		{
			"list markers stripped",
			"1. The facts. ||| - Share your view.",
			"The facts.\n\nShare your view.",
		},
		{
			"no separator kept whole",
			"Just one block of caption text.",
			"Just one block of caption text.",
		},
		{
			"two separators kept whole",
			"a ||| b ||| c",
			"a ||| b ||| c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, _ := testStages(nil, tt.response)
			got, _ := stages.RewriteCaption(context.Background(), "title", "body", "pt")
			if got != tt.want {
				t.Errorf("RewriteCaption = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteCaptionFailureKeepsBody(t *testing.T) {
	stages, _ := testStages(nil, "")
	got, _ := stages.RewriteCaption(context.Background(), "title", "original body", "pt")
	if got != "original body" {
		t.Errorf("expected original body on failure, got %q", got)
	}
}

func TestRefineTitle(t *testing.T) {
	stages, _ := testStages(nil, `"Quoted" headline`)
	got, _ := stages.RefineTitle(context.Background(), "original", "pt")
	if got != "Quoted headline" {
		t.Errorf("quotes not stripped: %q", got)
	}

	stages, _ = testStages(nil, "")
	got, _ = stages.RefineTitle(context.Background(), "original", "pt")
	if got != "original" {
		t.Errorf("expected original title on failure, got %q", got)
	}
}

func TestTranslate(t *testing.T) {
	stages, completer := testStages(nil, "texto traduzido")
	got, _ := stages.Translate(context.Background(), "source text", "pt")
	if got != "texto traduzido" {
		t.Errorf("Translate = %q", got)
	}
	if completer.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", completer.Calls())
	}

	// Blank input never reaches the model.
	got, cost := stages.Translate(context.Background(), "   ", "pt")
	if got != "   " || cost.USD != 0 {
		t.Errorf("blank input should pass through untouched")
	}
	if completer.Calls() != 1 {
		t.Errorf("blank input should not call the model")
	}

	// Failure keeps the original.
	stages, _ = testStages(nil, "")
	got, _ = stages.Translate(context.Background(), "source text", "pt")
	if got != "source text" {
		t.Errorf("expected original text on failure, got %q", got)
	}
}

func TestCategorize(t *testing.T) {
	stages, _ := testStages(nil, "Economy\nbecause of markets")
	got, _ := stages.Categorize(context.Background(), "title", "caption")
	if got != "Economy" {
		t.Errorf("Categorize = %q, want Economy", got)
	}

	stages, _ = testStages(nil, "")
	got, _ = stages.Categorize(context.Background(), "title", "caption")
	if got != "General" {
		t.Errorf("expected General fallback, got %q", got)
	}
}

func TestCanonicalTitleFallsBackToOriginal(t *testing.T) {
	stages, _ := testStages(nil, "")
	got, _ := stages.CanonicalTitle(context.Background(), "the original title", "content")
	if got != "the original title" {
		t.Errorf("expected original title on failure, got %q", got)
	}
}

func TestCanonicalTitleTruncatesExcerpt(t *testing.T) {
	stages, completer := testStages(nil, "canonical sentence")
	long := strings.Repeat("é", 500)
	stages.CanonicalTitle(context.Background(), "title", long)

	prompt := completer.Prompts[0]
	if strings.Contains(prompt, strings.Repeat("é", 301)) {
		t.Error("excerpt not truncated to 300 runes")
	}
	if !strings.Contains(prompt, strings.Repeat("é", 300)) {
		t.Error("truncated excerpt missing from prompt")
	}
}

func TestHashtagsFailureIsEmpty(t *testing.T) {
	stages, _ := testStages(nil, "")
	got, _ := stages.Hashtags(context.Background(), "title", "Economy")
	if got != "" {
		t.Errorf("expected empty hashtags, got %q", got)
	}
}
