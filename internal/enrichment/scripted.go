package enrichment

import (
	"context"
	"strings"
	"sync"
)

// ScriptedCompleter is a Completer for tests. Responses are matched by a
// substring of the prompt; unmatched prompts return the Default response.
// Every reply carries CallCost so tests can assert cost accumulation.
type ScriptedCompleter struct {
	mu        sync.Mutex
	Responses map[string]string
	Default   string
	CallCost  Cost
	Prompts   []string
}

var _ Completer = (*ScriptedCompleter)(nil)

// Complete records the prompt and returns the first scripted response whose
// key is a substring of it.
func (s *ScriptedCompleter) Complete(ctx context.Context, prompt string) (string, Cost) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Prompts = append(s.Prompts, prompt)

	for key, response := range s.Responses {
		if strings.Contains(prompt, key) {
			return response, s.CallCost
		}
	}
	return s.Default, s.CallCost
}

// Calls returns how many prompts the completer has seen.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}
