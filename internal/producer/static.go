package producer

import (
	"context"
	"fmt"
	"sync"
)

// Static replays a fixed sequence of diffs, one per Generate call. It backs
// `loom apply` on pre-written diff files and the retry tests: each retry
// consumes the next scripted response.
type Static struct {
	mu        sync.Mutex
	responses []string
	next      int

	// Prompts records every prompt received, so tests can assert that
	// rejection feedback made it into the retry prompt.
	Prompts []string
}

// NewStatic returns a producer that replays the given responses in order.
func NewStatic(responses ...string) *Static {
	return &Static{responses: responses}
}

// Generate returns the next scripted response. Running past the script is an
// error so a runaway retry loop fails loudly.
func (s *Static) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if s.next >= len(s.responses) {
		return "", fmt.Errorf("static producer exhausted after %d response(s)", len(s.responses))
	}
	out := s.responses[s.next]
	s.next++
	return out, nil
}

// Calls reports how many times Generate ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
