// Package completion adapts the provider SDK wrappers to a single
// candidate-returning completion call.
package completion

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/internal/resilience"
)

// Provider names accepted by completion.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request is one completion call.
type Request struct {
	Prompt      string
	System      string
	Model       string
	MaxTokens   int64
	Candidates  int
	Temperature *float64
}

// Result holds the returned candidates in provider order plus token usage.
type Result struct {
	Candidates   []string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// First returns the first candidate, or "" when there is none.
func (r *Result) First() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0]
}

// remoteError wraps a provider failure. Retryable statuses are marked
// transient so the retry loop and breaker can classify them.
func remoteError(provider string, status int, err error) error {
	return &model.RemoteServiceError{
		Provider:   provider,
		StatusCode: status,
		Err:        resilience.MarkStatus(err, status),
	}
}

func noCandidates(provider string) error {
	return &model.RemoteServiceError{
		Provider: provider,
		Err:      eris.New("response contained no candidates"),
	}
}
