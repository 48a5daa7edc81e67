package completion

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/pdfqa/pkg/anthropic"
)

// Anthropic completes prompts with the Messages API. The API returns one
// message per request, so Candidates above 1 is ignored.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an adapter. defaultModel is used when a Request leaves
// Model empty.
func NewAnthropic(client anthropic.Client, defaultModel string) *Anthropic {
	return &Anthropic{client: client, model: defaultModel}
}

// Provider returns the provider name used in errors and cost attribution.
func (a *Anthropic) Provider() string { return ProviderAnthropic }

// Complete sends one message request and returns its text as the only
// candidate.
func (a *Anthropic) Complete(ctx context.Context, req Request) (*Result, error) {
	m := req.Model
	if m == "" {
		m = a.model
	}
	if req.Candidates > 1 {
		zap.L().Debug("anthropic: candidates > 1 not supported, returning one",
			zap.Int("candidates", req.Candidates))
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       m,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, remoteError(ProviderAnthropic, anthropic.StatusCode(err), err)
	}

	texts := resp.Texts()
	if len(texts) == 0 {
		return nil, noCandidates(ProviderAnthropic)
	}

	model := resp.Model
	if model == "" {
		model = m
	}
	return &Result{
		Candidates:   []string{strings.Join(texts, "")},
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
