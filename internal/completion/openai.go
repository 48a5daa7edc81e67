package completion

import (
	"context"

	"github.com/sells-group/pdfqa/pkg/openai"
)

// OpenAI completes prompts with the chat completions API. Candidates maps to
// the request's n parameter.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an adapter. defaultModel is used when a Request leaves
// Model empty.
func NewOpenAI(client openai.Client, defaultModel string) *OpenAI {
	return &OpenAI{client: client, model: defaultModel}
}

// Provider returns the provider name used in errors and cost attribution.
func (o *OpenAI) Provider() string { return ProviderOpenAI }

// Complete sends one chat completion request.
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Result, error) {
	m := req.Model
	if m == "" {
		m = o.model
	}
	n := int64(req.Candidates)
	if n < 1 {
		n = 1
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:       m,
		System:      req.System,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		N:           n,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, remoteError(ProviderOpenAI, openai.StatusCode(err), err)
	}
	if len(resp.Choices) == 0 {
		return nil, noCandidates(ProviderOpenAI)
	}

	model := resp.Model
	if model == "" {
		model = m
	}
	return &Result{
		Candidates:   resp.Choices,
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
