// Package openai wraps the official openai-go SDK behind the small set of
// request/response types this tool needs: chat completions with several
// candidates, and embeddings.
package openai

import (
	"context"
	"errors"
	"sort"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client defines the OpenAI API operations used by pdfqa.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	CreateEmbeddings(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
}

// ChatRequest asks for N completions of a single user prompt.
type ChatRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int64
	N           int64
	Temperature *float64
}

// ChatResponse holds the text of every returned choice, in index order.
type ChatResponse struct {
	ID      string
	Model   string
	Choices []string
	Usage   TokenUsage
}

// EmbeddingRequest embeds each input string.
type EmbeddingRequest struct {
	Model string
	Input []string
}

// EmbeddingResponse holds one vector per input, in input order.
type EmbeddingResponse struct {
	Model   string
	Vectors [][]float64
	Usage   TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// StatusCode returns the HTTP status carried by an SDK error, or 0.
func StatusCode(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a client for baseURL (empty means DefaultBaseURL). SDK
// retries are disabled; callers own the retry policy.
func NewClient(apiKey, baseURL string, opts ...option.RequestOption) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	return &sdkClient{client: sdk.NewClient(append(base, opts...)...)}
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(req.MaxTokens)
	}
	if req.N > 1 {
		params.N = sdk.Int(req.N)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}

	choices := make([]sdk.ChatCompletionChoice, len(completion.Choices))
	copy(choices, completion.Choices)
	sort.SliceStable(choices, func(i, j int) bool { return choices[i].Index < choices[j].Index })

	out := &ChatResponse{
		ID:      completion.ID,
		Model:   completion.Model,
		Choices: make([]string, 0, len(choices)),
		Usage: TokenUsage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
	}
	for _, ch := range choices {
		out.Choices = append(out.Choices, ch.Message.Content)
	}

	zap.L().Debug("openai chat usage",
		zap.String("model", out.Model),
		zap.Int("choices", len(out.Choices)),
		zap.Int64("input_tokens", out.Usage.InputTokens),
		zap.Int64("output_tokens", out.Usage.OutputTokens),
	)
	return out, nil
}

func (c *sdkClient) CreateEmbeddings(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	if len(req.Input) == 0 {
		return &EmbeddingResponse{Model: req.Model}, nil
	}

	resp, err := c.client.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Input},
		Model: sdk.EmbeddingModel(req.Model),
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create embeddings")
	}

	vectors := make([][]float64, len(req.Input))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, eris.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, eris.Errorf("openai: no embedding returned for input %d", i)
		}
	}

	return &EmbeddingResponse{
		Model:   resp.Model,
		Vectors: vectors,
		Usage:   TokenUsage{InputTokens: resp.Usage.PromptTokens},
	}, nil
}
