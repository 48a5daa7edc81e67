package similarity

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pdfqa/internal/cost"
	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/pkg/openai"
)

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

// Embedding scores texts by cosine similarity of their embedding vectors.
// Vectors are memoized per text for the life of the scorer.
type Embedding struct {
	client openai.Client
	model  string
	tally  *cost.Tally

	mu      sync.Mutex
	vectors map[string][]float64
}

// NewEmbedding creates an embedding scorer. tally may be nil.
func NewEmbedding(client openai.Client, embeddingModel string, tally *cost.Tally) *Embedding {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	return &Embedding{
		client:  client,
		model:   embeddingModel,
		tally:   tally,
		vectors: make(map[string][]float64),
	}
}

// Similarity embeds whichever of a and b are not memoized yet, in one request.
func (e *Embedding) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := e.embed(ctx, a, b)
	if err != nil {
		return 0, &model.SimilarityError{Backend: BackendEmbedding, Err: err}
	}
	s, err := cosine(vecs[0], vecs[1])
	if err != nil {
		return 0, &model.SimilarityError{Backend: BackendEmbedding, Err: err}
	}
	return s, nil
}

func (e *Embedding) embed(ctx context.Context, texts ...string) ([][]float64, error) {
	e.mu.Lock()
	var missing []string
	seen := make(map[string]struct{})
	for _, t := range texts {
		if _, ok := e.vectors[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		missing = append(missing, t)
	}
	e.mu.Unlock()

	if len(missing) > 0 {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{Model: e.model, Input: missing})
		if err != nil {
			return nil, err
		}
		if len(resp.Vectors) != len(missing) {
			return nil, eris.Errorf("expected %d vectors, got %d", len(missing), len(resp.Vectors))
		}
		e.tally.Add("openai", e.model, resp.Usage.InputTokens, 0)
		zap.L().Debug("similarity: embedded texts",
			zap.Int("texts", len(missing)),
			zap.Int64("input_tokens", resp.Usage.InputTokens),
		)

		e.mu.Lock()
		for i, t := range missing {
			e.vectors[t] = resp.Vectors[i]
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = e.vectors[t]
	}
	return out, nil
}
