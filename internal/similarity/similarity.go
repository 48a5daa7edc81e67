// Package similarity scores how close two texts are, in [0, 1] for the
// backends here. Scorers are built once and shared by every round.
package similarity

import (
	"context"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/pdfqa/internal/cost"
	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/pkg/openai"
)

// Backend names accepted by similarity.backend.
const (
	BackendLexical   = "lexical"
	BackendEmbedding = "embedding"
)

// Scorer compares two texts. Higher means more similar.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Corpus prepares the lexical backend's IDF table.
	Corpus []string

	// Client, Model and Tally configure the embedding backend.
	Client openai.Client
	Model  string
	Tally  *cost.Tally
}

// New builds the configured backend.
func New(opts Options) (Scorer, error) {
	switch opts.Backend {
	case "", BackendLexical:
		l := NewLexical()
		if err := l.Prepare(opts.Corpus); err != nil {
			return nil, err
		}
		return l, nil
	case BackendEmbedding:
		if opts.Client == nil {
			return nil, &model.ConfigError{Key: "similarity.backend", Err: eris.New("embedding backend needs an OpenAI client")}
		}
		return NewEmbedding(opts.Client, opts.Model, opts.Tally), nil
	default:
		return nil, &model.ConfigError{Key: "similarity.backend", Err: eris.Errorf("unknown backend %q", opts.Backend)}
	}
}

// cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector.
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, eris.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return floats.Dot(a, b) / (na * nb), nil
}
