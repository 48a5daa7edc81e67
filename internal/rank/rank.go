// Package rank orders a round's answers by similarity to its question.
package rank

import (
	"context"
	"errors"
	"sort"

	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/internal/similarity"
)

// DefaultLimit is the number of answers kept when no limit is given.
const DefaultLimit = 3

// Ranker scores answers with a shared similarity backend.
type Ranker struct {
	scorer  similarity.Scorer
	backend string
}

// New creates a Ranker. backend names the scorer in errors.
func New(scorer similarity.Scorer, backend string) *Ranker {
	return &Ranker{scorer: scorer, backend: backend}
}

// Rank scores every answer against question and returns the best
// min(limit, len(answers)) of them, highest first. Equal scores keep their
// input order. limit <= 0 means DefaultLimit. Any scoring failure fails the
// whole ranking with a *model.SimilarityError.
func (r *Ranker) Rank(ctx context.Context, answers []model.Answer, question string, limit int) ([]model.RankedAnswer, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(answers) == 0 {
		return []model.RankedAnswer{}, nil
	}

	ranked := make([]model.RankedAnswer, len(answers))
	for i, a := range answers {
		score, err := r.scorer.Similarity(ctx, a.Text, question)
		if err != nil {
			return nil, r.wrap(err)
		}
		ranked[i] = model.RankedAnswer{Answer: a, Score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (r *Ranker) wrap(err error) error {
	var se *model.SimilarityError
	if errors.As(err, &se) {
		return err
	}
	return &model.SimilarityError{Backend: r.backend, Err: err}
}
