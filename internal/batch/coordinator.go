// Package batch fans one answer call out per (page, question) pair and
// collects whatever succeeds.
package batch

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pdfqa/internal/model"
)

// Answerer answers one pair.
type Answerer interface {
	Answer(ctx context.Context, pageText, question string) (string, error)
}

// Coordinator runs answer calls concurrently.
type Coordinator struct {
	answerer       Answerer
	maxConcurrency int
}

// NewCoordinator creates a Coordinator. maxConcurrency <= 0 runs every pair
// at once.
func NewCoordinator(a Answerer, maxConcurrency int) *Coordinator {
	return &Coordinator{answerer: a, maxConcurrency: maxConcurrency}
}

// Run answers every query and returns the successful answers in the order
// they completed. A failed query is logged and left out; Run itself never
// fails and returns only after every call has finished.
func (c *Coordinator) Run(ctx context.Context, queries []model.Query) []model.Answer {
	answers := make([]model.Answer, 0, len(queries))
	if len(queries) == 0 {
		return answers
	}

	var g errgroup.Group
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}

	var mu sync.Mutex
	for _, q := range queries {
		g.Go(func() error {
			text, err := c.answerer.Answer(ctx, q.Context, q.Question)
			if err != nil {
				zap.L().Warn("batch: answer failed",
					zap.Int("page", q.Page),
					zap.String("question", q.Question),
					zap.Error(err),
				)
				return nil // Siblings keep going.
			}

			mu.Lock()
			answers = append(answers, model.Answer{Text: text, Page: q.Page})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Debug("batch: complete",
		zap.Int("queries", len(queries)),
		zap.Int("answers", len(answers)),
	)
	return answers
}
