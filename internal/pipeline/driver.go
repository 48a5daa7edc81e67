// Package pipeline runs question rounds against an extracted document and
// drives the interactive console loop.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/pdfqa/internal/cost"
	"github.com/sells-group/pdfqa/internal/model"
)

// Prompt is written before every question is read.
const Prompt = "Enter your question (or 'q' to quit): "

// Batcher answers a set of queries, omitting the ones that fail.
type Batcher interface {
	Run(ctx context.Context, queries []model.Query) []model.Answer
}

// Ranker orders answers by relevance to the question.
type Ranker interface {
	Rank(ctx context.Context, answers []model.Answer, question string, limit int) ([]model.RankedAnswer, error)
}

// RoundResult is the outcome of one question.
type RoundResult struct {
	ID       string
	Question string
	Answers  []model.RankedAnswer
	// Collected is the number of answers the batch returned before ranking.
	Collected int
	Elapsed   time.Duration
	Usage     cost.Usage
}

// Driver answers questions about one document.
type Driver struct {
	pages  []model.Page
	batch  Batcher
	ranker Ranker
	limit  int
	tally  *cost.Tally

	rounds int
}

// New creates a Driver over pages. tally may be nil.
func New(pages []model.Page, batch Batcher, ranker Ranker, limit int, tally *cost.Tally) *Driver {
	return &Driver{pages: pages, batch: batch, ranker: ranker, limit: limit, tally: tally}
}

// Rounds returns how many rounds have run.
func (d *Driver) Rounds() int { return d.rounds }

// Round asks question of every page, ranks the answers that came back, and
// returns the top ones. Only a ranking failure is an error.
func (d *Driver) Round(ctx context.Context, question string) (*RoundResult, error) {
	start := time.Now()
	before := d.tally.Snapshot()
	d.rounds++

	res := &RoundResult{ID: uuid.NewString(), Question: question}
	log := zap.L().With(zap.String("round_id", res.ID))
	log.Debug("pipeline: round started",
		zap.Int("round", d.rounds),
		zap.String("question", question),
		zap.Int("pages", len(d.pages)),
	)

	answers := d.batch.Run(ctx, model.BuildQueries(d.pages, question))
	res.Collected = len(answers)

	ranked, err := d.ranker.Rank(ctx, answers, question, d.limit)
	res.Elapsed = time.Since(start)
	res.Usage = d.tally.Snapshot().Since(before)
	if err != nil {
		log.Error("pipeline: ranking failed", zap.Error(err))
		return res, eris.Wrap(err, "rank answers")
	}
	res.Answers = ranked

	fields := append([]zap.Field{
		zap.Int("answers", res.Collected),
		zap.Int("failed", len(d.pages)-res.Collected),
		zap.Duration("elapsed", res.Elapsed),
	}, res.Usage.Fields()...)
	log.Info("pipeline: round complete", fields...)
	return res, nil
}

// Run prompts for questions on out and reads them from in until the user
// enters q (any case), input ends, or ctx is cancelled. Blank lines are
// prompted again. A failed round is reported and the loop continues.
func (d *Driver) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, readErr := readLines(ctx, in)
	quit := cases.Fold().String("q")

	for {
		fmt.Fprint(out, Prompt) //nolint:errcheck

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			if err := readErr(); err != nil {
				return eris.Wrap(err, "read question")
			}
			return nil
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if cases.Fold().String(question) == quit {
			return nil
		}

		res, err := d.Round(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", err) //nolint:errcheck
			continue
		}
		for _, a := range res.Answers {
			fmt.Fprintf(out, "Answer: %s\n", a.Text) //nolint:errcheck
		}
		fmt.Fprintf(out, "Processing time: %.3f seconds\n", res.Elapsed.Seconds()) //nolint:errcheck
	}
}

// readLines scans in on a goroutine so a blocked read never holds up
// cancellation. The returned func reports the scan error once lines is
// closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, func() error) {
	lines := make(chan string)
	var scanErr error

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = sc.Err()
	}()

	return lines, func() error { return scanErr }
}
