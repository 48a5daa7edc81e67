package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/pdfqa/internal/answer"
	"github.com/sells-group/pdfqa/internal/batch"
	"github.com/sells-group/pdfqa/internal/cache"
	"github.com/sells-group/pdfqa/internal/completion"
	"github.com/sells-group/pdfqa/internal/config"
	"github.com/sells-group/pdfqa/internal/cost"
	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/internal/pdftext"
	"github.com/sells-group/pdfqa/internal/pipeline"
	"github.com/sells-group/pdfqa/internal/rank"
	"github.com/sells-group/pdfqa/internal/resilience"
	"github.com/sells-group/pdfqa/internal/similarity"
	anthropicpkg "github.com/sells-group/pdfqa/pkg/anthropic"
	openaipkg "github.com/sells-group/pdfqa/pkg/openai"
)

// pipelineEnv holds the extracted document and the driver built over it.
type pipelineEnv struct {
	Pages  []model.Page
	Driver *pipeline.Driver
	Cache  *cache.AnswerCache
	Tally  *cost.Tally
}

// Close logs session totals.
func (pe *pipelineEnv) Close() {
	stats := pe.Cache.Stats()
	fields := append([]zap.Field{
		zap.Int("rounds", pe.Driver.Rounds()),
		zap.Int64("cache_hits", stats.Hits),
		zap.Int64("cache_misses", stats.Misses),
		zap.Int("cache_entries", stats.Entries),
	}, pe.Tally.Snapshot().Fields()...)
	zap.L().Info("session complete", fields...)
}

// initPipeline resolves credentials, extracts the document and wires every
// component. Credential and extraction failures are returned as-is so the
// caller exits with their message.
func initPipeline(ctx context.Context, pdfPath string) (*pipelineEnv, error) {
	apiKey, err := config.ResolveAPIKey(cfg, cfg.Completion.Provider)
	if err != nil {
		return nil, err
	}

	extractor, err := pdftext.NewExtractor(cfg.PDF, config.ResolveMistralKey(cfg))
	if err != nil {
		return nil, err
	}
	pages, err := extractor.ExtractPages(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	var openaiClient openaipkg.Client
	var completer answer.Completer
	switch cfg.Completion.Provider {
	case completion.ProviderAnthropic:
		completer = completion.NewAnthropic(anthropicpkg.NewClient(apiKey), cfg.CompletionModel())
	default:
		openaiClient = openaipkg.NewClient(apiKey, cfg.OpenAI.BaseURL)
		completer = completion.NewOpenAI(openaiClient, cfg.CompletionModel())
	}

	tally := cost.NewTally(cost.NewCalculator(pricingRates(cfg.Pricing)))
	answers := cache.New(cfg.Cache.MaxEntries)

	svc := answer.NewService(completer, answers, answer.Options{
		Provider:    cfg.Completion.Provider,
		Model:       cfg.CompletionModel(),
		MaxTokens:   int64(cfg.Completion.MaxTokens),
		Candidates:  cfg.Completion.Candidates,
		Temperature: cfg.Completion.Temperature,
		Timeout:     time.Duration(cfg.Completion.TimeoutSecs) * time.Second,
		Retry:       resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
		Breaker:     resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs),
		Limiter:     newLimiter(cfg.Completion),
		Tally:       tally,
	})
	coord := batch.NewCoordinator(svc, cfg.Completion.MaxConcurrency)

	if cfg.Similarity.Backend == similarity.BackendEmbedding && openaiClient == nil {
		key, err := config.ResolveAPIKey(cfg, completion.ProviderOpenAI)
		if err != nil {
			return nil, eris.Wrap(err, "embedding similarity")
		}
		openaiClient = openaipkg.NewClient(key, cfg.OpenAI.BaseURL)
	}
	scorer, err := similarity.New(similarity.Options{
		Backend: cfg.Similarity.Backend,
		Corpus:  model.Texts(pages),
		Client:  openaiClient,
		Model:   cfg.Similarity.Model,
		Tally:   tally,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("pipeline ready",
		zap.String("pdf", pdfPath),
		zap.Int("pages", len(pages)),
		zap.String("provider", cfg.Completion.Provider),
		zap.String("model", cfg.CompletionModel()),
		zap.String("similarity", cfg.Similarity.Backend),
	)

	return &pipelineEnv{
		Pages:  pages,
		Driver: pipeline.New(pages, coord, rank.New(scorer, cfg.Similarity.Backend), cfg.Rank.Limit, tally),
		Cache:  answers,
		Tally:  tally,
	}, nil
}

// newLimiter returns nil when no rate is configured.
func newLimiter(c config.CompletionConfig) *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	burst := c.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}

// pricingRates overlays configured prices on the defaults.
func pricingRates(p config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	for m, r := range p.OpenAI {
		rates.OpenAI[m] = cost.ModelRate{Input: r.Input, Output: r.Output}
	}
	for m, r := range p.Anthropic {
		rates.Anthropic[m] = cost.ModelRate{Input: r.Input, Output: r.Output}
	}
	return rates
}
