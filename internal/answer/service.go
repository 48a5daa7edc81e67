// Package answer turns one (page text, question) pair into one answer,
// consulting the shared cache before calling the completion provider.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/pdfqa/internal/cache"
	"github.com/sells-group/pdfqa/internal/completion"
	"github.com/sells-group/pdfqa/internal/cost"
	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/internal/resilience"
)

// Completer sends one completion request.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// Options tunes a Service. Zero values give a single untimed attempt with no
// rate limit or breaker.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int64
	Candidates  int
	Temperature float64

	Timeout time.Duration
	Retry   resilience.RetryConfig
	Breaker *resilience.CircuitBreaker
	Limiter *rate.Limiter
	Tally   *cost.Tally
}

// Service answers questions against page text.
type Service struct {
	completer Completer
	cache     *cache.AnswerCache
	opts      Options
	inflight  singleflight.Group
}

// NewService creates a Service. cache must be shared by every caller in a run.
func NewService(c Completer, ac *cache.AnswerCache, opts Options) *Service {
	if ac == nil {
		ac = cache.New(0)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 100
	}
	if opts.Candidates <= 0 {
		opts.Candidates = 1
	}
	return &Service{completer: c, cache: ac, opts: opts}
}

// Prompt builds the completion prompt for one pair.
func Prompt(pageText, question string) string {
	return fmt.Sprintf("Context: %s\nQuestion: %s\nAnswer:", pageText, question)
}

// Answer returns the cached answer for the pair or makes exactly one remote
// call for it. Concurrent callers with the same pair share one call. Failures
// are *model.RemoteServiceError and leave the cache untouched.
func (s *Service) Answer(ctx context.Context, pageText, question string) (string, error) {
	if ans, ok := s.cache.Get(pageText, question); ok {
		return ans, nil
	}

	key := model.QueryKey{Context: pageText, Question: question}.Digest()
	v, err, shared := s.inflight.Do(string(key[:]), func() (any, error) {
		if ans, ok := s.cache.Peek(pageText, question); ok {
			return ans, nil
		}
		ans, err := s.remote(ctx, pageText, question)
		if err != nil {
			return "", err
		}
		s.cache.Set(pageText, question, ans)
		return ans, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		zap.L().Debug("answer: shared in-flight call")
	}
	return v.(string), nil
}

func (s *Service) remote(ctx context.Context, pageText, question string) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	temp := s.opts.Temperature
	req := completion.Request{
		Prompt:      Prompt(pageText, question),
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Candidates:  s.opts.Candidates,
		Temperature: &temp,
	}

	retry := s.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(s.opts.Provider)
	}

	res, err := resilience.ExecuteVal(ctx, s.opts.Breaker, func(ctx context.Context) (*completion.Result, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (*completion.Result, error) {
			if s.opts.Limiter != nil {
				if err := s.opts.Limiter.Wait(ctx); err != nil {
					return nil, eris.Wrap(err, "rate limiter")
				}
			}
			return s.completer.Complete(ctx, req)
		})
	})
	if err != nil {
		return "", s.asRemote(err)
	}

	s.opts.Tally.Add(s.opts.Provider, res.Model, res.InputTokens, res.OutputTokens)

	ans := strings.TrimSpace(res.First())
	if ans == "" {
		return "", &model.RemoteServiceError{
			Provider: s.opts.Provider,
			Err:      eris.New("empty answer"),
		}
	}
	return ans, nil
}

func (s *Service) asRemote(err error) error {
	var rse *model.RemoteServiceError
	if errors.As(err, &rse) {
		return err
	}
	return &model.RemoteServiceError{Provider: s.opts.Provider, Err: err}
}
