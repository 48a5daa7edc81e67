package answer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pdfqa/internal/cache"
	"github.com/sells-group/pdfqa/internal/completion"
	"github.com/sells-group/pdfqa/internal/cost"
	"github.com/sells-group/pdfqa/internal/model"
	"github.com/sells-group/pdfqa/internal/resilience"
)

type mockCompleter struct{ mock.Mock }

func (m *mockCompleter) Complete(ctx context.Context, req completion.Request) (*completion.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*completion.Result), args.Error(1)
}

// funcCompleter counts calls and delegates to fn.
type funcCompleter struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req completion.Request) (*completion.Result, error)
}

func (f *funcCompleter) Complete(ctx context.Context, req completion.Request) (*completion.Result, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func result(texts ...string) *completion.Result {
	return &completion.Result{Candidates: texts, Model: "gpt-4o-mini", InputTokens: 20, OutputTokens: 3}
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, "Context: Paris is the capital of France.\nQuestion: What is the capital of France?\nAnswer:",
		Prompt("Paris is the capital of France.", "What is the capital of France?"))
}

func TestAnswer_MissCallsOnceThenCaches(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.MatchedBy(func(r completion.Request) bool {
		return r.Prompt == Prompt("ctx", "q") && r.MaxTokens == 100 && r.Candidates == 1 &&
			r.Temperature != nil && *r.Temperature == 0.7
	})).Return(result("  Paris \n"), nil).Once()

	ac := cache.New(0)
	svc := NewService(mc, ac, Options{Provider: "openai", Temperature: 0.7})

	got, err := svc.Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got)

	cached, ok := ac.Get("ctx", "q")
	require.True(t, ok)
	assert.Equal(t, "Paris", cached)

	got, err = svc.Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got)
	mc.AssertNumberOfCalls(t, "Complete", 1)
}

func TestAnswer_CountsOneMissPerColdLookup(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return(result("Paris"), nil).Once()

	ac := cache.New(0)
	svc := NewService(mc, ac, Options{Provider: "openai"})

	_, err := svc.Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	st := ac.Stats()
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(0), st.Hits)

	_, err = svc.Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	st = ac.Stats()
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Hits)
}

func TestAnswer_CacheHitSkipsRemote(t *testing.T) {
	mc := new(mockCompleter)
	ac := cache.New(0)
	ac.Set("ctx", "q", "cached")

	got, err := NewService(mc, ac, Options{}).Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
	mc.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswer_FirstCandidateOnly(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return(result("first", "second"), nil)

	got, err := NewService(mc, nil, Options{Candidates: 2}).Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestAnswer_FailureLeavesCacheEmpty(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &model.RemoteServiceError{Provider: "openai", StatusCode: 401, Err: errors.New("bad key")})

	ac := cache.New(0)
	_, err := NewService(mc, ac, Options{Provider: "openai"}).Answer(context.Background(), "ctx", "q")
	require.Error(t, err)

	var rse *model.RemoteServiceError
	require.True(t, errors.As(err, &rse))
	assert.Equal(t, 401, rse.StatusCode)
	assert.Equal(t, 0, ac.Len())
}

func TestAnswer_EmptyCandidateIsFailure(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return(result("   "), nil)

	ac := cache.New(0)
	_, err := NewService(mc, ac, Options{Provider: "openai"}).Answer(context.Background(), "ctx", "q")

	var rse *model.RemoteServiceError
	require.True(t, errors.As(err, &rse))
	assert.Contains(t, err.Error(), "empty answer")
	assert.Equal(t, 0, ac.Len())
}

func TestAnswer_TimeoutIsRemoteServiceError(t *testing.T) {
	fc := &funcCompleter{fn: func(ctx context.Context, _ completion.Request) (*completion.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	start := time.Now()
	_, err := NewService(fc, nil, Options{Provider: "openai", Timeout: 20 * time.Millisecond}).
		Answer(context.Background(), "ctx", "q")

	var rse *model.RemoteServiceError
	require.True(t, errors.As(err, &rse))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAnswer_ConcurrentSameKeySharesOneCall(t *testing.T) {
	release := make(chan struct{})
	fc := &funcCompleter{fn: func(_ context.Context, _ completion.Request) (*completion.Result, error) {
		<-release
		return result("shared"), nil
	}}
	svc := NewService(fc, nil, Options{})

	const n = 20
	var wg sync.WaitGroup
	answers := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := svc.Answer(context.Background(), "same page", "q")
			assert.NoError(t, err)
			answers[i] = a
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fc.calls.Load())
	for _, a := range answers {
		assert.Equal(t, "shared", a)
	}
}

func TestAnswer_RetriesTransient(t *testing.T) {
	fc := &funcCompleter{}
	fc.fn = func(_ context.Context, _ completion.Request) (*completion.Result, error) {
		if fc.calls.Load() == 1 {
			return nil, &model.RemoteServiceError{
				Provider: "openai", StatusCode: 503,
				Err: resilience.MarkStatus(errors.New("unavailable"), 503),
			}
		}
		return result("ok"), nil
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	retry.InitialBackoff = time.Millisecond
	retry.MaxBackoff = time.Millisecond

	got, err := NewService(fc, nil, Options{Retry: retry}).Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), fc.calls.Load())
}

func TestAnswer_OpenCircuitFailsFast(t *testing.T) {
	fc := &funcCompleter{fn: func(_ context.Context, _ completion.Request) (*completion.Result, error) {
		return nil, &model.RemoteServiceError{Provider: "openai", Err: errors.New("down")}
	}}
	breaker := resilience.FromCircuitConfig(1, 60)
	svc := NewService(fc, nil, Options{Provider: "openai", Breaker: breaker})

	_, err := svc.Answer(context.Background(), "a", "q")
	require.Error(t, err)

	_, err = svc.Answer(context.Background(), "b", "q")
	var rse *model.RemoteServiceError
	require.True(t, errors.As(err, &rse))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestAnswer_RecordsUsage(t *testing.T) {
	mc := new(mockCompleter)
	mc.On("Complete", mock.Anything, mock.Anything).Return(result("x"), nil)

	tally := cost.NewTally(cost.NewCalculator(cost.DefaultRates()))
	_, err := NewService(mc, nil, Options{Provider: "openai", Tally: tally}).Answer(context.Background(), "ctx", "q")
	require.NoError(t, err)

	u := tally.Snapshot()
	assert.Equal(t, int64(1), u.Calls)
	assert.Equal(t, int64(20), u.InputTokens)
	assert.Equal(t, int64(3), u.OutputTokens)
	assert.Greater(t, u.CostUSD, 0.0)
}
