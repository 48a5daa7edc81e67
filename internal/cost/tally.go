package cost

import (
	"sync"

	"go.uber.org/zap"
)

// Usage is the token count of one or more calls.
type Usage struct {
	Calls        int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// Tally accumulates usage from concurrent calls.
type Tally struct {
	calc *Calculator

	mu    sync.Mutex
	total Usage
}

// NewTally creates an empty Tally priced with calc. A nil calc prices
// everything at 0.
func NewTally(calc *Calculator) *Tally {
	if calc == nil {
		calc = NewCalculator(Rates{})
	}
	return &Tally{calc: calc}
}

// Add records one call.
func (t *Tally) Add(provider, model string, input, output int64) {
	if t == nil {
		return
	}
	c := t.calc.Completion(provider, model, input, output)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Calls++
	t.total.InputTokens += input
	t.total.OutputTokens += output
	t.total.CostUSD += c
}

// Snapshot returns the usage recorded so far.
func (t *Tally) Snapshot() Usage {
	if t == nil {
		return Usage{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Since returns the usage added after the earlier snapshot prev.
func (u Usage) Since(prev Usage) Usage {
	return Usage{
		Calls:        u.Calls - prev.Calls,
		InputTokens:  u.InputTokens - prev.InputTokens,
		OutputTokens: u.OutputTokens - prev.OutputTokens,
		CostUSD:      u.CostUSD - prev.CostUSD,
	}
}

// Fields renders u as structured log fields.
func (u Usage) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("remote_calls", u.Calls),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.CostUSD),
	}
}
