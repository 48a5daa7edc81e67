package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {Input: 1.00, Output: 5.00},
		},
		OpenAI: map[string]ModelRate{
			"mini": {Input: 0.15, Output: 0.60},
		},
	}
}

func TestCompletion(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name     string
		provider string
		model    string
		input    int64
		output   int64
		want     float64
	}{
		{"anthropic haiku", "anthropic", "haiku", 1_000_000, 1_000_000, 6.00},
		{"openai mini", "openai", "mini", 2_000_000, 500_000, 0.60},
		{"unknown model", "openai", "nope", 1_000_000, 1_000_000, 0},
		{"unknown provider", "mistral", "haiku", 1_000_000, 1_000_000, 0},
		{"zero tokens", "anthropic", "haiku", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.Completion(tt.provider, tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestDefaultRates_CoverDefaults(t *testing.T) {
	r := DefaultRates()
	assert.Contains(t, r.OpenAI, "gpt-4o-mini")
	assert.Contains(t, r.Anthropic, "claude-haiku-4-5-20251001")
}

func TestTally_ConcurrentAdd(t *testing.T) {
	tally := NewTally(NewCalculator(testRates()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tally.Add("openai", "mini", 1000, 100)
		}()
	}
	wg.Wait()

	u := tally.Snapshot()
	assert.Equal(t, int64(50), u.Calls)
	assert.Equal(t, int64(50_000), u.InputTokens)
	assert.Equal(t, int64(5_000), u.OutputTokens)
	assert.InDelta(t, 50*(0.00015+0.00006), u.CostUSD, 1e-9)
}

func TestUsage_Since(t *testing.T) {
	tally := NewTally(nil)
	tally.Add("openai", "mini", 10, 1)
	before := tally.Snapshot()
	tally.Add("openai", "mini", 20, 2)

	delta := tally.Snapshot().Since(before)
	assert.Equal(t, int64(1), delta.Calls)
	assert.Equal(t, int64(20), delta.InputTokens)
	assert.Len(t, delta.Fields(), 4)
}

func TestTally_NilSafe(t *testing.T) {
	var tally *Tally
	tally.Add("openai", "mini", 1, 1)
	assert.Equal(t, Usage{}, tally.Snapshot())
}
