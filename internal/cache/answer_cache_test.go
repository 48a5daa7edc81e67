package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Unset(t *testing.T) {
	c := New(0)
	v, ok := c.Get("ctx", "q")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSetThenGet(t *testing.T) {
	c := New(0)
	triples := [][3]string{
		{"Paris is the capital of France.", "What is the capital?", "Paris"},
		{"Cats are mammals.", "What is the capital?", "Not stated."},
		{"", "", ""},
		{"ab", "c", "first"},
		{"a", "bc", "second"},
	}
	for _, tr := range triples {
		c.Set(tr[0], tr[1], tr[2])
	}
	for _, tr := range triples {
		v, ok := c.Get(tr[0], tr[1])
		require.True(t, ok, "missing %q/%q", tr[0], tr[1])
		assert.Equal(t, tr[2], v)
	}
	assert.Equal(t, len(triples), c.Len())
}

func TestSet_Overwrites(t *testing.T) {
	c := New(0)
	c.Set("ctx", "q", "old")
	c.Set("ctx", "q", "new")
	v, ok := c.Get("ctx", "q")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, c.Len())
}

func TestBounded_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Set("a", "q", "A")
	c.Set("b", "q", "B")
	_, _ = c.Get("a", "q") // a is now most recent
	c.Set("c", "q", "C")

	_, ok := c.Get("b", "q")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a", "q")
	assert.True(t, ok)
	_, ok = c.Get("c", "q")
	assert.True(t, ok)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, 2, st.Entries)
}

func TestUnbounded_NeverEvicts(t *testing.T) {
	c := New(-1)
	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("page %d", i), "q", "a")
	}
	assert.Equal(t, 1000, c.Len())
	assert.Zero(t, c.Stats().Evictions)
}

func TestStats_HitsAndMisses(t *testing.T) {
	c := New(0)
	c.Set("ctx", "q", "a")
	_, _ = c.Get("ctx", "q")
	_, _ = c.Get("ctx", "q")
	_, _ = c.Get("other", "q")

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(0)
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ctx := fmt.Sprintf("page-%d", i%20)
				want := "answer-" + ctx
				c.Set(ctx, "q", want)
				if v, ok := c.Get(ctx, "q"); ok {
					assert.Equal(t, want, v)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}

func TestPeek_DoesNotCount(t *testing.T) {
	c := New(0)
	_, ok := c.Peek("ctx", "q")
	assert.False(t, ok)

	c.Set("ctx", "q", "Paris")
	v, ok := c.Peek("ctx", "q")
	require.True(t, ok)
	assert.Equal(t, "Paris", v)

	st := c.Stats()
	assert.Zero(t, st.Hits)
	assert.Zero(t, st.Misses)
}
