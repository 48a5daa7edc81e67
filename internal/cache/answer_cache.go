// Package cache holds answers already obtained for (context, question) pairs
// so repeated lookups never reach the completion API.
package cache

import (
	"container/list"
	"crypto/sha256"
	"sync"

	"github.com/sells-group/pdfqa/internal/model"
)

type digest = [sha256.Size]byte

type entry struct {
	key    digest
	answer string
}

// Stats counts cache traffic since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// AnswerCache maps (context, question) to an answer. It is safe for
// concurrent use; a Get observes either no value or a complete one.
//
// Keys are SHA-256 digests of the pair, so page text is not retained twice.
// With maxEntries > 0 the least recently used entry is evicted on overflow.
type AnswerCache struct {
	mu         sync.Mutex
	maxEntries int
	items      map[digest]*list.Element
	order      *list.List // front = most recently used

	hits, misses, evictions int64
}

// New returns an empty cache. maxEntries <= 0 means unbounded.
func New(maxEntries int) *AnswerCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &AnswerCache{
		maxEntries: maxEntries,
		items:      make(map[digest]*list.Element),
		order:      list.New(),
	}
}

// Get returns the stored answer for the pair, if any.
func (c *AnswerCache) Get(context, question string) (string, bool) {
	k := model.QueryKey{Context: context, Question: question}.Digest()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[k]
	if !ok {
		c.misses++
		return "", false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).answer, true
}

// Peek is Get without touching the hit/miss counters or recency. It serves
// re-checks of a lookup that was already counted.
func (c *AnswerCache) Peek(context, question string) (string, bool) {
	k := model.QueryKey{Context: context, Question: question}.Digest()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[k]
	if !ok {
		return "", false
	}
	return el.Value.(*entry).answer, true
}

// Set stores answer for the pair, replacing any previous value.
func (c *AnswerCache) Set(context, question, answer string) {
	k := model.QueryKey{Context: context, Question: question}.Digest()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		el.Value.(*entry).answer = answer
		c.order.MoveToFront(el)
		return
	}

	c.items[k] = c.order.PushFront(&entry{key: k, answer: answer})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
		c.evictions++
	}
}

// Len returns the number of stored answers.
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *AnswerCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.items),
	}
}
