package model

import (
	"crypto/sha256"
	"encoding/binary"
)

// QueryKey identifies one (context, question) lookup. Equal content yields an
// equal key regardless of which page the context came from.
type QueryKey struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

// Digest returns a fixed-size content hash of the key. The context length is
// written first so ("ab", "c") and ("a", "bc") never collide.
func (k QueryKey) Digest() [sha256.Size]byte {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(k.Context)))
	h.Write(n[:])
	h.Write([]byte(k.Context))
	h.Write([]byte(k.Question))

	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Query is one unit of work in a batch: a page paired with the round's question.
type Query struct {
	Page     int    `json:"page"`
	Context  string `json:"context"`
	Question string `json:"question"`
}

// Key returns the cache key for q.
func (q Query) Key() QueryKey {
	return QueryKey{Context: q.Context, Question: q.Question}
}

// BuildQueries pairs every page with the question, preserving page order.
func BuildQueries(pages []Page, question string) []Query {
	out := make([]Query, 0, len(pages))
	for _, p := range pages {
		out = append(out, Query{Page: p.Number, Context: p.Text, Question: question})
	}
	return out
}
