package model

import "strings"

// Page is the extracted text of one PDF page. Number is 1-based and only used
// for presentation; the text itself is what identifies a page to the cache.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// IsBlank reports whether the page carries no extractable text.
func (p Page) IsBlank() bool {
	return strings.TrimSpace(p.Text) == ""
}

// Texts returns the page texts in document order.
func Texts(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Text
	}
	return out
}
