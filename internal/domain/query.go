package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SortBy selects the result ordering of a search.
type SortBy string

// Supported sort orders. Any other value leaves results in store order.
const (
	SortByScore SortBy = "score"
	SortByDate  SortBy = "date"
)

// Search defaults.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// SearchQuery holds the parameters of one search request. Construct it from
// transport input and call Normalize before use; the normalized value is
// treated as immutable by the pipeline.
type SearchQuery struct {
	Keyword string
	Type    string
	SortBy  SortBy
	Page    int
	PerPage int
}

// Normalize trims string fields and applies defaults for missing or
// non-positive values. It returns a new query and leaves the receiver
// untouched.
func (q SearchQuery) Normalize() SearchQuery {
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Type = strings.TrimSpace(q.Type)
	if q.SortBy == "" {
		q.SortBy = SortByScore
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	return q
}

// Offset returns the slice offset of the requested page.
func (q SearchQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// CacheKey derives a deterministic cache key from the normalized fields.
// Fields are serialized in a fixed order, so two queries with identical
// parameter values always share a key regardless of how they were built.
func (q SearchQuery) CacheKey() string {
	n := q.Normalize()
	raw := fmt.Sprintf("keyword=%s&type=%s&sortBy=%s&page=%d&perPage=%d",
		n.Keyword, n.Type, n.SortBy, n.Page, n.PerPage)
	h := sha256.Sum256([]byte(raw))
	return "search:" + hex.EncodeToString(h[:])
}
