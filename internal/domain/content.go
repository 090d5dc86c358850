package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Type discriminates content records. The set is open: providers may deliver
// types beyond the known ones, and scoring falls back to the article formula.
type Type string

// Known content types.
const (
	TypeVideo   Type = "video"
	TypeArticle Type = "article"
)

// Metrics holds type-dependent named fields of a content record.
// Video records carry views/likes/duration, articles carry
// reading_time/reactions/comments. Values are numeric or string.
type Metrics map[string]any

// Number returns the numeric value for key, or 0 when the key is absent or
// not numeric. Scoring relies on this never failing.
func (m Metrics) Number(key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Text returns the string value for key, or "" when absent or non-string.
func (m Metrics) Text(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Content is the canonical record produced by providers and persisted by the
// content store. ID is the stable external identifier and is globally unique
// in the store; sync overwrites all other fields on conflict.
type Content struct {
	ID          string
	Title       string
	Type        Type
	Metrics     Metrics
	PublishedAt time.Time
	Tags        []string
	UpdatedAt   time.Time
}

// MatchesKeyword reports whether kw is a case-insensitive substring of the
// title or any tag. An empty keyword matches everything.
func (c Content) MatchesKeyword(kw string) bool {
	if kw == "" {
		return true
	}
	kw = strings.ToLower(kw)
	if strings.Contains(strings.ToLower(c.Title), kw) {
		return true
	}
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), kw) {
			return true
		}
	}
	return false
}

// ScoredContent pairs a content record with its relevance score for one
// query. The score is derived per request and never written back onto the
// shared Content value.
type ScoredContent struct {
	Content Content
	Score   float64
}
