package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// timeWire is the timestamp layout used on the API surface.
const timeWire = "2006-01-02 15:04:05"

// Pagination describes the position of a result page within the full
// result set.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page metadata for total results.
func NewPagination(total, page, perPage int) Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return Pagination{Total: total, Page: page, PerPage: perPage, TotalPages: totalPages}
}

// Page is one computed result page. It is the unit stored in the query
// cache, so it must serialize losslessly enough to be served straight from
// cache.
type Page struct {
	Data       []ScoredContent `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// scoredContentWire is the JSON shape of a scored record on the API surface.
type scoredContentWire struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        Type     `json:"type"`
	Metrics     Metrics  `json:"metrics"`
	PublishedAt string   `json:"published_at"`
	Tags        []string `json:"tags"`
	Score       float64  `json:"score"`
}

// MarshalJSON serializes the record with published_at in "YYYY-MM-DD
// HH:MM:SS" form and the score rounded to two decimals.
func (s ScoredContent) MarshalJSON() ([]byte, error) {
	tags := s.Content.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(scoredContentWire{
		ID:          s.Content.ID,
		Title:       s.Content.Title,
		Type:        s.Content.Type,
		Metrics:     s.Content.Metrics,
		PublishedAt: s.Content.PublishedAt.Format(timeWire),
		Tags:        tags,
		Score:       math.Round(s.Score*100) / 100,
	})
}

// UnmarshalJSON restores a record serialized by MarshalJSON. Needed to serve
// pages straight out of the query cache.
func (s *ScoredContent) UnmarshalJSON(data []byte) error {
	var w scoredContentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal scored content: %w", err)
	}
	publishedAt, err := time.Parse(timeWire, w.PublishedAt)
	if err != nil {
		return fmt.Errorf("parse published_at %q: %w", w.PublishedAt, err)
	}
	s.Content = Content{
		ID:          w.ID,
		Title:       w.Title,
		Type:        w.Type,
		Metrics:     w.Metrics,
		PublishedAt: publishedAt,
		Tags:        w.Tags,
	}
	s.Score = w.Score
	return nil
}
