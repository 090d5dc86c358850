package search

import (
	"time"

	"github.com/feedrank/feedrank/internal/domain"
)

// Type coefficients. Unknown types score like articles.
const (
	videoCoefficient   = 1.5
	defaultCoefficient = 1.0
)

// Score computes the relevance score of a content record at the given time:
//
//	score = base*typeCoefficient + freshness + engagement
//
// It is pure and total: missing metrics count as zero and the engagement
// ratio terms guard their denominators, so no valid record can fail to
// score.
func Score(c domain.Content, now time.Time) float64 {
	return baseScore(c)*typeCoefficient(c.Type) + freshnessScore(c.PublishedAt, now) + engagementScore(c)
}

// baseScore is views/1000 + likes/100 for videos and
// reading_time + reactions/50 for everything else.
func baseScore(c domain.Content) float64 {
	if c.Type == domain.TypeVideo {
		return c.Metrics.Number("views")/1000 + c.Metrics.Number("likes")/100
	}
	return c.Metrics.Number("reading_time") + c.Metrics.Number("reactions")/50
}

func typeCoefficient(t domain.Type) float64 {
	if t == domain.TypeVideo {
		return videoCoefficient
	}
	return defaultCoefficient
}

// freshnessScore buckets the age of the record in whole days.
func freshnessScore(publishedAt, now time.Time) float64 {
	days := int(now.Sub(publishedAt).Hours() / 24)
	switch {
	case days <= 7:
		return 5.0
	case days <= 30:
		return 3.0
	case days <= 90:
		return 1.0
	default:
		return 0.0
	}
}

// engagementScore is (likes/views)*10 for videos and
// (reactions/reading_time)*5 for everything else. A zero denominator makes
// the whole term zero.
func engagementScore(c domain.Content) float64 {
	if c.Type == domain.TypeVideo {
		views := c.Metrics.Number("views")
		if views == 0 {
			return 0
		}
		return c.Metrics.Number("likes") / views * 10
	}

	readingTime := c.Metrics.Number("reading_time")
	if readingTime == 0 {
		return 0
	}
	return c.Metrics.Number("reactions") / readingTime * 5
}
