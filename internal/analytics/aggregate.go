// Package analytics derives the presenter views from a snapshot of questions and responses.
// Everything here is a pure function of its input and is recomputed on every call.
package analytics

import (
	"strings"

	"event-feedback-service/internal/domain"
)

// Aggregate computes per-question rating statistics and the flat list of text answers.
// Unanswered questions are excluded from statistics, never counted as zero.
func Aggregate(snap domain.Snapshot) domain.AggregationResult {
	ordered := snap.Responses.Ordered()
	result := domain.AggregationResult{
		TotalResponses: len(ordered),
		RatingStats:    make(map[int]domain.RatingStats),
		TextAnswers:    []string{},
	}

	for i, q := range snap.Questions {
		switch q.Kind {
		case domain.KindRating:
			result.RatingStats[i] = ratingStats(ordered, i)
		case domain.KindText:
			for _, rr := range ordered {
				if text, ok := rr.Response.Text(i); ok && strings.TrimSpace(text) != "" {
					result.TextAnswers = append(result.TextAnswers, text)
				}
			}
		}
	}
	return result
}

func ratingStats(ordered []domain.RespondentResponse, index int) domain.RatingStats {
	var stats domain.RatingStats
	sum := 0
	for _, rr := range ordered {
		rating, ok := rr.Response.Rating(index)
		if !ok || !validRating(rating) {
			continue
		}
		stats.Distribution[rating-1]++
		stats.Count++
		sum += rating
	}
	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	return stats
}

func validRating(r int) bool {
	return r >= domain.MinRating && r <= domain.MaxRating
}

// ratingTotals returns the sum and count of a respondent's valid ratings.
func ratingTotals(r domain.Response) (sum, count int) {
	for _, rating := range r.Ratings {
		if validRating(rating) {
			sum += rating
			count++
		}
	}
	return sum, count
}
