package analytics

import (
	"math"
	"sort"
	"strings"

	"event-feedback-service/internal/domain"
)

const (
	// neutralAverage stands in for respondents who gave no ratings.
	neutralAverage = 3.0

	digestPositiveAbove = 3.5
	digestNegativeBelow = 2.5
	digestBucketLimit   = 3

	liveNegativeBelow = 2.0
	livePositiveAbove = 4.0

	// AnonymousLabel replaces respondent identity when anonymous mode is on.
	AnonymousLabel = "Anonymous"
)

// Categorize buckets every non-blank text answer by its author's average rating and
// computes overall satisfaction over every recorded rating.
func Categorize(snap domain.Snapshot, anonymous bool) domain.SentimentDigest {
	digest := domain.SentimentDigest{
		Positive: []domain.Comment{},
		Neutral:  []domain.Comment{},
		Negative: []domain.Comment{},
	}

	totalSum, totalCount := 0, 0
	for _, rr := range snap.Responses.Ordered() {
		sum, count := ratingTotals(rr.Response)
		totalSum += sum
		totalCount += count

		avg := neutralAverage
		if count > 0 {
			avg = float64(sum) / float64(count)
		}

		for _, text := range textAnswers(rr.Response) {
			c := domain.Comment{Text: text, RespondentLabel: respondentLabel(rr.RespondentID, anonymous)}
			switch {
			case avg > digestPositiveAbove:
				digest.Positive = appendCapped(digest.Positive, c)
			case avg < digestNegativeBelow:
				digest.Negative = appendCapped(digest.Negative, c)
			default:
				digest.Neutral = appendCapped(digest.Neutral, c)
			}
		}
	}

	digest.OverallSatisfactionPercent = SatisfactionPercent(totalSum, totalCount)
	digest.Level = Level(digest.OverallSatisfactionPercent)
	return digest
}

// SatisfactionPercent is round(sum/count/5*100), or 0 without ratings.
func SatisfactionPercent(sum, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count) / domain.MaxRating * 100))
}

// Level bands a satisfaction percentage.
func Level(percent int) domain.SatisfactionLevel {
	switch {
	case percent > 80:
		return domain.SatisfactionHigh
	case percent >= 60:
		return domain.SatisfactionMixed
	default:
		return domain.SatisfactionLow
	}
}

// LiveStream builds the live comment feed. It uses stricter thresholds than the
// digest: only averages above 4 or below 2 leave the neutral bucket.
func LiveStream(snap domain.Snapshot, anonymous bool, connected int) domain.LiveFeed {
	ordered := snap.Responses.Ordered()
	feed := domain.LiveFeed{
		TotalResponses:  len(ordered),
		Connected:       connected,
		ResponsePercent: ResponsePercent(len(ordered), connected),
		Comments:        []domain.LiveComment{},
	}

	for _, rr := range ordered {
		avg := neutralAverage
		if sum, count := ratingTotals(rr.Response); count > 0 {
			avg = float64(sum) / float64(count)
		}
		sentiment := domain.SentimentNeutral
		switch {
		case avg > livePositiveAbove:
			sentiment = domain.SentimentPositive
		case avg < liveNegativeBelow:
			sentiment = domain.SentimentNegative
		}

		for _, text := range textAnswers(rr.Response) {
			c := domain.LiveComment{
				Text:      text,
				Label:     respondentLabel(rr.RespondentID, anonymous),
				Sentiment: sentiment,
			}
			if !anonymous {
				c.RespondentID = rr.RespondentID
			}
			feed.Comments = append(feed.Comments, c)
		}
	}
	return feed
}

// ResponsePercent is the share of connected participants that responded.
func ResponsePercent(responses, connected int) int {
	if connected <= 0 {
		return 0
	}
	return int(math.Round(float64(responses) / float64(connected) * 100))
}

// textAnswers returns a respondent's non-blank answers in question order.
func textAnswers(r domain.Response) []string {
	indexes := make([]int, 0, len(r.TextAnswers))
	for i, text := range r.TextAnswers {
		if strings.TrimSpace(text) != "" {
			indexes = append(indexes, i)
		}
	}
	sort.Ints(indexes)

	out := make([]string, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, r.TextAnswers[i])
	}
	return out
}

func respondentLabel(respondentID string, anonymous bool) string {
	if anonymous {
		return AnonymousLabel
	}
	return respondentID
}

func appendCapped(bucket []domain.Comment, c domain.Comment) []domain.Comment {
	if len(bucket) >= digestBucketLimit {
		return bucket
	}
	return append(bucket, c)
}
