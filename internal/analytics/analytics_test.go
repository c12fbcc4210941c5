package analytics

import (
	"fmt"
	"testing"
	"time"

	"event-feedback-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func resp(minute int, ratings map[int]int, texts map[int]string) domain.Response {
	return domain.Response{Ratings: ratings, TextAnswers: texts, SubmittedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Text: "Overall?", Kind: domain.KindRating},
		{Text: "What went well?", Kind: domain.KindText},
		{Text: "Venue?", Kind: domain.KindRating},
	}
}

func TestAggregateRatingStats(t *testing.T) {
	snap := domain.Snapshot{
		Questions: sampleQuestions(),
		Responses: domain.Responses{
			"alice": resp(1, map[int]int{0: 5, 2: 4}, map[int]string{1: "Great talks"}),
			"bob":   resp(2, map[int]int{0: 3}, map[int]string{1: "   "}),
			"carol": resp(3, map[int]int{}, map[int]string{1: "Loved the food"}),
		},
	}

	got := Aggregate(snap)
	assert.Equal(t, 3, got.TotalResponses)

	overall := got.RatingStats[0]
	assert.Equal(t, 2, overall.Count)
	assert.InDelta(t, 4.0, overall.Average, 1e-9)
	assert.Equal(t, [5]int{0, 0, 1, 0, 1}, overall.Distribution)

	venue := got.RatingStats[2]
	assert.Equal(t, 1, venue.Count)
	assert.InDelta(t, 4.0, venue.Average, 1e-9)

	_, hasText := got.RatingStats[1]
	assert.False(t, hasText)

	assert.Equal(t, []string{"Great talks", "Loved the food"}, got.TextAnswers)
}

func TestAggregateDistributionSumsToAnsweredCount(t *testing.T) {
	responses := domain.Responses{}
	answered := 0
	for i := 0; i < 40; i++ {
		ratings := map[int]int{}
		if i%3 != 0 {
			ratings[0] = i%5 + 1
			answered++
		}
		responses[fmt.Sprintf("r%02d", i)] = resp(i, ratings, nil)
	}

	stats := Aggregate(domain.Snapshot{Questions: sampleQuestions(), Responses: responses}).RatingStats[0]
	sum := 0
	for _, n := range stats.Distribution {
		sum += n
	}
	assert.Equal(t, answered, sum)
	assert.Equal(t, answered, stats.Count)
}

func TestAggregateNoRatingsAverageIsZero(t *testing.T) {
	got := Aggregate(domain.Snapshot{
		Questions: sampleQuestions(),
		Responses: domain.Responses{"dave": resp(0, nil, map[int]string{1: "ok"})},
	})
	assert.Equal(t, 0.0, got.RatingStats[0].Average)
	assert.Equal(t, 0, got.RatingStats[0].Count)
}

func TestAggregateEmptySnapshot(t *testing.T) {
	got := Aggregate(domain.Snapshot{})
	assert.Equal(t, 0, got.TotalResponses)
	assert.Empty(t, got.RatingStats)
	assert.Empty(t, got.TextAnswers)
}

func TestCategorizeBuckets(t *testing.T) {
	snap := domain.Snapshot{
		Questions: sampleQuestions(),
		Responses: domain.Responses{
			"happy":  resp(1, map[int]int{0: 5, 2: 5}, map[int]string{1: "Amazing"}),
			"grumpy": resp(2, map[int]int{0: 1, 2: 2}, map[int]string{1: "Too long"}),
			"quiet":  resp(3, nil, map[int]string{1: "Fine I guess"}),
		},
	}

	digest := Categorize(snap, true)
	require.Len(t, digest.Positive, 1)
	require.Len(t, digest.Negative, 1)
	require.Len(t, digest.Neutral, 1)
	assert.Equal(t, domain.Comment{Text: "Amazing", RespondentLabel: AnonymousLabel}, digest.Positive[0])
	assert.Equal(t, "Too long", digest.Negative[0].Text)
	assert.Equal(t, "Fine I guess", digest.Neutral[0].Text)
}

func TestCategorizeThresholdsAreExclusive(t *testing.T) {
	snap := domain.Snapshot{
		Questions: sampleQuestions(),
		Responses: domain.Responses{
			"a": resp(1, map[int]int{0: 4, 2: 3}, map[int]string{1: "three and a half"}),
			"b": resp(2, map[int]int{0: 2, 2: 3}, map[int]string{1: "two and a half"}),
		},
	}
	digest := Categorize(snap, false)
	assert.Empty(t, digest.Positive)
	assert.Empty(t, digest.Negative)
	require.Len(t, digest.Neutral, 2)
	assert.Equal(t, "a", digest.Neutral[0].RespondentLabel)
}

func TestCategorizeCapsBucketsAtThree(t *testing.T) {
	responses := domain.Responses{}
	for i := 0; i < 5; i++ {
		responses[fmt.Sprintf("p%d", i)] = resp(i, map[int]int{0: 5}, map[int]string{1: fmt.Sprintf("comment %d", i)})
	}
	digest := Categorize(domain.Snapshot{Questions: sampleQuestions(), Responses: responses}, true)
	require.Len(t, digest.Positive, 3)
	assert.Equal(t, "comment 0", digest.Positive[0].Text)
	assert.Equal(t, "comment 2", digest.Positive[2].Text)
}

func TestOverallSatisfaction(t *testing.T) {
	snap := domain.Snapshot{
		Questions: sampleQuestions(),
		Responses: domain.Responses{
			"a": resp(1, map[int]int{0: 5, 2: 5}, nil),
			"b": resp(2, map[int]int{0: 1}, map[int]string{1: "meh"}),
			"c": resp(3, map[int]int{2: 1}, nil),
		},
	}
	digest := Categorize(snap, true)
	assert.Equal(t, 60, digest.OverallSatisfactionPercent)
	assert.Equal(t, domain.SatisfactionMixed, digest.Level)

	assert.Equal(t, 0, Categorize(domain.Snapshot{}, true).OverallSatisfactionPercent)
}

func TestSatisfactionLevels(t *testing.T) {
	assert.Equal(t, domain.SatisfactionHigh, Level(81))
	assert.Equal(t, domain.SatisfactionMixed, Level(80))
	assert.Equal(t, domain.SatisfactionMixed, Level(60))
	assert.Equal(t, domain.SatisfactionLow, Level(59))
}

func TestLiveStream(t *testing.T) {
	snap := domain.Snapshot{
		Questions: sampleQuestions(),
		Responses: domain.Responses{
			"a": resp(1, map[int]int{0: 5, 2: 5}, map[int]string{1: "Brilliant"}),
			"b": resp(2, map[int]int{0: 4, 2: 4}, map[int]string{1: "Good"}),
			"c": resp(3, map[int]int{0: 1}, map[int]string{1: "Bad"}),
			"d": resp(4, nil, nil),
		},
	}
	feed := LiveStream(snap, false, 8)
	assert.Equal(t, 4, feed.TotalResponses)
	assert.Equal(t, 50, feed.ResponsePercent)
	require.Len(t, feed.Comments, 3)
	assert.Equal(t, domain.SentimentPositive, feed.Comments[0].Sentiment)
	assert.Equal(t, domain.SentimentNeutral, feed.Comments[1].Sentiment)
	assert.Equal(t, domain.SentimentNegative, feed.Comments[2].Sentiment)
	assert.Equal(t, "c", feed.Comments[2].RespondentID)

	anon := LiveStream(snap, true, 0)
	assert.Equal(t, 0, anon.ResponsePercent)
	assert.Empty(t, anon.Comments[0].RespondentID)
	assert.Equal(t, AnonymousLabel, anon.Comments[0].Label)
}

func TestResponsePercent(t *testing.T) {
	assert.Equal(t, 0, ResponsePercent(3, 0))
	assert.Equal(t, 33, ResponsePercent(1, 3))
	assert.Equal(t, 67, ResponsePercent(2, 3))
	assert.Equal(t, 100, ResponsePercent(4, 4))
}
