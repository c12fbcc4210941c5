package export

import (
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"event-feedback-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func questions() []domain.Question {
	return []domain.Question{
		{Text: "Overall?", Kind: domain.KindRating},
		{Text: "Comments?", Kind: domain.KindText},
		{Text: "Venue?", Kind: domain.KindRating},
	}
}

func TestCSVLayout(t *testing.T) {
	responses := domain.Responses{
		"u1": {Ratings: map[int]int{0: 5, 2: 3}, TextAnswers: map[int]string{1: `Said "wow"`}, SubmittedAt: t0},
		"u2": {Ratings: map[int]int{0: 2}, SubmittedAt: t0.Add(time.Minute)},
	}

	got := CSV(questions(), responses, false)
	want := strings.Join([]string{
		`"Respondent","Question 1","Question 2","Question 3"`,
		`u1,5,"Said ""wow""",3`,
		`u2,2,,`,
	}, "\n")
	assert.Equal(t, want, got)
}

func TestCSVAnonymous(t *testing.T) {
	responses := domain.Responses{
		"u1": {Ratings: map[int]int{0: 4}, SubmittedAt: t0},
	}
	got := CSV(questions(), responses, true)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Anonymous,4,,", lines[1])
}

func TestCSVNoResponses(t *testing.T) {
	assert.Equal(t, `"Respondent"`, CSV(nil, nil, true))
}

func TestCSVRoundTripsRatings(t *testing.T) {
	responses := domain.Responses{
		"a": {Ratings: map[int]int{0: 1, 2: 5}, TextAnswers: map[int]string{1: "line one\nline, two"}, SubmittedAt: t0},
		"b": {Ratings: map[int]int{2: 4}, SubmittedAt: t0.Add(time.Second)},
		"c": {Ratings: map[int]int{0: 3}, TextAnswers: map[int]string{1: `"quoted"`}, SubmittedAt: t0.Add(2 * time.Second)},
	}
	qs := questions()

	records, err := csv.NewReader(strings.NewReader(CSV(qs, responses, false))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(responses)+1)

	for _, record := range records[1:] {
		original := responses[record[0]]
		for i, q := range qs {
			cell := record[i+1]
			switch q.Kind {
			case domain.KindRating:
				rating, answered := original.Ratings[i]
				if !answered {
					assert.Equal(t, "", cell)
					continue
				}
				parsed, err := strconv.Atoi(cell)
				require.NoError(t, err)
				assert.Equal(t, rating, parsed)
			case domain.KindText:
				assert.Equal(t, original.TextAnswers[i], cell)
			}
		}
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "feedback-team-offsite-2026-05-02.csv", FileName("team offsite", t0))
	assert.Equal(t, "feedback-event-2026-05-02.csv", FileName("", t0))
}
