// Package export renders collected feedback as CSV.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"event-feedback-service/internal/domain"
)

// AnonymousRespondent replaces the respondent column in anonymous mode.
const AnonymousRespondent = "Anonymous"

// CSV renders one header line and one line per response, joined by "\n".
// Header fields and text answers are double-quoted with embedded quotes doubled;
// ratings are bare; unanswered cells are empty.
func CSV(questions []domain.Question, responses domain.Responses, anonymous bool) string {
	header := make([]string, 0, len(questions)+1)
	header = append(header, quote("Respondent"))
	for i := range questions {
		header = append(header, quote(fmt.Sprintf("Question %d", i+1)))
	}

	lines := []string{strings.Join(header, ",")}
	for _, rr := range responses.Ordered() {
		respondent := rr.RespondentID
		if anonymous {
			respondent = AnonymousRespondent
		}
		row := make([]string, 0, len(questions)+1)
		row = append(row, respondent)

		for i, q := range questions {
			cell := ""
			switch q.Kind {
			case domain.KindRating:
				if rating, ok := rr.Response.Rating(i); ok && rating != 0 {
					cell = strconv.Itoa(rating)
				}
			case domain.KindText:
				if text, ok := rr.Response.Text(i); ok && text != "" {
					cell = quote(text)
				}
			}
			row = append(row, cell)
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

// FileName is the download name for an export taken at t.
func FileName(eventType string, t time.Time) string {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "event"
	}
	eventType = strings.Join(strings.Fields(eventType), "-")
	return fmt.Sprintf("feedback-%s-%s.csv", eventType, t.Format("2006-01-02"))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
