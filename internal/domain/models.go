package domain

import (
	"sort"
	"strings"
	"time"
)

// QuestionKind selects how a question is answered.
type QuestionKind string

const (
	KindRating QuestionKind = "rating"
	KindText   QuestionKind = "text"
)

// Valid reports whether k is one of the supported kinds.
func (k QuestionKind) Valid() bool {
	return k == KindRating || k == KindText
}

// Question is identified by its position in the active question list.
// Inserting or removing a question shifts the answers bound to every later index.
type Question struct {
	Text string       `json:"text" yaml:"text"`
	Kind QuestionKind `json:"type" yaml:"type"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// Response is the single stored answer sheet of one respondent.
type Response struct {
	Ratings     map[int]int    `json:"ratings"`
	TextAnswers map[int]string `json:"textResponses"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// Rating returns the rating recorded for the question at index i.
func (r Response) Rating(i int) (int, bool) {
	v, ok := r.Ratings[i]
	return v, ok
}

// Text returns the text answer recorded for the question at index i.
func (r Response) Text(i int) (string, bool) {
	v, ok := r.TextAnswers[i]
	return v, ok
}

// Responses maps respondent identity to that respondent's Response.
type Responses map[string]Response

// CheckRespondentID validates a respondent identity. Exports write it unquoted,
// so separators and quotes are refused.
func CheckRespondentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingRespondent
	}
	if strings.ContainsAny(id, ",\"\r\n") {
		return ErrInvalidRespondent
	}
	return nil
}

// RespondentResponse pairs a Response with its respondent.
type RespondentResponse struct {
	RespondentID string
	Response     Response
}

// Ordered returns the responses in iteration order: oldest submission first,
// ties broken by respondent ID. Every derived view walks this order.
func (rs Responses) Ordered() []RespondentResponse {
	out := make([]RespondentResponse, 0, len(rs))
	for id, r := range rs {
		out = append(out, RespondentResponse{RespondentID: id, Response: r})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Response.SubmittedAt, out[j].Response.SubmittedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].RespondentID < out[j].RespondentID
	})
	return out
}

// Snapshot is a point-in-time pairing of the question list and the responses keyed against it.
type Snapshot struct {
	Questions []Question
	Responses Responses
}

// CandidateBatch holds AI-proposed questions awaiting an apply decision.
type CandidateBatch struct {
	Questions []Question `json:"questions"`
}

// Empty reports whether the batch has nothing to apply.
func (b CandidateBatch) Empty() bool {
	return len(b.Questions) == 0
}

// ApplyPolicy decides how a CandidateBatch updates the active question set.
type ApplyPolicy string

const (
	PolicyReplace ApplyPolicy = "replace"
	PolicyMerge   ApplyPolicy = "merge"
	PolicyDiscard ApplyPolicy = "discard"
)

// RatingStats summarises the answered ratings of one rating question.
type RatingStats struct {
	Average float64 `json:"average"`
	// Distribution[r-1] counts ratings equal to r.
	Distribution [MaxRating]int `json:"distribution"`
	Count        int            `json:"count"`
}

// AggregationResult is recomputed from a Snapshot on every request.
type AggregationResult struct {
	TotalResponses int                 `json:"totalResponses"`
	RatingStats    map[int]RatingStats `json:"ratingStats"`
	TextAnswers    []string            `json:"allTextResponses"`
}

// Sentiment buckets a comment by its author's ratings.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Comment is a free-text answer with the label it is displayed under.
type Comment struct {
	Text            string `json:"text"`
	RespondentLabel string `json:"respondentLabel"`
}

// SatisfactionLevel bands the overall satisfaction percentage.
type SatisfactionLevel string

const (
	SatisfactionHigh  SatisfactionLevel = "high"
	SatisfactionMixed SatisfactionLevel = "mixed"
	SatisfactionLow   SatisfactionLevel = "low"
)

// SentimentDigest groups comments by sentiment for the insights view.
type SentimentDigest struct {
	Positive                   []Comment         `json:"positive"`
	Neutral                    []Comment         `json:"neutral"`
	Negative                   []Comment         `json:"negative"`
	OverallSatisfactionPercent int               `json:"overallSatisfactionPercent"`
	Level                      SatisfactionLevel `json:"level"`
}

// LiveComment is one entry of the live comment stream.
type LiveComment struct {
	RespondentID string    `json:"respondentId,omitempty"`
	Text         string    `json:"text"`
	Label        string    `json:"label"`
	Sentiment    Sentiment `json:"sentiment"`
}

// LiveFeed backs the live presenter view.
type LiveFeed struct {
	TotalResponses  int           `json:"totalResponses"`
	Connected       int           `json:"connected"`
	ResponsePercent int           `json:"responsePercent"`
	Comments        []LiveComment `json:"comments"`
}

// EventSettings carries the host-controlled collection settings of an event.
type EventSettings struct {
	EventType        string    `json:"eventType"`
	AnonymousMode    bool      `json:"anonymousMode"`
	CollectionActive bool      `json:"collectionActive"`
	EditableUntil    time.Time `json:"editableUntil"`
}

// PresenterView is one of the three presenter screens.
type PresenterView string

const (
	ViewLive     PresenterView = "live"
	ViewAnalysis PresenterView = "analysis"
	ViewInsights PresenterView = "insights"
)

// Valid reports whether v names a presenter screen.
func (v PresenterView) Valid() bool {
	return v == ViewLive || v == ViewAnalysis || v == ViewInsights
}

// Dashboard is the full derived state pushed to presenters and hosts.
type Dashboard struct {
	EventID     string            `json:"eventId"`
	Settings    EventSettings     `json:"settings"`
	Questions   []Question        `json:"questions"`
	Aggregation AggregationResult `json:"aggregation"`
	Digest      SentimentDigest   `json:"digest"`
	Live        LiveFeed          `json:"live"`
	View        PresenterView     `json:"view"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// GenerationStatus exposes the AI generation state of an event to the host.
type GenerationStatus struct {
	InFlight       bool       `json:"inFlight"`
	UploadedChars  int        `json:"uploadedChars"`
	// Error is the last upload or generation failure, cleared by a successful generation or an apply.
	Error          string     `json:"error,omitempty"`
	Candidates     []Question `json:"candidates"`
	CandidateCount int        `json:"candidateCount"`
}
