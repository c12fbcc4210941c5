// Package generation builds requests for, and validates output from, the external question-generation capability.
package generation

import (
	"fmt"
	"strings"

	"event-feedback-service/internal/domain"
)

// SystemInstruction is the fixed directive sent with every generation request.
const SystemInstruction = "You are an expert event feedback designer. Produce event-feedback questions as structured JSON data only, with no additional text."

const noQuestionsMarker = "None yet"

// Request is the two-part instruction handed to a Generator.
type Request struct {
	SystemInstruction string
	Payload           string
}

// BuildRequest composes the generation request. sourceText is either extracted file
// content or a free-form event description.
func BuildRequest(eventType, sourceText string, existing []domain.Question) Request {
	var existingLines strings.Builder
	for i, q := range existing {
		existingLines.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, q.Kind, strings.TrimSpace(q.Text)))
	}
	existingBlock := noQuestionsMarker
	if existingLines.Len() > 0 {
		existingBlock = strings.TrimRight(existingLines.String(), "\n")
	}

	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "general event"
	}

	var b strings.Builder
	b.WriteString("Based on the following event details and existing questions, generate feedback questions in JSON format.\n\n")
	b.WriteString("Event Type: " + eventType + "\n\n")
	b.WriteString("Event Details:\n" + strings.TrimSpace(sourceText) + "\n\n")
	b.WriteString("Existing Questions (for reference and consistency):\n" + existingBlock + "\n\n")
	b.WriteString(`Generate 3-5 NEW feedback questions that are:
- Specific to this event
- A mix of rating (1-5 scale) and text questions
- Clear and concise
- Non-overlapping with existing questions

Return ONLY valid JSON with no additional text. Format:
{
  "questions": [
    {"text": "question text?", "type": "rating"},
    {"text": "question text?", "type": "text"}
  ]
}`)

	return Request{
		SystemInstruction: SystemInstruction,
		Payload:           b.String(),
	}
}
