package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"event-feedback-service/internal/domain"
	"github.com/kaptinlin/jsonrepair"
)

// RawOutput is the unvalidated value returned by a Generator: either text that
// should contain a JSON object, or an already-structured value.
type RawOutput struct {
	text       string
	structured any
	hasValue   bool
}

// TextOutput wraps a raw text reply.
func TextOutput(text string) RawOutput {
	return RawOutput{text: text}
}

// StructuredOutput wraps a decoded value (map, struct, json.RawMessage...).
func StructuredOutput(v any) RawOutput {
	return RawOutput{structured: v, hasValue: true}
}

// IsStructured reports which variant the output holds.
func (o RawOutput) IsStructured() bool {
	return o.hasValue
}

// Text returns the raw text of a text output.
func (o RawOutput) Text() string {
	return o.text
}

// Validate parses raw generator output into a batch of well-formed questions.
// Entries without non-empty text or with a type other than rating/text are dropped.
func Validate(raw RawOutput) (domain.CandidateBatch, error) {
	top, err := decodeTop(raw)
	if err != nil {
		return domain.CandidateBatch{}, err
	}

	list, ok := top["questions"].([]any)
	if !ok {
		return domain.CandidateBatch{}, fmt.Errorf("%w: missing questions list", domain.ErrInvalidResponseFormat)
	}

	questions := make([]domain.Question, 0, len(list))
	for _, entry := range list {
		if q, ok := candidateFrom(entry); ok {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return domain.CandidateBatch{}, domain.ErrNoValidQuestions
	}
	return domain.CandidateBatch{Questions: questions}, nil
}

func candidateFrom(entry any) (domain.Question, bool) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return domain.Question{}, false
	}
	text, ok := fields["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return domain.Question{}, false
	}
	kind, ok := fields["type"].(string)
	if !ok || !domain.QuestionKind(kind).Valid() {
		return domain.Question{}, false
	}
	return domain.Question{Text: strings.TrimSpace(text), Kind: domain.QuestionKind(kind)}, true
}

func decodeTop(raw RawOutput) (map[string]any, error) {
	if raw.hasValue {
		return decodeStructured(raw.structured)
	}
	return decodeText(raw.text)
}

func decodeStructured(v any) (map[string]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: empty response", domain.ErrInvalidResponseFormat)
	case map[string]any:
		return val, nil
	case string:
		return decodeText(val)
	case []byte:
		return decodeText(string(val))
	case json.RawMessage:
		return decodeText(string(val))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}
	var top map[string]any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}
	return top, nil
}

// decodeText pulls the outermost {...} span out of a reply (models like to wrap
// JSON in prose or code fences) and parses it, with one repair attempt.
func decodeText(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrInvalidResponseFormat)
	}
	span := text[start : end+1]

	var top map[string]any
	err := json.Unmarshal([]byte(span), &top)
	if err == nil {
		return top, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(span)
	if repairErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}
	top = nil
	if err := json.Unmarshal([]byte(repaired), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}
	return top, nil
}
