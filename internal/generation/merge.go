package generation

import (
	"fmt"

	"event-feedback-service/internal/domain"
)

// Merge applies a candidate batch to the current question list under policy.
// The result never aliases either input. Clearing the batch afterwards is the caller's job.
func Merge(current []domain.Question, batch domain.CandidateBatch, policy domain.ApplyPolicy) ([]domain.Question, error) {
	switch policy {
	case domain.PolicyReplace:
		return append([]domain.Question(nil), batch.Questions...), nil
	case domain.PolicyMerge:
		out := make([]domain.Question, 0, len(current)+len(batch.Questions))
		out = append(out, current...)
		return append(out, batch.Questions...), nil
	case domain.PolicyDiscard:
		return append([]domain.Question(nil), current...), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPolicy, policy)
	}
}

// ParsePolicy maps a wire string to an ApplyPolicy.
func ParsePolicy(s string) (domain.ApplyPolicy, error) {
	switch p := domain.ApplyPolicy(s); p {
	case domain.PolicyReplace, domain.PolicyMerge, domain.PolicyDiscard:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownPolicy, s)
}
