package domain

import "errors"

var (
	// ErrUnsupportedFormat is returned when an uploaded file is neither .txt nor .pdf.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed wraps a byte-level failure while reading an uploaded document.
	ErrExtractionFailed = errors.New("failed to extract file content")
	// ErrInvalidResponseFormat indicates the generation output was not parseable or had no questions list.
	ErrInvalidResponseFormat = errors.New("invalid response format from AI")
	// ErrNoValidQuestions indicates no generated entry survived validation.
	ErrNoValidQuestions = errors.New("no valid questions generated")
	// ErrGenerationFailed wraps a failure of the external generation capability.
	ErrGenerationFailed = errors.New("failed to generate questions")
	// ErrGenerationInFlight is returned when a generation request is already running for the event.
	ErrGenerationInFlight = errors.New("question generation already in progress")
	// ErrNoPendingCandidates is returned when applying without a generated batch.
	ErrNoPendingCandidates = errors.New("no generated questions to apply")
	// ErrUnknownPolicy indicates an apply policy other than replace, merge or discard.
	ErrUnknownPolicy = errors.New("unknown apply policy")
	// ErrNoSourceText indicates generation was requested with neither a description nor an upload.
	ErrNoSourceText = errors.New("no event description or uploaded file content")
	// ErrEventNotFound is returned when an event has not been initialized.
	ErrEventNotFound = errors.New("feedback event not found")
	// ErrCollectionClosed is returned when submitting outside the collection window.
	ErrCollectionClosed = errors.New("feedback collection is closed")
	// ErrQuestionNotFound indicates an answer keyed to an index outside the question list.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrKindMismatch indicates an answer whose kind does not match the question.
	ErrKindMismatch = errors.New("answer does not match question type")
	// ErrInvalidRating indicates a rating outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrInvalidQuestion indicates a question with an unknown kind.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrTemplateNotFound indicates no question template exists for an event type.
	ErrTemplateNotFound = errors.New("question template not found")
	// ErrMissingRespondent indicates a submission without a respondent identity.
	ErrMissingRespondent = errors.New("respondent id is required")
	// ErrInvalidRespondent indicates a respondent id that cannot be exported as a bare CSV cell.
	ErrInvalidRespondent = errors.New("respondent id must not contain commas, quotes or line breaks")
	// ErrInvalidView indicates an unknown presenter view.
	ErrInvalidView = errors.New("invalid presenter view")
)
