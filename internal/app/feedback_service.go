package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"event-feedback-service/internal/analytics"
	"event-feedback-service/internal/domain"
	"event-feedback-service/internal/export"
	"event-feedback-service/internal/extract"
	"event-feedback-service/internal/generation"
	"event-feedback-service/internal/metrics"
	"event-feedback-service/internal/presenter"
)

// SessionRepository abstracts where live event sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(eventID string) *Session
	Get(eventID string) (*Session, bool)
	DeleteIfEmpty(eventID string)
}

// FeedbackStore persists questions, settings and responses per event.
// Reads return ErrEventNotFound for events that were never initialized.
type FeedbackStore interface {
	Questions(ctx context.Context, eventID string) ([]domain.Question, error)
	SetQuestions(ctx context.Context, eventID string, questions []domain.Question) error
	Settings(ctx context.Context, eventID string) (domain.EventSettings, error)
	SetSettings(ctx context.Context, eventID string, settings domain.EventSettings) error
	// PutResponse replaces the respondent's previous response, if any, in one write.
	PutResponse(ctx context.Context, eventID, respondentID string, response domain.Response) error
	Responses(ctx context.Context, eventID string) (domain.Responses, error)
	ClearResponses(ctx context.Context, eventID string) error
	Delete(ctx context.Context, eventID string) error
}

// TemplateRepository loads the default question set of an event type.
type TemplateRepository interface {
	Template(ctx context.Context, eventType string) ([]domain.Question, error)
}

// FeedbackService contains the feedback collection use cases. It keeps no
// feedback state of its own: every view is recomputed from a store snapshot.
type FeedbackService struct {
	store     FeedbackStore
	sessions  SessionRepository
	templates TemplateRepository
	generator generation.Generator
	metrics   *metrics.Metrics
	now       func() time.Time

	anonymousDefault bool
	rotateEvery      time.Duration
}

// Option customises a FeedbackService.
type Option func(*FeedbackService)

func WithGenerator(g generation.Generator) Option {
	return func(s *FeedbackService) { s.generator = g }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FeedbackService) { s.metrics = m }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *FeedbackService) { s.now = now }
}

func WithAnonymousDefault(on bool) Option {
	return func(s *FeedbackService) { s.anonymousDefault = on }
}

// WithAutoRotate advances presenter views every interval while a presenter is connected.
// Zero disables auto-rotation.
func WithAutoRotate(interval time.Duration) Option {
	return func(s *FeedbackService) { s.rotateEvery = interval }
}

func NewFeedbackService(store FeedbackStore, sessions SessionRepository, templates TemplateRepository, opts ...Option) *FeedbackService {
	s := &FeedbackService{
		store:            store,
		sessions:         sessions,
		templates:        templates,
		generator:        generation.StaticGenerator{Output: generation.DefaultStaticOutput()},
		now:              time.Now,
		anonymousDefault: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return newSession(id)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, now func() time.Time) *Session {
	return newSessionWithClock(id, now)
}

// InitRequest describes a new feedback collection.
type InitRequest struct {
	EventType string
	// Questions overrides the event type template when non-empty.
	Questions     []domain.Question
	AnonymousMode *bool
	EditableUntil time.Time
}

// InitializeFeedback starts (or restarts) collection for an event. Previous responses are discarded.
func (s *FeedbackService) InitializeFeedback(ctx context.Context, eventID string, req InitRequest) (domain.EventSettings, []domain.Question, error) {
	questions := req.Questions
	if len(questions) == 0 {
		if s.templates == nil {
			return domain.EventSettings{}, nil, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, req.EventType)
		}
		tmpl, err := s.templates.Template(ctx, req.EventType)
		if err != nil {
			return domain.EventSettings{}, nil, err
		}
		questions = tmpl
	}
	questions, err := normalizeQuestions(questions)
	if err != nil {
		return domain.EventSettings{}, nil, err
	}

	anonymous := s.anonymousDefault
	if req.AnonymousMode != nil {
		anonymous = *req.AnonymousMode
	}
	settings := domain.EventSettings{
		EventType:        req.EventType,
		AnonymousMode:    anonymous,
		CollectionActive: true,
		EditableUntil:    req.EditableUntil,
	}

	if err := s.store.ClearResponses(ctx, eventID); err != nil {
		return domain.EventSettings{}, nil, err
	}
	if err := s.store.SetSettings(ctx, eventID, settings); err != nil {
		return domain.EventSettings{}, nil, err
	}
	if err := s.store.SetQuestions(ctx, eventID, questions); err != nil {
		return domain.EventSettings{}, nil, err
	}
	log.Printf("feedback initialized event=%s type=%s questions=%d", eventID, req.EventType, len(questions))
	s.publish(ctx, eventID)
	return settings, questions, nil
}

// UpdateQuestions replaces the active question list. Stored answers stay keyed by index.
func (s *FeedbackService) UpdateQuestions(ctx context.Context, eventID string, questions []domain.Question) ([]domain.Question, error) {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return nil, err
	}
	questions, err := normalizeQuestions(questions)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetQuestions(ctx, eventID, questions); err != nil {
		return nil, err
	}
	s.publish(ctx, eventID)
	return questions, nil
}

func (s *FeedbackService) Questions(ctx context.Context, eventID string) ([]domain.Question, error) {
	return s.store.Questions(ctx, eventID)
}

func (s *FeedbackService) Settings(ctx context.Context, eventID string) (domain.EventSettings, error) {
	return s.store.Settings(ctx, eventID)
}

// SettingsPatch carries the settings a host may change after initialization; nil fields are left alone.
type SettingsPatch struct {
	AnonymousMode    *bool
	CollectionActive *bool
	EditableUntil    *time.Time
}

// UpdateSettings applies patch to the event settings.
func (s *FeedbackService) UpdateSettings(ctx context.Context, eventID string, patch SettingsPatch) (domain.EventSettings, error) {
	settings, err := s.store.Settings(ctx, eventID)
	if err != nil {
		return domain.EventSettings{}, err
	}
	if patch.AnonymousMode != nil {
		settings.AnonymousMode = *patch.AnonymousMode
	}
	if patch.CollectionActive != nil {
		settings.CollectionActive = *patch.CollectionActive
	}
	if patch.EditableUntil != nil {
		settings.EditableUntil = *patch.EditableUntil
	}
	if err := s.store.SetSettings(ctx, eventID, settings); err != nil {
		return domain.EventSettings{}, err
	}
	s.publish(ctx, eventID)
	return settings, nil
}

// SetEditableUntil sets the submission deadline; the zero time removes it.
func (s *FeedbackService) SetEditableUntil(ctx context.Context, eventID string, until time.Time) (domain.EventSettings, error) {
	return s.UpdateSettings(ctx, eventID, SettingsPatch{EditableUntil: &until})
}

func (s *FeedbackService) SetAnonymous(ctx context.Context, eventID string, on bool) (domain.EventSettings, error) {
	return s.UpdateSettings(ctx, eventID, SettingsPatch{AnonymousMode: &on})
}

// ClearFeedback drops every response of the event, keeping questions and settings.
func (s *FeedbackService) ClearFeedback(ctx context.Context, eventID string) error {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return err
	}
	if err := s.store.ClearResponses(ctx, eventID); err != nil {
		return err
	}
	log.Printf("feedback cleared event=%s", eventID)
	s.publish(ctx, eventID)
	return nil
}

// DeleteEvent removes all stored state of the event.
func (s *FeedbackService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.store.Delete(ctx, eventID); err != nil {
		return err
	}
	if session, ok := s.sessions.Get(eventID); ok {
		session.clearGeneration()
	}
	s.sessions.DeleteIfEmpty(eventID)
	return nil
}

// Submission is one respondent's answer sheet keyed by question index.
type Submission struct {
	Ratings     map[int]int
	TextAnswers map[int]string
}

// SubmitResponse validates a submission against the current questions and stores it,
// replacing the respondent's earlier response.
func (s *FeedbackService) SubmitResponse(ctx context.Context, eventID, respondentID string, sub Submission) (domain.Response, error) {
	response, err := s.submit(ctx, eventID, respondentID, sub)
	if err != nil {
		s.metrics.Submission("rejected")
		return domain.Response{}, err
	}
	s.metrics.Submission("accepted")
	s.publish(ctx, eventID)
	return response, nil
}

func (s *FeedbackService) submit(ctx context.Context, eventID, respondentID string, sub Submission) (domain.Response, error) {
	if err := domain.CheckRespondentID(respondentID); err != nil {
		return domain.Response{}, err
	}
	settings, err := s.store.Settings(ctx, eventID)
	if err != nil {
		return domain.Response{}, err
	}
	now := s.now()
	if !settings.CollectionActive {
		return domain.Response{}, domain.ErrCollectionClosed
	}
	if !settings.EditableUntil.IsZero() && now.After(settings.EditableUntil) {
		return domain.Response{}, fmt.Errorf("%w: editable until %s", domain.ErrCollectionClosed, settings.EditableUntil.Format(time.RFC3339))
	}
	questions, err := s.store.Questions(ctx, eventID)
	if err != nil {
		return domain.Response{}, err
	}

	response := domain.Response{
		Ratings:     make(map[int]int, len(sub.Ratings)),
		TextAnswers: make(map[int]string, len(sub.TextAnswers)),
		SubmittedAt: now,
	}
	for idx, rating := range sub.Ratings {
		if err := checkIndex(questions, idx, domain.KindRating); err != nil {
			return domain.Response{}, err
		}
		if rating < domain.MinRating || rating > domain.MaxRating {
			return domain.Response{}, fmt.Errorf("%w: question %d got %d", domain.ErrInvalidRating, idx, rating)
		}
		response.Ratings[idx] = rating
	}
	for idx, text := range sub.TextAnswers {
		if err := checkIndex(questions, idx, domain.KindText); err != nil {
			return domain.Response{}, err
		}
		if text = strings.TrimSpace(text); text != "" {
			response.TextAnswers[idx] = text
		}
	}

	if err := s.store.PutResponse(ctx, eventID, respondentID, response); err != nil {
		return domain.Response{}, err
	}
	return response, nil
}

func checkIndex(questions []domain.Question, idx int, kind domain.QuestionKind) error {
	if idx < 0 || idx >= len(questions) {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, idx)
	}
	if questions[idx].Kind != kind {
		return fmt.Errorf("%w: question %d is %s", domain.ErrKindMismatch, idx, questions[idx].Kind)
	}
	return nil
}

// UploadMaterial extracts event material and keeps it on the session as a generation source.
// It returns the number of characters kept.
func (s *FeedbackService) UploadMaterial(ctx context.Context, eventID, fileName string, r io.Reader) (int, error) {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return 0, err
	}
	session := s.session(eventID)
	text, err := extract.ExtractReader(fileName, r)
	if err != nil {
		session.setFailure(err.Error())
		log.Printf("upload rejected event=%s file=%s: %v", eventID, fileName, err)
		return 0, err
	}
	session.setUpload(text)
	return len([]rune(text)), nil
}

// GenerateQuestions asks the generator for new questions from description, or from the
// uploaded material when description is blank. At most one generation runs per event;
// a concurrent request fails with ErrGenerationInFlight. Failures leave questions and
// any earlier batch untouched.
func (s *FeedbackService) GenerateQuestions(ctx context.Context, eventID, description string) (domain.CandidateBatch, error) {
	settings, err := s.store.Settings(ctx, eventID)
	if err != nil {
		return domain.CandidateBatch{}, err
	}
	session := s.session(eventID)

	source := strings.TrimSpace(description)
	if source == "" {
		source = session.uploadedContent()
	}
	if source == "" {
		return domain.CandidateBatch{}, domain.ErrNoSourceText
	}

	if !session.beginGeneration() {
		s.metrics.Generation("busy", 0)
		return domain.CandidateBatch{}, domain.ErrGenerationInFlight
	}
	defer session.endGeneration()

	questions, err := s.store.Questions(ctx, eventID)
	if err != nil {
		return domain.CandidateBatch{}, err
	}
	req := generation.BuildRequest(settings.EventType, source, questions)

	started := s.now()
	raw, err := s.generator.Generate(ctx, req)
	elapsed := s.now().Sub(started)
	if err != nil {
		session.setFailure(domain.ErrGenerationFailed.Error() + ", please try again")
		s.metrics.Generation("failed", elapsed)
		log.Printf("generation failed event=%s: %v", eventID, err)
		return domain.CandidateBatch{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	batch, err := generation.Validate(raw)
	if err != nil {
		session.setFailure(err.Error())
		s.metrics.Generation("invalid", elapsed)
		log.Printf("generation output rejected event=%s: %v", eventID, err)
		return domain.CandidateBatch{}, err
	}

	session.setCandidates(batch)
	s.metrics.Generation("ok", elapsed)
	log.Printf("generation ok event=%s candidates=%d", eventID, len(batch.Questions))
	return batch, nil
}

// GenerationStatus reports the pending batch, upload and in-flight state of an event.
func (s *FeedbackService) GenerationStatus(ctx context.Context, eventID string) (domain.GenerationStatus, error) {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return domain.GenerationStatus{}, err
	}
	session, ok := s.sessions.Get(eventID)
	if !ok {
		return domain.GenerationStatus{Candidates: []domain.Question{}}, nil
	}
	return session.generationStatus(), nil
}

// ApplyCandidates resolves the pending batch with policy. Whatever the policy, the batch,
// the uploaded material and the last failure are cleared afterwards.
func (s *FeedbackService) ApplyCandidates(ctx context.Context, eventID string, policy domain.ApplyPolicy) ([]domain.Question, error) {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return nil, err
	}
	session := s.session(eventID)
	batch := session.takeCandidates()
	if batch.Empty() && policy != domain.PolicyDiscard {
		return nil, domain.ErrNoPendingCandidates
	}

	next, err := s.applyBatch(ctx, eventID, batch, policy)
	if err != nil {
		session.restoreCandidates(batch)
		return nil, err
	}
	session.clearSource()
	s.metrics.Apply(string(policy))
	log.Printf("candidates applied event=%s policy=%s questions=%d", eventID, policy, len(next))
	if policy != domain.PolicyDiscard {
		s.publish(ctx, eventID)
	}
	return next, nil
}

func (s *FeedbackService) applyBatch(ctx context.Context, eventID string, batch domain.CandidateBatch, policy domain.ApplyPolicy) ([]domain.Question, error) {
	current, err := s.store.Questions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	next, err := generation.Merge(current, batch, policy)
	if err != nil {
		return nil, err
	}
	if policy != domain.PolicyDiscard {
		if err := s.store.SetQuestions(ctx, eventID, next); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Results recomputes every derived view from a fresh snapshot.
func (s *FeedbackService) Results(ctx context.Context, eventID string) (domain.Dashboard, error) {
	session, _ := s.sessions.Get(eventID)
	return s.dashboard(ctx, eventID, session)
}

// ExportCSV renders the responses as CSV and returns a download file name with it.
func (s *FeedbackService) ExportCSV(ctx context.Context, eventID string) (string, string, error) {
	settings, err := s.store.Settings(ctx, eventID)
	if err != nil {
		return "", "", err
	}
	questions, err := s.store.Questions(ctx, eventID)
	if err != nil {
		return "", "", err
	}
	responses, err := s.store.Responses(ctx, eventID)
	if err != nil {
		return "", "", err
	}
	s.metrics.Export()
	return export.FileName(settings.EventType, s.now()), export.CSV(questions, responses, settings.AnonymousMode), nil
}

// PresenterView returns the screen currently on display.
func (s *FeedbackService) PresenterView(ctx context.Context, eventID string) (domain.PresenterView, error) {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return "", err
	}
	if session, ok := s.sessions.Get(eventID); ok {
		return session.View(), nil
	}
	return domain.ViewLive, nil
}

// NavigatePresenter applies next, prev or a view name. Auto-rotation keeps its own schedule.
func (s *FeedbackService) NavigatePresenter(ctx context.Context, eventID, action string) (domain.PresenterView, error) {
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return "", err
	}
	return s.session(eventID).rotation.Navigate(action)
}

// Join registers a live connection and returns the current dashboard.
func (s *FeedbackService) Join(ctx context.Context, eventID, userID string, role Role) (domain.Dashboard, error) {
	if !role.Valid() {
		return domain.Dashboard{}, fmt.Errorf("unknown role %q", role)
	}
	if _, err := s.store.Settings(ctx, eventID); err != nil {
		return domain.Dashboard{}, err
	}
	session := s.session(eventID)
	if session.join(userID, role) && session.rotator != nil {
		session.rotator.Start()
	}
	s.publish(ctx, eventID)
	return s.dashboard(ctx, eventID, session)
}

// Subscribe returns a channel that receives dashboard updates for an event.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *FeedbackService) Subscribe(ctx context.Context, eventID string) (<-chan domain.Dashboard, func(), error) {
	session, ok := s.sessions.Get(eventID)
	if !ok {
		return nil, nil, domain.ErrEventNotFound
	}
	initial, err := s.dashboard(ctx, eventID, session)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe(initial)
	return ch, cancel, nil
}

// Leave removes a connection and drops the session once nothing depends on it.
func (s *FeedbackService) Leave(ctx context.Context, eventID, userID string, role Role) {
	session, ok := s.sessions.Get(eventID)
	if !ok {
		return
	}
	if session.leave(userID, role) {
		session.stopRotation()
	}
	s.publish(ctx, eventID)
	if session.IsEmpty() {
		s.sessions.DeleteIfEmpty(eventID)
		if _, still := s.sessions.Get(eventID); !still {
			s.metrics.SessionClosed()
		}
	}
}

// session returns the event session, wiring rotation callbacks on first use.
func (s *FeedbackService) session(eventID string) *Session {
	session := s.sessions.GetOrCreate(eventID)
	session.wire.Do(func() {
		session.rotation.OnChange(func(domain.PresenterView) {
			s.publish(context.Background(), eventID)
		})
		if s.rotateEvery > 0 {
			session.rotator = presenter.NewAutoRotator(session.rotation, s.rotateEvery)
		}
		s.metrics.SessionOpened()
	})
	return session
}

func (s *FeedbackService) publish(ctx context.Context, eventID string) {
	session, ok := s.sessions.Get(eventID)
	if !ok || !session.hasSubscribers() {
		return
	}
	session.publishMu.Lock()
	defer session.publishMu.Unlock()
	d, err := s.dashboard(ctx, eventID, session)
	if err != nil {
		if !errors.Is(err, domain.ErrEventNotFound) {
			log.Printf("dashboard refresh failed event=%s: %v", eventID, err)
		}
		return
	}
	session.broadcast(d)
}

func (s *FeedbackService) dashboard(ctx context.Context, eventID string, session *Session) (domain.Dashboard, error) {
	settings, err := s.store.Settings(ctx, eventID)
	if err != nil {
		return domain.Dashboard{}, err
	}
	questions, err := s.store.Questions(ctx, eventID)
	if err != nil {
		return domain.Dashboard{}, err
	}
	responses, err := s.store.Responses(ctx, eventID)
	if err != nil {
		return domain.Dashboard{}, err
	}

	view, connected := domain.ViewLive, 0
	if session != nil {
		view, connected = session.View(), session.Connected()
	}
	snap := domain.Snapshot{Questions: questions, Responses: responses}
	return domain.Dashboard{
		EventID:     eventID,
		Settings:    settings,
		Questions:   questions,
		Aggregation: analytics.Aggregate(snap),
		Digest:      analytics.Categorize(snap, settings.AnonymousMode),
		Live:        analytics.LiveStream(snap, settings.AnonymousMode, connected),
		View:        view,
		UpdatedAt:   s.now(),
	}, nil
}

// normalizeQuestions trims question text and rejects blank text or unknown kinds.
func normalizeQuestions(in []domain.Question) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(in))
	for i, q := range in {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" || !q.Kind.Valid() {
			return nil, fmt.Errorf("%w: question %d", domain.ErrInvalidQuestion, i)
		}
		out = append(out, q)
	}
	return out, nil
}
