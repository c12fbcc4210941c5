package app

import (
	"sync"
	"sync/atomic"
	"time"

	"event-feedback-service/internal/domain"
	"event-feedback-service/internal/presenter"
)

// Role distinguishes how a live connection takes part in an event.
type Role string

const (
	RolePlayer    Role = "player"
	RolePresenter Role = "presenter"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePlayer || r == RolePresenter
}

// Session is the in-process state of one event: connected participants,
// dashboard subscribers, the presenter rotation and the pending generation batch.
// Stored feedback lives in the FeedbackStore, never here.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu          sync.RWMutex
	players     map[string]time.Time
	presenters  map[string]struct{}
	subscribers map[chan domain.Dashboard]struct{}

	// generating is the idle/in-flight guard; only CompareAndSwap moves it to true.
	generating  atomic.Bool
	candidates  domain.CandidateBatch
	uploaded    string
	lastFailure string

	rotation *presenter.Rotation
	rotator  *presenter.AutoRotator
	wire     sync.Once

	// publishMu serialises compute-and-broadcast so the last push reflects the latest write.
	publishMu sync.Mutex
}

func newSession(id string) *Session {
	return newSessionWithClock(id, time.Now)
}

func newSessionWithClock(id string, now func() time.Time) *Session {
	return &Session{
		id:          id,
		createdAt:   now(),
		now:         now,
		players:     make(map[string]time.Time),
		presenters:  make(map[string]struct{}),
		subscribers: make(map[chan domain.Dashboard]struct{}),
		rotation:    presenter.NewRotation(),
	}
}

// ID returns the event the session belongs to.
func (s *Session) ID() string {
	return s.id
}

// join registers a connection and reports whether it is the first presenter.
func (s *Session) join(userID string, role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RolePresenter {
		_, present := s.presenters[userID]
		s.presenters[userID] = struct{}{}
		return !present && len(s.presenters) == 1
	}
	s.players[userID] = s.now()
	return false
}

// leave removes a connection and reports whether the last presenter left.
func (s *Session) leave(userID string, role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RolePresenter {
		if _, ok := s.presenters[userID]; !ok {
			return false
		}
		delete(s.presenters, userID)
		return len(s.presenters) == 0
	}
	delete(s.players, userID)
	return false
}

// Connected is the number of players currently online.
func (s *Session) Connected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// IsEmpty reports whether nothing depends on the session any more: no
// connections, no subscribers and no pending generation work.
func (s *Session) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players) == 0 &&
		len(s.presenters) == 0 &&
		len(s.subscribers) == 0 &&
		s.candidates.Empty() &&
		s.uploaded == "" &&
		!s.generating.Load()
}

// View is the presenter screen currently on display.
func (s *Session) View() domain.PresenterView {
	return s.rotation.Current()
}

func (s *Session) beginGeneration() bool {
	return s.generating.CompareAndSwap(false, true)
}

func (s *Session) endGeneration() {
	s.generating.Store(false)
}

func (s *Session) setUpload(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = text
	s.lastFailure = ""
}

func (s *Session) uploadedContent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploaded
}

func (s *Session) setFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFailure = msg
}

func (s *Session) setCandidates(batch domain.CandidateBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = domain.CandidateBatch{Questions: append([]domain.Question(nil), batch.Questions...)}
	s.lastFailure = ""
}

// takeCandidates removes the pending batch in one step, so a batch is handed to at most one apply.
func (s *Session) takeCandidates() domain.CandidateBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.candidates
	s.candidates = domain.CandidateBatch{}
	return batch
}

// restoreCandidates puts back a batch whose apply failed, unless a newer batch has arrived.
func (s *Session) restoreCandidates(batch domain.CandidateBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidates.Empty() {
		s.candidates = batch
	}
}

// clearSource drops the uploaded content and the last failure, leaving any batch in place.
func (s *Session) clearSource() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = ""
	s.lastFailure = ""
}

// clearGeneration drops the batch, the uploaded content and the last failure.
func (s *Session) clearGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = domain.CandidateBatch{}
	s.uploaded = ""
	s.lastFailure = ""
}

func (s *Session) generationStatus() domain.GenerationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := append([]domain.Question{}, s.candidates.Questions...)
	return domain.GenerationStatus{
		InFlight:       s.generating.Load(),
		UploadedChars:  len([]rune(s.uploaded)),
		Error:          s.lastFailure,
		Candidates:     candidates,
		CandidateCount: len(candidates),
	}
}

func (s *Session) subscribe(initial domain.Dashboard) (<-chan domain.Dashboard, func()) {
	ch := make(chan domain.Dashboard, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcast(d domain.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- d:
		default:
			// slow subscriber: drop its oldest queued update
			select {
			case <-ch:
			default:
			}
			ch <- d
		}
	}
}

func (s *Session) stopRotation() {
	if s.rotator != nil {
		s.rotator.Stop()
	}
}

func (s *Session) hasSubscribers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) > 0
}
