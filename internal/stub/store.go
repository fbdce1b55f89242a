package stub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examind/examtaker/internal/model"
)

var (
	errNoSession  = errors.New("session not found")
	errNotStarted = errors.New("session not started")
	errSubmitted  = errors.New("session already submitted")
	errNotWaiting = errors.New("session is not waiting")
)

// record is one admitted session with all of its server-side state.
type record struct {
	session   model.Session
	questions []model.Question

	// Last accepted full-state save, with server receipt time: last write
	// wins by receipt order, never by send order.
	responses []model.Response
	savedAt   time.Time

	// final holds the submitted payload once the session closes.
	final []model.Response

	// waiters are waiting-room subscribers notified with the start time.
	waiters map[chan int64]struct{}
}

// Store is the stub's in-memory session table. It deliberately has no
// durability: this process IS the development stand-in for the central
// system, nothing more.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*record
	clock    func() time.Time
}

// NewStore creates an empty store.
func NewStore(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		sessions: make(map[uuid.UUID]*record),
		clock:    clock,
	}
}

// Admit registers a new WAITING session for the candidate and exam.
func (s *Store) Admit(candidate model.Candidate, exam model.ExamMeta, questions []model.Question) model.Session {
	sess := model.Session{
		ID:        uuid.New(),
		Status:    model.SessionStatusWaiting,
		Candidate: candidate,
		Exam:      exam,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &record{
		session:   sess,
		questions: questions,
		waiters:   make(map[chan int64]struct{}),
	}
	return sess
}

// Start performs the external WAITING → IN_PROGRESS transition and wakes
// every waiting-room subscriber.
func (s *Store) Start(id uuid.UUID) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return model.Session{}, errNoSession
	}
	if rec.session.Status != model.SessionStatusWaiting {
		return model.Session{}, errNotWaiting
	}

	now := s.clock()
	rec.session.Status = model.SessionStatusInProgress
	rec.session.StartedAt = &now

	for ch := range rec.waiters {
		select {
		case ch <- now.Unix():
		default:
		}
	}
	return rec.session, nil
}

// Session returns the session record for validation.
func (s *Store) Session(id uuid.UUID) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return model.Session{}, errNoSession
	}
	return rec.session, nil
}

// Questions returns the ordered question set of a started session. The
// slice is shared and never mutated after admission, so the order is
// stable across refetches.
func (s *Store) Questions(id uuid.UUID) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, errNoSession
	}
	switch rec.session.Status {
	case model.SessionStatusWaiting:
		return nil, errNotStarted
	case model.SessionStatusSubmitted:
		return nil, errSubmitted
	}
	return rec.questions, nil
}

// Save accepts a full-state response set. The receipt timestamp is
// recorded server-side; overlapping saves resolve last-write-wins by
// arrival, which is exactly handler execution order here.
func (s *Store) Save(id uuid.UUID, responses []model.Response) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return time.Time{}, errNoSession
	}
	switch rec.session.Status {
	case model.SessionStatusWaiting:
		return time.Time{}, errNotStarted
	case model.SessionStatusSubmitted:
		return time.Time{}, errSubmitted
	}

	rec.responses = responses
	rec.savedAt = s.clock()
	return rec.savedAt, nil
}

// Submit closes the session with its final payload, exactly once.
func (s *Store) Submit(id uuid.UUID, responses []model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return errNoSession
	}
	switch rec.session.Status {
	case model.SessionStatusWaiting:
		return errNotStarted
	case model.SessionStatusSubmitted:
		return errSubmitted
	}

	rec.final = responses
	rec.session.Status = model.SessionStatusSubmitted
	return nil
}

// Subscribe registers a waiting-room subscriber. The returned channel
// receives the start time (unix seconds) once; if the session already
// started, it is primed immediately.
func (s *Store) Subscribe(id uuid.UUID) (<-chan int64, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, nil, errNoSession
	}

	ch := make(chan int64, 1)
	if rec.session.StartedAt != nil {
		ch <- rec.session.StartedAt.Unix()
	} else {
		rec.waiters[ch] = struct{}{}
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(rec.waiters, ch)
	}
	return ch, cancel, nil
}

// Final returns the submitted payload, for inspection in tests.
func (s *Store) Final(id uuid.UUID) ([]model.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok || rec.session.Status != model.SessionStatusSubmitted {
		return nil, false
	}
	return rec.final, true
}
