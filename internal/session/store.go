package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/examind/examtaker/internal/model"
)

var (
	// ErrIndexOutOfRange is returned for a question index outside [0, total).
	ErrIndexOutOfRange = errors.New("question index out of range")

	// ErrUnknownOption is returned when an answer label is not one of the
	// question's present options.
	ErrUnknownOption = errors.New("option label not present on question")
)

// Store is the single source of truth for everything rendered and
// everything synced outward: one Response per loaded question, created
// empty at load time and never deleted. It is owned by exactly one running
// session and discarded on submission; durability is the autosave
// dispatcher's job, never the store's.
type Store struct {
	mu        sync.RWMutex
	questions []model.Question
	responses []model.Response
}

// NewStore builds a store over the loaded question set, creating the
// initial all-empty response entries.
func NewStore(questions []model.Question) *Store {
	responses := make([]model.Response, len(questions))
	for i, q := range questions {
		responses[i] = model.Response{QuestionID: q.ID}
	}
	return &Store{questions: questions, responses: responses}
}

// Total returns the number of loaded questions.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// Question returns the question at index i.
func (s *Store) Question(i int) (model.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[i], true
}

// Response returns a copy of the response at index i.
func (s *Store) Response(i int) (model.Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.responses) {
		return model.Response{}, false
	}
	return s.responses[i], true
}

// SetAnswer sets the selected answer for the question at index i. An empty
// label clears the answer; a candidate can un-answer a question.
func (s *Store) SetAnswer(i int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.responses) {
		return ErrIndexOutOfRange
	}
	if label != "" && !s.questions[i].HasOption(label) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, label)
	}
	s.responses[i].SelectedAnswer = label
	return nil
}

// ToggleReview flips the review flag for the question at index i without
// touching the selected answer.
func (s *Store) ToggleReview(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.responses) {
		return ErrIndexOutOfRange
	}
	s.responses[i].MarkedForReview = !s.responses[i].MarkedForReview
	return nil
}

// AddTime accrues wall-clock time spent on the question at index i.
// Advisory only; deadline enforcement never reads it.
func (s *Store) AddTime(i int, d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.responses) {
		return
	}
	s.responses[i].TimeSpentSeconds += int(d / time.Second)
}

// AnsweredCount returns how many questions currently have a non-empty answer.
func (s *Store) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.responses {
		if s.responses[i].Answered() {
			n++
		}
	}
	return n
}

// ReviewCount returns how many questions are currently marked for review.
func (s *Store) ReviewCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.responses {
		if s.responses[i].MarkedForReview {
			n++
		}
	}
	return n
}

// ProgressFraction returns answered/total in [0,1].
func (s *Store) ProgressFraction() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.responses) == 0 {
		return 0
	}
	n := 0
	for i := range s.responses {
		if s.responses[i].Answered() {
			n++
		}
	}
	return float64(n) / float64(len(s.responses))
}

// Snapshot returns a deep copy of the full response set. Every outbound
// payload, autosave and final submission alike, is built from a snapshot
// taken at call time, so in-flight network calls never observe later
// mutations.
func (s *Store) Snapshot() []model.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Response, len(s.responses))
	copy(out, s.responses)
	return out
}
