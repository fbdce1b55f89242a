package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates candidate session states as reported by the
// central system. The engine only ever performs the IN_PROGRESS → SUBMITTED
// transition; every other transition is external.
type SessionStatus string

const (
	SessionStatusWaiting    SessionStatus = "WAITING"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
	SessionStatusInvalid    SessionStatus = "INVALID"
)

// Terminal reports whether the status permits no further candidate action.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSubmitted || s == SessionStatusInvalid
}

// Session identifies one candidate's attempt at one exam instance.
// Read-only to the engine except for the terminal SUBMITTED transition.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	Status    SessionStatus `json:"status"`
	Candidate Candidate     `json:"candidate"`
	Exam      ExamMeta      `json:"exam"`
	// StartedAt is set by the external admission process when the session
	// leaves WAITING. Nil while waiting.
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Deadline returns the authoritative cutoff, startedAt + duration.
// The second return is false while the session has not started.
func (s *Session) Deadline() (time.Time, bool) {
	if s.StartedAt == nil {
		return time.Time{}, false
	}
	return s.StartedAt.Add(time.Duration(s.Exam.DurationSeconds) * time.Second), true
}

// Candidate carries display-only identity fields. The engine treats them
// as opaque strings for presentation.
type Candidate struct {
	Name         string `json:"name"`
	RollNumber   string `json:"rollNumber"`
	PhotoURL     string `json:"photoUrl,omitempty"`
	SignatureURL string `json:"signatureUrl,omitempty"`
}

// ExamMeta is the denormalized exam metadata returned by validation.
type ExamMeta struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
}
