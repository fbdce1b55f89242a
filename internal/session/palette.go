package session

import "github.com/examind/examtaker/internal/model"

// QuestionState is the per-question visual status shown on the palette.
type QuestionState string

const (
	QuestionLocked     QuestionState = "LOCKED"
	QuestionAnswered   QuestionState = "ANSWERED"
	QuestionMarked     QuestionState = "MARKED_FOR_REVIEW"
	QuestionUnanswered QuestionState = "UNANSWERED"
)

// paletteState derives the visual status for one response. Locked (session
// submitted) overrides everything; an answer outranks a review mark.
func paletteState(r model.Response, locked bool) QuestionState {
	switch {
	case locked:
		return QuestionLocked
	case r.Answered():
		return QuestionAnswered
	case r.MarkedForReview:
		return QuestionMarked
	default:
		return QuestionUnanswered
	}
}

// Palette is a pure read over the store plus the lock flag: one entry per
// question, in question order.
func (e *Engine) Palette() []QuestionState {
	e.mu.Lock()
	store := e.store
	locked := e.phase == PhaseSubmitted
	e.mu.Unlock()

	if store == nil {
		return nil
	}
	snap := store.Snapshot()
	out := make([]QuestionState, len(snap))
	for i, r := range snap {
		out[i] = paletteState(r, locked)
	}
	return out
}
