package model

// Response is the candidate's current state for one question. Exactly one
// exists per loaded question, created empty at load time and never deleted.
type Response struct {
	QuestionID      int    `json:"questionId"`
	SelectedAnswer  string `json:"selectedAnswer"`
	MarkedForReview bool   `json:"markedForReview"`
	// TimeSpentSeconds is advisory bookkeeping; it plays no part in
	// deadline enforcement.
	TimeSpentSeconds int `json:"timeSpentSeconds"`
}

// Answered reports whether a non-empty answer is currently selected.
func (r *Response) Answered() bool {
	return r.SelectedAnswer != ""
}

// SaveRequest is the full-state autosave payload. Full state rather than a
// delta keeps the call idempotent under lost or reordered deliveries.
type SaveRequest struct {
	Responses []Response `json:"responses" binding:"required,dive"`
}

// SubmitRequest is the final submission payload, sent exactly once.
type SubmitRequest struct {
	Responses      []Response `json:"responses" binding:"required,dive"`
	TotalQuestions int        `json:"totalQuestions" binding:"required,min=1"`
}
