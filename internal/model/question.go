package model

// OptionLabels are the only labels a choice may carry. A question may have
// fewer than four options; labels present are always a subset of these.
var OptionLabels = []string{"A", "B", "C", "D"}

// Question is a single exam question. Immutable once loaded; the fetch
// order is the addressing scheme for responses and the palette, so it is
// never reshuffled mid-session.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Option is one labeled choice on a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// HasOption reports whether the question carries a choice with the label.
func (q *Question) HasOption(label string) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}
