package session

import (
	"testing"

	"github.com/examind/examtaker/internal/gateway"
	"github.com/examind/examtaker/internal/model"
)

func TestAutosaveDeliversFullSnapshot(t *testing.T) {
	api := newFakeAPI(nil, nil)
	a := NewAutosave(api, "tok-1", testLogger())

	a.Dispatch([]model.Response{
		{QuestionID: 1, SelectedAnswer: "B"},
		{QuestionID: 2, MarkedForReview: true},
	})
	a.Wait()

	if got := api.saveCount(); got != 1 {
		t.Fatalf("expected 1 save, got %d", got)
	}
	last := api.lastSave()
	if len(last) != 2 || last[0].SelectedAnswer != "B" || !last[1].MarkedForReview {
		t.Fatalf("unexpected save payload: %+v", last)
	}
}

func TestAutosaveSwallowsFailureAndNextDispatchRetries(t *testing.T) {
	api := newFakeAPI(nil, nil)
	api.setSaveErr(gateway.ErrUnavailable)
	a := NewAutosave(api, "tok-1", testLogger())

	// Failure is invisible to the caller: Dispatch never returns an error
	// and Wait returns normally.
	a.Dispatch([]model.Response{{QuestionID: 1, SelectedAnswer: "A"}})
	a.Wait()
	if got := api.saveCount(); got != 0 {
		t.Fatalf("failed save was recorded as delivered")
	}

	// The next mutation's dispatch is the retry, carrying current state.
	api.setSaveErr(nil)
	a.Dispatch([]model.Response{{QuestionID: 1, SelectedAnswer: "C"}})
	a.Wait()
	if got := api.saveCount(); got != 1 {
		t.Fatalf("expected 1 save after retry, got %d", got)
	}
	if last := api.lastSave(); last[0].SelectedAnswer != "C" {
		t.Fatalf("retry did not carry current state: %+v", last)
	}
}
