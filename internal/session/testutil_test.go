package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/model"
)

// fakeClock is a hand-advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// manualTicker delivers ticks only when the test sends them.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 64)}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

func (t *manualTicker) Tick() { t.ch <- time.Time{} }

// fakeAPI implements API with scriptable failures and full call recording.
type fakeAPI struct {
	mu sync.Mutex

	session   *model.Session
	questions []model.Question

	validateErr  error
	questionsErr error
	saveErr      error
	submitErr    error

	validateCalls int
	saves         [][]model.Response
	submits       [][]model.Response
	submitTotals  []int

	// submitted receives one value per outbound submit call.
	submitted chan struct{}
}

func newFakeAPI(sess *model.Session, questions []model.Question) *fakeAPI {
	return &fakeAPI{
		session:   sess,
		questions: questions,
		submitted: make(chan struct{}, 8),
	}
}

func (f *fakeAPI) Validate(ctx context.Context, token string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	cp := *f.session
	return &cp, nil
}

func (f *fakeAPI) Questions(ctx context.Context, token string) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	return f.questions, nil
}

func (f *fakeAPI) SaveResponses(ctx context.Context, token string, responses []model.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := make([]model.Response, len(responses))
	copy(cp, responses)
	f.saves = append(f.saves, cp)
	return nil
}

func (f *fakeAPI) Submit(ctx context.Context, token string, responses []model.Response, total int) error {
	f.mu.Lock()
	if f.submitErr != nil {
		err := f.submitErr
		f.mu.Unlock()
		return err
	}
	cp := make([]model.Response, len(responses))
	copy(cp, responses)
	f.submits = append(f.submits, cp)
	f.submitTotals = append(f.submitTotals, total)
	f.mu.Unlock()

	f.submitted <- struct{}{}
	return nil
}

func (f *fakeAPI) setSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

func (f *fakeAPI) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *fakeAPI) setQuestionsErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionsErr = err
}

func (f *fakeAPI) setSession(sess *model.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = sess
}

func (f *fakeAPI) validated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateCalls
}

func (f *fakeAPI) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func (f *fakeAPI) lastSave() []model.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func (f *fakeAPI) lastSubmit() []model.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submits) == 0 {
		return nil
	}
	return f.submits[len(f.submits)-1]
}

// twoQuestions is the standard fixture: Q1 and Q2 with options A-D.
func twoQuestions() []model.Question {
	abcd := []model.Option{
		{Label: "A", Text: "first"},
		{Label: "B", Text: "second"},
		{Label: "C", Text: "third"},
		{Label: "D", Text: "fourth"},
	}
	return []model.Question{
		{ID: 1, Text: "What is 2+2?", Options: abcd},
		{ID: 2, Text: "What is 3+3?", Options: abcd},
	}
}

func startedSession(startedAt time.Time, durationSeconds int) *model.Session {
	t := startedAt
	return &model.Session{
		Status:    model.SessionStatusInProgress,
		Candidate: model.Candidate{Name: "Asha Verma", RollNumber: "R-104"},
		Exam:      model.ExamMeta{Title: "General Aptitude", DurationSeconds: durationSeconds},
		StartedAt: &t,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
