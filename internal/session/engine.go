package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/gateway"
	"github.com/examind/examtaker/internal/model"
)

// API is the surface of the central system the engine consumes: the four
// external operations. The gateway client is the production implementation;
// tests substitute fakes.
type API interface {
	Validate(ctx context.Context, token string) (*model.Session, error)
	Questions(ctx context.Context, token string) ([]model.Question, error)
	SaveResponses(ctx context.Context, token string, responses []model.Response) error
	Submit(ctx context.Context, token string, responses []model.Response, total int) error
}

// StartNotifier is optionally implemented by an API that can push the
// external "session started" trigger instead of being polled for it.
type StartNotifier interface {
	AwaitStart(ctx context.Context, token string) (time.Time, error)
}

// Phase is the engine's observable state.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseWaiting    Phase = "WAITING"
	PhaseLoadFailed Phase = "LOAD_FAILED"
	PhaseActive     Phase = "ACTIVE"
	PhaseSubmitted  Phase = "SUBMITTED"
	PhaseInvalid    Phase = "INVALID"
)

var (
	// ErrNotActive is returned for candidate actions outside an active exam.
	ErrNotActive = errors.New("session is not active")

	// ErrTimeExpired rejects answer mutation after the deadline passed;
	// only submission remains possible then.
	ErrTimeExpired = errors.New("exam time has expired")

	// ErrMissingStart marks a started session record without a start
	// timestamp; the deadline cannot be derived from it.
	ErrMissingStart = errors.New("started session has no start time")
)

// Options tune the engine. Zero values select production defaults.
type Options struct {
	Clock        Clock
	NewTicker    TickerFactory
	LowTime      time.Duration // urgency threshold, default 5 minutes
	PollInterval time.Duration // WAITING re-validate cadence, default 5s
	// OnTick receives the recomputed remaining time every countdown tick.
	// Called from the countdown goroutine.
	OnTick func(remaining time.Duration)
}

// Engine owns one candidate session end to end: validation, question load,
// the response store, autosave, the countdown, and the exactly-once
// submission. All candidate interactions are serialized through its lock;
// network calls are the only suspension points.
type Engine struct {
	api   API
	token string
	log   zerolog.Logger
	opts  Options

	mu        sync.Mutex
	phase     Phase
	sess      *model.Session
	store     *Store
	auto      *Autosave
	coord     *Coordinator
	countdown *Countdown

	focused   int
	focusedAt time.Time
}

// New creates an engine for one session token.
func New(api API, token string, log zerolog.Logger, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewWallTicker
	}
	if opts.LowTime <= 0 {
		opts.LowTime = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Engine{
		api:   api,
		token: token,
		log:   log.With().Str("component", "engine").Logger(),
		opts:  opts,
		phase: PhaseIdle,
	}
}

// Start validates the token and drives the session to its first stable
// phase: WAITING, ACTIVE (questions loaded, countdown running), SUBMITTED,
// INVALID, or LOAD_FAILED. A missing token is a terminal precondition
// failure surfaced before any network access.
func (e *Engine) Start(ctx context.Context) (Phase, error) {
	if e.token == "" {
		e.setPhase(PhaseInvalid)
		return PhaseInvalid, gateway.ErrTokenMissing
	}

	sess, err := e.api.Validate(ctx, e.token)
	if err != nil {
		if gateway.Terminal(err) {
			e.setPhase(PhaseInvalid)
			return PhaseInvalid, err
		}
		// Transport trouble: stay idle, the caller may try again.
		return e.Phase(), fmt.Errorf("start session: %w", err)
	}

	e.mu.Lock()
	e.sess = sess
	e.mu.Unlock()

	switch sess.Status {
	case model.SessionStatusWaiting:
		e.setPhase(PhaseWaiting)
		return PhaseWaiting, nil
	case model.SessionStatusSubmitted:
		// Terminal confirmation; re-invoking submission is a no-op.
		e.setPhase(PhaseSubmitted)
		return PhaseSubmitted, nil
	case model.SessionStatusInProgress:
		return e.beginExam(ctx)
	default:
		e.setPhase(PhaseInvalid)
		return PhaseInvalid, gateway.ErrSessionInvalid
	}
}

// AwaitStart blocks while the session is WAITING until the external
// admission process starts it. It prefers the push stream when the API
// offers one and falls back to polling validation; the engine never
// transitions out of WAITING on its own.
func (e *Engine) AwaitStart(ctx context.Context) (Phase, error) {
	if e.Phase() != PhaseWaiting {
		return e.Phase(), ErrNotActive
	}

	if n, ok := e.api.(StartNotifier); ok {
		startedAt, err := n.AwaitStart(ctx, e.token)
		if err == nil {
			e.mu.Lock()
			t := startedAt
			e.sess.Status = model.SessionStatusInProgress
			e.sess.StartedAt = &t
			e.mu.Unlock()
			return e.beginExam(ctx)
		}
		if ctx.Err() != nil {
			return PhaseWaiting, ctx.Err()
		}
		e.log.Warn().Err(err).Msg("Start stream unavailable, falling back to polling")
	}

	t := e.opts.NewTicker(e.opts.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return PhaseWaiting, ctx.Err()
		case <-t.C():
			sess, err := e.api.Validate(ctx, e.token)
			if err != nil {
				if gateway.Terminal(err) {
					e.setPhase(PhaseInvalid)
					return PhaseInvalid, err
				}
				continue // transient; keep waiting
			}

			switch sess.Status {
			case model.SessionStatusWaiting:
				continue
			case model.SessionStatusInProgress:
				e.mu.Lock()
				e.sess = sess
				e.mu.Unlock()
				return e.beginExam(ctx)
			case model.SessionStatusSubmitted:
				e.setPhase(PhaseSubmitted)
				return PhaseSubmitted, nil
			default:
				e.setPhase(PhaseInvalid)
				return PhaseInvalid, gateway.ErrSessionInvalid
			}
		}
	}
}

// RetryLoad re-attempts the question fetch after a load failure. Retry is
// an explicit candidate action, never an automatic poll.
func (e *Engine) RetryLoad(ctx context.Context) (Phase, error) {
	if e.Phase() != PhaseLoadFailed {
		return e.Phase(), ErrNotActive
	}
	return e.beginExam(ctx)
}

// beginExam loads the question set exactly once, builds the store, and
// starts the countdown against the fixed deadline.
func (e *Engine) beginExam(ctx context.Context) (Phase, error) {
	deadline, ok := e.session().Deadline()
	if !ok {
		e.setPhase(PhaseInvalid)
		return PhaseInvalid, ErrMissingStart
	}

	questions, err := e.api.Questions(ctx, e.token)
	if err != nil {
		// Blocking for the candidate; no placeholder questions are ever
		// fabricated for a real session.
		e.setPhase(PhaseLoadFailed)
		return PhaseLoadFailed, fmt.Errorf("load question set: %w", err)
	}

	e.mu.Lock()
	e.store = NewStore(questions)
	e.auto = NewAutosave(e.api, e.token, e.log)
	e.coord = NewCoordinator(e.api, e.token, e.log)
	e.countdown = NewCountdown(deadline, e.opts.LowTime, e.opts.Clock, e.opts.NewTicker)
	e.focused = 0
	e.focusedAt = e.opts.Clock()
	e.phase = PhaseActive
	cd := e.countdown
	e.mu.Unlock()

	e.log.Info().
		Int("questions", len(questions)).
		Time("deadline", deadline).
		Msg("Exam active")

	cd.Start(e.opts.OnTick, e.expire)
	return PhaseActive, nil
}

// expire is the countdown's terminal callback: forced submission with no
// confirmation step.
func (e *Engine) expire() {
	e.log.Info().Msg("Countdown expired, forcing submission")
	if err := e.submit(context.Background(), TriggerTimeout); err != nil && !errors.Is(err, ErrSubmitInFlight) {
		// Failed forced submission stays retryable by the candidate.
		e.log.Error().Err(err).Msg("Forced submission failed")
	}
}

// SetAnswer records the answer for the focused question and dispatches an
// autosave. An empty label clears the answer.
func (e *Engine) SetAnswer(label string) error {
	return e.mutate(func(s *Store, focused int) error {
		return s.SetAnswer(focused, label)
	})
}

// ToggleReview flips the review flag on the focused question and
// dispatches an autosave.
func (e *Engine) ToggleReview() error {
	return e.mutate(func(s *Store, focused int) error {
		return s.ToggleReview(focused)
	})
}

// mutate runs one serialized store mutation and fires the autosave with a
// snapshot taken before the lock is released, so the payload always
// reflects the store at dispatch time.
func (e *Engine) mutate(fn func(s *Store, focused int) error) error {
	e.mu.Lock()
	if e.phase != PhaseActive {
		e.mu.Unlock()
		return ErrNotActive
	}
	if e.countdown.State() == CountdownExpired {
		e.mu.Unlock()
		return ErrTimeExpired
	}
	if err := fn(e.store, e.focused); err != nil {
		e.mu.Unlock()
		return err
	}
	snapshot := e.store.Snapshot()
	auto := e.auto
	e.mu.Unlock()

	auto.Dispatch(snapshot)
	return nil
}

// Jump moves focus to index i, clamped to [0, total-1], accruing time
// spent on the question being left.
func (e *Engine) Jump(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseActive {
		return
	}

	total := e.store.Total()
	if i < 0 {
		i = 0
	}
	if i > total-1 {
		i = total - 1
	}

	now := e.opts.Clock()
	e.store.AddTime(e.focused, now.Sub(e.focusedAt))
	e.focused = i
	e.focusedAt = now
}

// Next advances focus by one question.
func (e *Engine) Next() { e.Jump(e.Focused() + 1) }

// Prev moves focus back by one question.
func (e *Engine) Prev() { e.Jump(e.Focused() - 1) }

// SubmitManual performs the candidate-initiated submission. The explicit
// confirmation step is the presentation layer's responsibility; by the
// time this is called the candidate has confirmed.
func (e *Engine) SubmitManual(ctx context.Context) error {
	return e.submit(ctx, TriggerManual)
}

func (e *Engine) submit(ctx context.Context, trigger Trigger) error {
	e.mu.Lock()
	switch e.phase {
	case PhaseActive:
		// proceed
	case PhaseSubmitted:
		e.mu.Unlock()
		return ErrSubmitInFlight
	default:
		e.mu.Unlock()
		return ErrNotActive
	}

	now := e.opts.Clock()
	e.store.AddTime(e.focused, now.Sub(e.focusedAt))
	e.focusedAt = now

	snapshot := e.store.Snapshot()
	total := e.store.Total()
	coord := e.coord
	e.mu.Unlock()

	// The coordinator's admission check is the exactly-once guard shared
	// by the manual and timeout paths.
	if err := coord.Submit(ctx, trigger, snapshot, total); err != nil {
		return err
	}

	e.mu.Lock()
	e.phase = PhaseSubmitted
	e.sess.Status = model.SessionStatusSubmitted
	cd := e.countdown
	e.mu.Unlock()

	if cd != nil {
		cd.Stop()
	}
	return nil
}

// Close tears the session view down: the countdown is stopped and
// in-flight autosaves are drained. The store is simply discarded;
// durability lives behind the gateway.
func (e *Engine) Close() {
	e.mu.Lock()
	cd := e.countdown
	auto := e.auto
	e.mu.Unlock()

	if cd != nil {
		cd.Stop()
	}
	if auto != nil {
		auto.Wait()
	}
}

// ─── Read accessors ─────────────────────────────────────────────────────────

// Phase returns the engine's current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = p
}

// Session returns the validated session record.
func (e *Engine) Session() *model.Session {
	return e.session()
}

func (e *Engine) session() *model.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// Store exposes the response store for derived queries. Nil until active.
func (e *Engine) Store() *Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store
}

// Focused returns the currently focused question index.
func (e *Engine) Focused() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

// Remaining returns the recomputed remaining time, zero when no countdown
// is running.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	cd := e.countdown
	e.mu.Unlock()
	if cd == nil {
		return 0
	}
	return cd.Remaining()
}

// LowTime reports whether the urgency presentation threshold is reached.
func (e *Engine) LowTime() bool {
	e.mu.Lock()
	cd := e.countdown
	e.mu.Unlock()
	return cd != nil && cd.LowTime()
}

// SubmitState returns the coordinator state, SubmitIdle before activation.
func (e *Engine) SubmitState() SubmitState {
	e.mu.Lock()
	coord := e.coord
	e.mu.Unlock()
	if coord == nil {
		return SubmitIdle
	}
	return coord.State()
}
