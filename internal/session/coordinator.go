package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/model"
)

// ErrSubmitInFlight is returned when a submission is already in flight or
// has succeeded. The manual and timeout paths can race at the exact expiry
// boundary; whichever loses the admission check receives this.
var ErrSubmitInFlight = errors.New("submission already in flight or completed")

// SubmitState enumerates the coordinator lifecycle.
type SubmitState string

const (
	SubmitIdle     SubmitState = "IDLE"
	SubmitInFlight SubmitState = "SUBMITTING"
	SubmitDone     SubmitState = "SUBMITTED"
	SubmitFailed   SubmitState = "FAILED"
)

// Trigger identifies what initiated a submission.
type Trigger string

const (
	// TriggerManual requires an explicit candidate confirmation upstream.
	TriggerManual Trigger = "manual"
	// TriggerTimeout fires unconditionally at countdown expiry.
	TriggerTimeout Trigger = "timeout"
)

// Coordinator performs the terminal state transition: the final payload is
// sent exactly once no matter how termination was triggered. On failure the
// guard is released so a retry can re-attempt; an unconfirmed submission
// must never strand the candidate in a dead session.
type Coordinator struct {
	mu    sync.Mutex
	state SubmitState
	api   API
	token string
	log   zerolog.Logger
}

// NewCoordinator creates a coordinator bound to one session token.
func NewCoordinator(api API, token string, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		state: SubmitIdle,
		api:   api,
		token: token,
		log:   log.With().Str("component", "submission").Logger(),
	}
}

// Submit sends the final payload once. Concurrent and repeated calls after
// admission return ErrSubmitInFlight without issuing a second outbound
// call. A FAILED previous attempt does not block re-admission.
func (c *Coordinator) Submit(ctx context.Context, trigger Trigger, responses []model.Response, total int) error {
	c.mu.Lock()
	if c.state == SubmitInFlight || c.state == SubmitDone {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.state = SubmitInFlight
	c.mu.Unlock()

	c.log.Info().
		Str("trigger", string(trigger)).
		Int("total_questions", total).
		Msg("Submitting final responses")

	err := c.api.Submit(ctx, c.token, responses, total)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// Release the guard: the candidate must be able to retry.
		c.state = SubmitFailed
		c.log.Error().Err(err).Str("trigger", string(trigger)).Msg("Submission failed")
		return fmt.Errorf("submit responses: %w", err)
	}

	c.state = SubmitDone
	c.log.Info().Str("trigger", string(trigger)).Msg("Submission acknowledged")
	return nil
}

// State returns the current coordinator state.
func (c *Coordinator) State() SubmitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
