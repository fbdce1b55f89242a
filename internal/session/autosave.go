package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/model"
)

// Autosave pushes the full response set outward after every store mutation.
// Full state rather than deltas keeps the save idempotent: a later call
// supersedes an earlier one regardless of network arrival order, so no
// ordering is enforced between overlapping dispatches.
//
// A failed save is deliberately swallowed from the candidate's perspective;
// the next mutation's dispatch is the de facto retry. Correctness depends
// on the final state reaching the server before submission, not on every
// intermediate state arriving.
type Autosave struct {
	api   API
	token string
	log   zerolog.Logger
	wg    sync.WaitGroup
}

// NewAutosave creates a dispatcher bound to one session token.
func NewAutosave(api API, token string, log zerolog.Logger) *Autosave {
	return &Autosave{
		api:   api,
		token: token,
		log:   log.With().Str("component", "autosave").Logger(),
	}
}

// Dispatch fires one save carrying the snapshot the caller took at
// mutation time. Never blocks candidate interaction on network latency.
func (a *Autosave) Dispatch(snapshot []model.Response) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.api.SaveResponses(context.Background(), a.token, snapshot); err != nil {
			a.log.Warn().Err(err).Int("responses", len(snapshot)).
				Msg("Autosave failed; next mutation retries")
			return
		}
		a.log.Debug().Int("responses", len(snapshot)).Msg("Autosave acknowledged")
	}()
}

// Wait blocks until all in-flight saves have returned. Used on teardown;
// results of superseded calls are simply ignored.
func (a *Autosave) Wait() {
	a.wg.Wait()
}
