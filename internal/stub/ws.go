package stub

import (
	"github.com/gin-gonic/gin"

	ws "github.com/examind/examtaker/internal/websocket"
)

// Events godoc
// WS /ws/v1/sessions/events?token=...
// Streams the waiting-room start event to a subscribed candidate. If the
// session has already started, the event is sent immediately.
func (h *Handler) Events(c *gin.Context) {
	id := sessionID(c)

	ch, cancel, err := h.store.Subscribe(id)
	if err != nil {
		h.failLifecycle(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reader loop: answers pings and detects the peer going away.
	readErr := make(chan error, 1)
	go func() {
		for {
			var env ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &env); err != nil {
				readErr <- err
				return
			}
			if env.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	select {
	case startedAt := <-ch:
		_ = ws.WriteTyped(conn, ws.StartedResponse{
			Event:     ws.EventSessionStarted,
			StartedAt: startedAt,
		})
		h.log.Debug().Str("session_id", id.String()).Msg("Start event delivered")
	case <-readErr:
	case <-c.Request.Context().Done():
	}
}
