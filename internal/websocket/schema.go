package websocket

// Wire schema for the waiting-room event stream. The stub gateway is the
// server side; the gateway client subscribes while a session is WAITING.

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventSessionStarted announces the external WAITING → IN_PROGRESS
	// transition. The engine never performs this transition itself.
	EventSessionStarted Event = "session_started"
	EventError          Event = "error"
	EventPong           Event = "pong"
)

// StartedResponse carries the server's start timestamp so the subscriber
// can compute the deadline without another validate round trip.
type StartedResponse struct {
	Event     Event `json:"event"`
	StartedAt int64 `json:"started_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
