package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/examind/examtaker/internal/websocket"
)

// AwaitStart subscribes to the gateway's waiting-room stream and blocks
// until the session is started externally. Returns the server's start
// timestamp. Callers fall back to polling Validate when the stream cannot
// be established or drops.
func (c *Client) AwaitStart(ctx context.Context, token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, ErrTokenMissing
	}

	conn, _, err := gorilla.DefaultDialer.DialContext(ctx, c.eventsURL(token), nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dial events stream: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	// Unblock the read when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var ev websocket.StartedResponse
		if err := websocket.ReadJSON(conn, &ev); err != nil {
			if ctx.Err() != nil {
				return time.Time{}, ctx.Err()
			}
			return time.Time{}, fmt.Errorf("%w: events stream: %v", ErrUnavailable, err)
		}

		switch ev.Event {
		case websocket.EventSessionStarted:
			return time.Unix(ev.StartedAt, 0), nil
		case websocket.EventPong:
			// keepalive, ignore
		case websocket.EventError:
			return time.Time{}, fmt.Errorf("%w: events stream rejected", ErrUnavailable)
		}
	}
}

// eventsURL derives the WebSocket stream address from the REST base URL:
// http(s)://host/api/v1 → ws(s)://host/ws/v1/sessions/events?token=...
func (c *Client) eventsURL(token string) string {
	u := strings.TrimSuffix(c.baseURL, "/")
	u = strings.Replace(u, "/api/", "/ws/", 1)
	if strings.HasPrefix(u, "https://") {
		u = "wss://" + strings.TrimPrefix(u, "https://")
	} else {
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/sessions/events?token=" + url.QueryEscape(token)
}
