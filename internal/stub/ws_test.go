package stub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	ws "github.com/examind/examtaker/internal/websocket"
)

func dialEvents(t *testing.T, srv *httptest.Server, token string) *gorilla.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws/v1/sessions/events?token=" + token
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	return conn
}

func TestEventsStreamDeliversStart(t *testing.T) {
	g := newTestGateway()
	srv := httptest.NewServer(g.router)
	defer srv.Close()

	token := g.admit(t)
	conn := dialEvents(t, srv, token)
	defer conn.Close()

	// Subscriber answers pings while waiting.
	if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong ws.PongResponse
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Event != ws.EventPong {
		t.Fatalf("expected pong, got %s", pong.Event)
	}

	// The invigilator starts the exam; the subscriber is woken with the
	// start timestamp.
	if code, _ := g.call(t, http.MethodPost, "/api/v1/sessions/start", token, nil); code != http.StatusOK {
		t.Fatalf("start failed")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var started ws.StartedResponse
	if err := conn.ReadJSON(&started); err != nil {
		t.Fatalf("read start event: %v", err)
	}
	if started.Event != ws.EventSessionStarted {
		t.Fatalf("expected session_started, got %s", started.Event)
	}
	if started.StartedAt != g.clock.Unix() {
		t.Fatalf("expected start time %d, got %d", g.clock.Unix(), started.StartedAt)
	}
}

func TestEventsStreamPrimedForStartedSession(t *testing.T) {
	g := newTestGateway()
	srv := httptest.NewServer(g.router)
	defer srv.Close()

	token := g.admit(t)
	if code, _ := g.call(t, http.MethodPost, "/api/v1/sessions/start", token, nil); code != http.StatusOK {
		t.Fatalf("start failed")
	}

	// Subscribing after the start must deliver the event immediately.
	conn := dialEvents(t, srv, token)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var started ws.StartedResponse
	if err := conn.ReadJSON(&started); err != nil {
		t.Fatalf("read primed start event: %v", err)
	}
	if started.Event != ws.EventSessionStarted {
		t.Fatalf("expected session_started, got %s", started.Event)
	}
}

func TestEventsStreamRejectsBadToken(t *testing.T) {
	g := newTestGateway()
	srv := httptest.NewServer(g.router)
	defer srv.Close()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws/v1/sessions/events?token=garbage"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for a bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on upgrade, got %+v", resp)
	}
}
