package stub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/config"
	"github.com/examind/examtaker/internal/model"
	"github.com/examind/examtaker/internal/response"
	"github.com/examind/examtaker/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

type testGateway struct {
	router *gin.Engine
	store  *Store
	clock  *time.Time
}

func newTestGateway() *testGateway {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	clock := &now

	store := NewStore(func() time.Time { return *clock })
	tokens := NewTokenIssuer("test-secret")
	h := NewHandler(store, tokens, zerolog.Nop(), nil)
	router := SetupRouter(h, &config.Config{GinMode: gin.TestMode})

	return &testGateway{router: router, store: store, clock: clock}
}

// call performs one request and decodes the response envelope.
func (g *testGateway) call(t *testing.T, method, path, token string, body interface{}) (int, response.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	var env response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope for %s %s: %v (body %q)", method, path, err, w.Body.String())
	}
	return w.Code, env
}

func admitBody() AdmitRequest {
	return AdmitRequest{
		CandidateName:   "Asha Verma",
		RollNumber:      "R-104",
		ExamTitle:       "General Aptitude",
		DurationSeconds: 3600,
		Questions: []AdmitQuestion{
			{ID: 1, Text: "What is 2+2?", Options: []AdmitQuestionOption{
				{Label: "A", Text: "3"}, {Label: "B", Text: "4"},
			}},
			{ID: 2, Text: "What is 3+3?", Options: []AdmitQuestionOption{
				{Label: "A", Text: "5"}, {Label: "B", Text: "6"},
			}},
		},
	}
}

// admit seeds one session and returns its bearer token.
func (g *testGateway) admit(t *testing.T) string {
	t.Helper()
	code, env := g.call(t, http.MethodPost, "/api/v1/sessions", "", admitBody())
	if code != http.StatusCreated {
		t.Fatalf("admit: expected 201, got %d (%+v)", code, env.Error)
	}
	data := env.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("admit returned no token")
	}
	return token
}

func errCode(env response.Response) response.ErrCode {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestSessionLifecycle(t *testing.T) {
	g := newTestGateway()
	token := g.admit(t)

	// Freshly admitted: WAITING, questions are not served yet.
	code, env := g.call(t, http.MethodGet, "/api/v1/sessions/validate", token, nil)
	if code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", code)
	}
	sessData := env.Data.(map[string]interface{})["session"].(map[string]interface{})
	if sessData["status"] != string(model.SessionStatusWaiting) {
		t.Fatalf("expected WAITING, got %v", sessData["status"])
	}

	code, env = g.call(t, http.MethodGet, "/api/v1/sessions/questions", token, nil)
	if code != http.StatusConflict || errCode(env) != response.ErrSessionNotStarted {
		t.Fatalf("questions before start: expected 409 SESSION_NOT_STARTED, got %d %s", code, errCode(env))
	}

	// Invigilator starts the exam.
	code, _ = g.call(t, http.MethodPost, "/api/v1/sessions/start", token, nil)
	if code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", code)
	}

	code, env = g.call(t, http.MethodGet, "/api/v1/sessions/validate", token, nil)
	if code != http.StatusOK {
		t.Fatalf("validate after start: expected 200, got %d", code)
	}
	sessData = env.Data.(map[string]interface{})["session"].(map[string]interface{})
	if sessData["status"] != string(model.SessionStatusInProgress) {
		t.Fatalf("expected IN_PROGRESS, got %v", sessData["status"])
	}
	if sessData["startedAt"] == nil {
		t.Fatalf("started session has no startedAt")
	}

	// Starting twice is idempotent for an IN_PROGRESS session.
	code, _ = g.call(t, http.MethodPost, "/api/v1/sessions/start", token, nil)
	if code != http.StatusOK {
		t.Fatalf("repeat start: expected 200, got %d", code)
	}

	code, env = g.call(t, http.MethodGet, "/api/v1/sessions/questions", token, nil)
	if code != http.StatusOK {
		t.Fatalf("questions: expected 200, got %d (%+v)", code, env.Error)
	}
	questions := env.Data.(map[string]interface{})["questions"].([]interface{})
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	// Autosave round trip: the receipt timestamp comes back.
	save := model.SaveRequest{Responses: []model.Response{
		{QuestionID: 1, SelectedAnswer: "B"},
		{QuestionID: 2, MarkedForReview: true},
	}}
	code, env = g.call(t, http.MethodPut, "/api/v1/sessions/responses", token, save)
	if code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d (%+v)", code, env.Error)
	}
	if env.Data.(map[string]interface{})["receivedAt"] == nil {
		t.Fatalf("save reply carries no receipt timestamp")
	}

	// Submission closes the session exactly once.
	submit := model.SubmitRequest{
		Responses: []model.Response{
			{QuestionID: 1, SelectedAnswer: "B"},
			{QuestionID: 2, MarkedForReview: true},
		},
		TotalQuestions: 2,
	}
	code, _ = g.call(t, http.MethodPost, "/api/v1/sessions/submit", token, submit)
	if code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", code)
	}

	code, env = g.call(t, http.MethodPost, "/api/v1/sessions/submit", token, submit)
	if code != http.StatusConflict || errCode(env) != response.ErrAlreadySubmitted {
		t.Fatalf("repeat submit: expected 409 SESSION_ALREADY_SUBMITTED, got %d %s", code, errCode(env))
	}

	// A closed session rejects further saves too.
	code, env = g.call(t, http.MethodPut, "/api/v1/sessions/responses", token, save)
	if code != http.StatusConflict || errCode(env) != response.ErrAlreadySubmitted {
		t.Fatalf("save after submit: expected 409 SESSION_ALREADY_SUBMITTED, got %d %s", code, errCode(env))
	}
}

func TestAuthRejection(t *testing.T) {
	g := newTestGateway()

	code, env := g.call(t, http.MethodGet, "/api/v1/sessions/validate", "", nil)
	if code != http.StatusUnauthorized || errCode(env) != response.ErrTokenRequired {
		t.Fatalf("missing token: expected 401 TOKEN_REQUIRED, got %d %s", code, errCode(env))
	}

	code, env = g.call(t, http.MethodGet, "/api/v1/sessions/validate", "not-a-jwt", nil)
	if code != http.StatusUnauthorized || errCode(env) != response.ErrTokenInvalid {
		t.Fatalf("garbage token: expected 401 TOKEN_INVALID, got %d %s", code, errCode(env))
	}

	// A well-formed token signed with a different secret is still rejected.
	other := NewTokenIssuer("different-secret")
	sess := g.store.Admit(model.Candidate{Name: "x", RollNumber: "y"}, model.ExamMeta{Title: "t", DurationSeconds: 60}, nil)
	forged, err := other.Mint(sess.ID, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	code, env = g.call(t, http.MethodGet, "/api/v1/sessions/validate", forged, nil)
	if code != http.StatusUnauthorized || errCode(env) != response.ErrTokenInvalid {
		t.Fatalf("forged token: expected 401 TOKEN_INVALID, got %d %s", code, errCode(env))
	}
}

func TestAdmitValidation(t *testing.T) {
	g := newTestGateway()

	body := admitBody()
	body.Questions[0].Options[0].Label = "Z"
	code, env := g.call(t, http.MethodPost, "/api/v1/sessions", "", body)
	if code != http.StatusBadRequest || errCode(env) != response.ErrValidation {
		t.Fatalf("bad option label: expected 400 VALIDATION_ERROR, got %d %s", code, errCode(env))
	}
	if len(env.Error.Fields) == 0 {
		t.Fatalf("expected field-level details, got none")
	}

	body = admitBody()
	body.DurationSeconds = 0
	code, env = g.call(t, http.MethodPost, "/api/v1/sessions", "", body)
	if code != http.StatusBadRequest || errCode(env) != response.ErrValidation {
		t.Fatalf("zero duration: expected 400 VALIDATION_ERROR, got %d %s", code, errCode(env))
	}
}

func TestQuestionOrderStableAcrossRefetches(t *testing.T) {
	g := newTestGateway()
	token := g.admit(t)
	if code, _ := g.call(t, http.MethodPost, "/api/v1/sessions/start", token, nil); code != http.StatusOK {
		t.Fatalf("start failed")
	}

	ids := func() []float64 {
		_, env := g.call(t, http.MethodGet, "/api/v1/sessions/questions", token, nil)
		raw := env.Data.(map[string]interface{})["questions"].([]interface{})
		out := make([]float64, len(raw))
		for i, q := range raw {
			out[i] = q.(map[string]interface{})["id"].(float64)
		}
		return out
	}

	first := ids()
	second := ids()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("question order changed between fetches: %v vs %v", first, second)
		}
	}
}

func TestStubMarkerOnEveryReply(t *testing.T) {
	g := newTestGateway()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	if w.Header().Get("X-Exam-Stub") != "development" {
		t.Fatalf("health reply missing the stub marker header")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("reply missing X-Request-ID")
	}
}
