package stub

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/model"
	"github.com/examind/examtaker/internal/response"
	"github.com/examind/examtaker/internal/validator"
)

// ContextKeySessionID is the Gin context key for the verified session ID.
const ContextKeySessionID = "session_id"

// Handler implements the four external operations plus the admission and
// start endpoints the real central system performs elsewhere. Development
// stand-in only; every reply carries the X-Exam-Stub marker.
type Handler struct {
	store    *Store
	tokens   *TokenIssuer
	log      zerolog.Logger
	upgrader gorilla.Upgrader
}

// NewHandler creates a stub handler set.
func NewHandler(store *Store, tokens *TokenIssuer, log zerolog.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		store:    store,
		tokens:   tokens,
		log:      log.With().Str("component", "stub_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ─── Admission (dev-only surface) ───────────────────────────────────────────

// AdmitQuestionOption is one labeled choice in an admission payload.
type AdmitQuestionOption struct {
	Label string `json:"label" binding:"required,oneof=A B C D"`
	Text  string `json:"text" binding:"required,max=1000"`
}

// AdmitQuestion is one question in an admission payload.
type AdmitQuestion struct {
	ID      int                   `json:"id" binding:"required,min=1"`
	Text    string                `json:"text" binding:"required,min=1,max=2000"`
	Options []AdmitQuestionOption `json:"options" binding:"required,min=1,max=4,dive"`
}

// AdmitRequest seeds one candidate session. In production admission is an
// entirely separate system; this exists so the full candidate journey can
// be exercised against the stub.
type AdmitRequest struct {
	CandidateName   string          `json:"candidateName" binding:"required,min=1,max=120"`
	RollNumber      string          `json:"rollNumber" binding:"required,min=1,max=40"`
	ExamTitle       string          `json:"examTitle" binding:"required,min=3,max=255"`
	DurationSeconds int             `json:"durationSeconds" binding:"required,min=1,max=28800"`
	Questions       []AdmitQuestion `json:"questions" binding:"required,min=1,dive"`
}

// Admit godoc
// POST /api/v1/sessions
// Registers a WAITING session and returns its bearer token.
func (h *Handler) Admit(c *gin.Context) {
	var req AdmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		opts := make([]model.Option, len(q.Options))
		for j, o := range q.Options {
			opts[j] = model.Option{Label: o.Label, Text: o.Text}
		}
		questions[i] = model.Question{ID: q.ID, Text: q.Text, Options: opts}
	}

	sess := h.store.Admit(
		model.Candidate{Name: req.CandidateName, RollNumber: req.RollNumber},
		model.ExamMeta{Title: req.ExamTitle, DurationSeconds: req.DurationSeconds},
		questions,
	)

	token, err := h.tokens.Mint(sess.ID, h.store.clock())
	if err != nil {
		h.log.Error().Err(err).Msg("Token mint failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().
		Str("session_id", sess.ID.String()).
		Str("roll_number", req.RollNumber).
		Msg("Session admitted")

	response.Success(c, http.StatusCreated, gin.H{
		"token":   token,
		"session": sess,
		"stub":    true,
	})
}

// Start godoc
// POST /api/v1/sessions/start
// Performs the external WAITING → IN_PROGRESS transition. Idempotent for
// an already started session.
func (h *Handler) Start(c *gin.Context) {
	id := sessionID(c)

	sess, err := h.store.Start(id)
	if err != nil {
		switch {
		case errors.Is(err, errNoSession):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, errNotWaiting):
			current, lookupErr := h.store.Session(id)
			if lookupErr == nil && current.Status == model.SessionStatusInProgress {
				response.Success(c, http.StatusOK, gin.H{"session": current})
				return
			}
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	h.log.Info().Str("session_id", id.String()).Msg("Session started")
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// ─── The four external operations ───────────────────────────────────────────

// Validate godoc
// GET /api/v1/sessions/validate
func (h *Handler) Validate(c *gin.Context) {
	sess, err := h.store.Session(sessionID(c))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// Questions godoc
// GET /api/v1/sessions/questions
// Only valid for a started session; the order is stable across refetches.
func (h *Handler) Questions(c *gin.Context) {
	questions, err := h.store.Questions(sessionID(c))
	if err != nil {
		h.failLifecycle(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SaveResponses godoc
// PUT /api/v1/sessions/responses
// Accepts the full response set; the receipt timestamp decides ordering.
func (h *Handler) SaveResponses(c *gin.Context) {
	var req model.SaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	receivedAt, err := h.store.Save(sessionID(c), req.Responses)
	if err != nil {
		h.failLifecycle(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"receivedAt": receivedAt.UTC()})
}

// Submit godoc
// POST /api/v1/sessions/submit
// Closes the session exactly once; a second submit is rejected.
func (h *Handler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := sessionID(c)
	if err := h.store.Submit(id, req.Responses); err != nil {
		h.failLifecycle(c, err)
		return
	}

	h.log.Info().
		Str("session_id", id.String()).
		Int("total_questions", req.TotalQuestions).
		Msg("Session submitted")
	response.Success(c, http.StatusOK, gin.H{"status": model.SessionStatusSubmitted})
}

// failLifecycle maps store lifecycle errors onto wire codes.
func (h *Handler) failLifecycle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNoSession):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, errNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
	case errors.Is(err, errSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ─── Auth middleware ────────────────────────────────────────────────────────

// RequireSession verifies the bearer token and stashes the session ID.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		id, err := h.tokens.Verify(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeySessionID, id)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, falling
// back to the token query param for WebSocket upgrades.
func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

func sessionID(c *gin.Context) uuid.UUID {
	val, _ := c.Get(ContextKeySessionID)
	id, _ := val.(uuid.UUID)
	return id
}
