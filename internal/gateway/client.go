package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examind/examtaker/internal/model"
	"github.com/examind/examtaker/internal/response"
)

// Client talks to the central exam system. It is the only component in the
// engine that performs network I/O; everything durable lives behind these
// four operations.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient creates a gateway client rooted at baseURL (e.g.
// "http://localhost:8080/api/v1").
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "gateway").Logger(),
	}
}

// envelope is the decode-side view of the standard response envelope.
type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

// Validate resolves a session token to the full session record. An empty
// token fails before any network access is attempted. WAITING is a valid
// outcome, reported through the returned session's status, not an error.
func (c *Client) Validate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	var data struct {
		Session model.Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/validate", token, nil, &data); err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	return &data.Session, nil
}

// Questions fetches the ordered question list for a started session. The
// order is the addressing scheme for responses, so the gateway guarantees
// it is stable across refetches.
func (c *Client) Questions(ctx context.Context, token string) ([]model.Question, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	var data struct {
		Questions []model.Question `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/questions", token, nil, &data); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(data.Questions) == 0 {
		return nil, fmt.Errorf("load questions: empty question set: %w", ErrUnavailable)
	}
	return data.Questions, nil
}

// SaveResponses pushes the full response set. Callers treat this as
// fire-and-forget; a failure here is recovered by the next mutation's save.
func (c *Client) SaveResponses(ctx context.Context, token string, responses []model.Response) error {
	if token == "" {
		return ErrTokenMissing
	}

	req := model.SaveRequest{Responses: responses}
	if err := c.do(ctx, http.MethodPut, "/sessions/responses", token, &req, nil); err != nil {
		return fmt.Errorf("save responses: %w", err)
	}
	return nil
}

// Submit sends the final payload. The caller holds the exactly-once guard;
// this method performs a single attempt and reports the outcome.
func (c *Client) Submit(ctx context.Context, token string, responses []model.Response, total int) error {
	if token == "" {
		return ErrTokenMissing
	}

	req := model.SubmitRequest{Responses: responses, TotalQuestions: total}
	if err := c.do(ctx, http.MethodPost, "/sessions/submit", token, &req, nil); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// do performs one envelope-encoded round trip. A non-nil out receives the
// decoded data payload.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrUnavailable, err)
	}

	if env.Error != nil {
		c.log.Debug().
			Str("path", path).
			Str("code", string(env.Error.Code)).
			Int("status", resp.StatusCode).
			Msg("gateway error")
		return errFromCode(env.Error.Code)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrUnavailable, err)
		}
	}
	return nil
}
