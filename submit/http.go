package submit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/propdesk/formflow/record"
	"github.com/propdesk/formflow/types"
)

// Error carries the field-keyed messages of a failed submission. Transport
// failures and unparseable responses surface as a single catch-all entry
// under the submit key.
type Error struct {
	Fields types.ErrorMap
}

func (e *Error) Error() string {
	return "submit failed: " + e.Fields.String()
}

// Request describes one submission: create (POST) or update (PUT) with the
// already-transformed payload.
type Request struct {
	Method string
	Path   string
	Body   record.Record
}

// Submitter sends a completed record to the backend. A non-nil error is
// always a *Error whose Fields merge into the session's error state.
type Submitter interface {
	Submit(ctx context.Context, req Request) (map[string]any, error)
}

// HTTPSubmitter submits over HTTP with JSON bodies.
type HTTPSubmitter struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ Submitter = (*HTTPSubmitter)(nil)

// HTTPOption configures an HTTPSubmitter.
type HTTPOption func(*HTTPSubmitter)

// WithHTTPClient overrides the underlying client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSubmitter) { s.client = client }
}

// WithHTTPLogger overrides the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPSubmitter) { s.logger = logger }
}

func NewHTTPSubmitter(baseURL string, opts ...HTTPOption) *HTTPSubmitter {
	s := &HTTPSubmitter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSubmitter) Submit(ctx context.Context, req Request) (map[string]any, error) {
	payload, err := req.Body.JSON()
	if err != nil {
		return nil, &Error{Fields: types.ErrorMap{types.SubmitKey: "could not serialize form data"}}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, s.baseURL+req.Path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Fields: types.ErrorMap{types.SubmitKey: FallbackMessage}}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.Warn("submit request failed", "method", req.Method, "path", req.Path, "err", err)
		return nil, &Error{Fields: types.ErrorMap{types.SubmitKey: fmt.Sprintf("network error: %v", err)}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Warn("submit response unreadable", "method", req.Method, "path", req.Path, "err", err)
		return nil, &Error{Fields: types.ErrorMap{types.SubmitKey: FallbackMessage}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Debug("submit rejected", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
		return nil, &Error{Fields: MapResponseBody(body)}
	}

	return parseEntity(body), nil
}

// parseEntity extracts the saved entity from a success body. The API replies
// either with the entity itself or with {"success": true, "<entity>": {...}}.
func parseEntity(body []byte) map[string]any {
	var decoded map[string]any
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return map[string]any{}
	}
	if _, ok := decoded["success"]; !ok {
		return decoded
	}
	for key, value := range decoded {
		if key == "success" || key == "message" {
			continue
		}
		if entity, isMap := value.(map[string]any); isMap {
			return entity
		}
	}
	delete(decoded, "success")
	return decoded
}
