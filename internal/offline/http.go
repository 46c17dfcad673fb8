package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"debtster_routes/internal/ports"
)

// HTTPSubmitter posts submissions to the service's /payments endpoint.
type HTTPSubmitter struct {
	BaseURL string
	Token   func() string
	Client  *http.Client
}

func NewHTTPSubmitter(baseURL string, token func() string) *HTTPSubmitter {
	return &HTTPSubmitter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *HTTPSubmitter) Submit(ctx context.Context, s Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", s.IdempotencyKey)
	if h.Token != nil {
		req.Header.Set("Authorization", "Bearer "+h.Token())
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 300 {
		return nil
	}
	return statusError(resp.StatusCode, raw)
}

// statusError turns an error response back into a taxonomy error. The
// body's kind wins over the status code.
func statusError(code int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(code)
	}
	if k := ports.FromKind(eb.Kind); k != nil {
		return fmt.Errorf("%s: %w", msg, k)
	}
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ports.ErrUnauthenticated)
	case code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, ports.ErrForbidden)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%s: %w", msg, ports.ErrStoreUnavailable)
	default:
		return fmt.Errorf("status %d: %s", code, msg)
	}
}
