package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smartcapi-client/internal/domain"

	"github.com/google/uuid"
)

var ErrInvalidResponse = errors.New("invalid response from backend")

const (
	defaultAttempts = 3
	maxErrorBody    = 64 << 10
)

// AuthError is a login rejected by the backend.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("login rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("login rejected with status %d: %s", e.StatusCode, e.Detail)
}

// Unwrap reports 401 and 403 as domain.ErrInvalidCredentials.
func (e *AuthError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// UserDetail returns the backend's message for the user, if any.
func (e *AuthError) UserDetail() string {
	return e.Detail
}

// AuthClient posts credentials to the backend login endpoint.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// Option customizes an AuthClient
type Option func(*AuthClient)

// WithHTTPClient replaces the default http client
func WithHTTPClient(c *http.Client) Option {
	return func(a *AuthClient) { a.httpClient = c }
}

// WithRetry sets the attempt count and the linear backoff step
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(a *AuthClient) {
		if attempts > 0 {
			a.attempts = attempts
		}
		a.backoff = backoff
	}
}

// NewAuthClient creates a client for baseURL, e.g. http://host/api
func NewAuthClient(baseURL string, opts ...Option) *AuthClient {
	c := &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		attempts: defaultAttempts,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginURL returns the endpoint credentials are posted to
func (c *AuthClient) LoginURL() string {
	return c.baseURL + "/v1/auth/login"
}

// Authenticate exchanges username and password for a token and identity.
// The backend expects an OAuth2 password form, not JSON.
func (c *AuthClient) Authenticate(ctx context.Context, username, password string) (*domain.AuthResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	body := form.Encode()

	var resp *http.Response
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.LoginURL(), strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			// The final attempt's response is kept whatever its status.
			if !retryableStatus(resp.StatusCode) || attempt == c.attempts {
				break
			}
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			resp.Body.Close()
			resp = nil
		}
		if attempt < c.attempts {
			slog.Debug("login attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()))
			if err := sleepContext(ctx, time.Duration(attempt)*c.backoff); err != nil {
				return nil, fmt.Errorf("login cancelled: %w", err)
			}
		}
	}

	if resp == nil {
		return nil, fmt.Errorf("failed to reach backend after %d attempts: %w", c.attempts, lastErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data),
		}
	}

	var out domain.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseDetail extracts the FastAPI style "detail" message. Validation
// errors carry a list of {msg} objects; the first message is used.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, it := range items {
			if it.Msg != "" {
				return it.Msg
			}
		}
	}
	return ""
}
