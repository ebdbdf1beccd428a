package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
)

// Client is the manager API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// NewClient creates a new manager API client.
//
// Parameters:
//   - baseURL: The API base URL (e.g., "https://cache.example.com")
//   - token: The admin bearer token
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the configured bearer token.
func (c *Client) Token() string { return c.token }

// CurrentSessionID extracts the caller's own session id from the bearer
// token's "sid" claim. The token is decoded without verification: the server
// holds the signing key, the client only needs the claim to recognize its
// own session in the list. Returns "" when the token is not a JWT or carries
// no session id.
func (c *Client) CurrentSessionID() string {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(c.token, claims); err != nil {
		return ""
	}
	if sid, ok := claims["sid"].(string); ok {
		return sid
	}
	return ""
}

// ListSessions retrieves one page of sessions.
func (c *Client) ListSessions(ctx context.Context, page, pageSize int) (*SessionPage, error) {
	u := fmt.Sprintf("%s/api/usersessions?page=%d&pageSize=%d", c.baseURL, page, pageSize)

	var result SessionPage
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return &result, nil
}

// RevokeSession revokes a session by id.
func (c *Client) RevokeSession(ctx context.Context, id string) error {
	u := fmt.Sprintf("%s/api/usersessions/%s/revoke", c.baseURL, url.PathEscape(id))

	if err := c.doRequest(ctx, http.MethodPost, u, nil, nil); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteSession hard-deletes a session by id.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	u := fmt.Sprintf("%s/api/usersessions/%s", c.baseURL, url.PathEscape(id))

	if err := c.doRequest(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetPreferences retrieves the preference bundle for a session.
func (c *Client) GetPreferences(ctx context.Context, id string) (*session.Preferences, error) {
	u := fmt.Sprintf("%s/api/usersessions/%s/preferences", c.baseURL, url.PathEscape(id))

	var prefs session.Preferences
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &prefs); err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

// PutPreferences overwrites the preference bundle for a session.
func (c *Client) PutPreferences(ctx context.Context, id string, prefs session.Preferences) error {
	u := fmt.Sprintf("%s/api/usersessions/%s/preferences", c.baseURL, url.PathEscape(id))

	if err := c.doRequest(ctx, http.MethodPut, u, prefs, nil); err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}

// ResetAllPreferences resets every session's preferences to the defaults and
// returns the number of sessions affected.
func (c *Client) ResetAllPreferences(ctx context.Context) (int, error) {
	u := c.baseURL + "/api/usersessions/preferences/reset"

	var result CountResult
	if err := c.doRequest(ctx, http.MethodPost, u, nil, &result); err != nil {
		return 0, fmt.Errorf("reset preferences: %w", err)
	}
	return result.Count, nil
}

// ClearGuestSessions removes all guest sessions and returns how many were
// cleared.
func (c *Client) ClearGuestSessions(ctx context.Context) (int, error) {
	u := c.baseURL + "/api/usersessions/guests"

	var result CountResult
	if err := c.doRequest(ctx, http.MethodDelete, u, nil, &result); err != nil {
		return 0, fmt.Errorf("clear guest sessions: %w", err)
	}
	return result.Count, nil
}

// GetGuestDefaults retrieves the default guest preference configuration.
func (c *Client) GetGuestDefaults(ctx context.Context) (*session.GuestDefaults, error) {
	u := c.baseURL + "/api/guestconfig/preferences"

	var defaults session.GuestDefaults
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &defaults); err != nil {
		return nil, fmt.Errorf("get guest defaults: %w", err)
	}
	return &defaults, nil
}

// PatchGuestDefaults updates individual default guest preference keys.
func (c *Client) PatchGuestDefaults(ctx context.Context, patch map[string]any) error {
	u := c.baseURL + "/api/guestconfig/preferences"

	if err := c.doRequest(ctx, http.MethodPatch, u, patch, nil); err != nil {
		return fmt.Errorf("patch guest defaults: %w", err)
	}
	return nil
}

// PutAllowedTimeFormats replaces the default allowed time format set.
func (c *Client) PutAllowedTimeFormats(ctx context.Context, formats []string) error {
	u := c.baseURL + "/api/guestconfig/preferences/time-formats"

	body := map[string]any{"allowedTimeFormats": formats}
	if err := c.doRequest(ctx, http.MethodPut, u, body, nil); err != nil {
		return fmt.Errorf("put allowed time formats: %w", err)
	}
	return nil
}

// GetPrefillConfig retrieves the prefill configuration for a service.
func (c *Client) GetPrefillConfig(ctx context.Context, service session.Service) (*session.PrefillConfig, error) {
	u := fmt.Sprintf("%s/api/guestconfig/prefill/%s", c.baseURL, url.PathEscape(string(service)))

	var cfg session.PrefillConfig
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &cfg); err != nil {
		return nil, fmt.Errorf("get prefill config: %w", err)
	}
	return &cfg, nil
}

// SetPrefillConfig replaces the prefill configuration for a service.
func (c *Client) SetPrefillConfig(ctx context.Context, cfg session.PrefillConfig) error {
	u := fmt.Sprintf("%s/api/guestconfig/prefill/%s", c.baseURL, url.PathEscape(string(cfg.Service)))

	if err := c.doRequest(ctx, http.MethodPost, u, cfg, nil); err != nil {
		return fmt.Errorf("set prefill config: %w", err)
	}
	return nil
}

// SetSessionPrefill grants or revokes a per-service prefill entitlement on a
// single session.
func (c *Client) SetSessionPrefill(ctx context.Context, id string, service session.Service, enabled bool) error {
	u := fmt.Sprintf("%s/api/usersessions/%s/prefill/%s",
		c.baseURL, url.PathEscape(id), url.PathEscape(string(service)))

	if err := c.doRequest(ctx, http.MethodPost, u, prefillToggleRequest{Enabled: enabled}, nil); err != nil {
		return fmt.Errorf("set session prefill: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request and decodes the response.
func (c *Client) doRequest(ctx context.Context, method, url string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransientError("request failed", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTransientError("read response", err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// errorBody is the structured rejection shape the server returns. Either
// field may carry the message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Error
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return apperrors.NewNotFoundError(msg)
	case status >= 500:
		return apperrors.NewTransientError(msg, fmt.Sprintf("status %d", status))
	default:
		return apperrors.NewAPIError(status, msg)
	}
}
