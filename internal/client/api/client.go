// Package api is the HTTP client for the Tenaplex server.
//
// It models the browser side of the session contract: the access token is
// attached from the in-memory session, the refresh cookie rides in the
// cookie jar, and an expired-token failure triggers exactly one refresh
// exchange shared by all concurrent requests.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tenaplex/tenaplex/internal/client/session"
	"github.com/tenaplex/tenaplex/pkg/api"
)

// ErrSessionExpired means the refresh exchange failed or the session was
// cleared; the caller must send the user through login again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string // machine-readable error field
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

// tokenExpired reports whether this failure is answerable by a silent
// refresh. Any other 401 means re-authentication.
func (e *APIError) tokenExpired() bool {
	return e.StatusCode == http.StatusUnauthorized && e.Code == "token_expired"
}

// Client is the Tenaplex API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *session.Session

	// refreshGroup collapses concurrent refresh attempts into one server
	// call. N requests failing with expired tokens at once produce exactly
	// one rotation; the rest wait for and share its result.
	refreshGroup singleflight.Group
}

// NewClient creates a client. jar holds the refresh cookie across
// restarts; sess holds the access token in memory only.
func NewClient(baseURL string, jar http.CookieJar, sess *session.Session) *Client {
	return &Client{
		baseURL: baseURL,
		session: sess,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Session exposes the client's session, mainly for logout-on-exit and tests.
func (c *Client) Session() *session.Session {
	return c.session
}

// Tenants fetches the public tenant list.
func (c *Client) Tenants(ctx context.Context) ([]api.TenantResponse, error) {
	var resp []api.TenantResponse
	if err := c.doRequest(ctx, http.MethodGet, "/auth/tenants", nil, &resp, ""); err != nil {
		return nil, fmt.Errorf("tenants request failed: %w", err)
	}
	return resp, nil
}

// Register creates an account and starts a session.
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register", req, &resp, ""); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	c.installSession(&resp)
	return &resp, nil
}

// Login authenticates and starts a session.
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, &resp, ""); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	c.installSession(&resp)
	return &resp, nil
}

// Logout revokes the refresh token server side and clears the session.
// The in-memory token is cleared even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil, "")
	c.session.Clear()
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// ListDatasets returns the caller's tenant datasets.
func (c *Client) ListDatasets(ctx context.Context) ([]api.DatasetMetadata, error) {
	var resp []api.DatasetMetadata
	if err := c.doAuthed(ctx, http.MethodGet, "/datasets", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetDataset returns one dataset with all rows.
func (c *Client) GetDataset(ctx context.Context, datasetID string) (*api.DatasetDetail, error) {
	var resp api.DatasetDetail
	if err := c.doAuthed(ctx, http.MethodGet, "/datasets/"+datasetID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Aggregate runs a group-by aggregation on a dataset.
func (c *Client) Aggregate(ctx context.Context, datasetID string, req api.AggregateRequest) (*api.AggregateResponse, error) {
	var resp api.AggregateResponse
	if err := c.doAuthed(ctx, http.MethodPost, "/datasets/"+datasetID+"/aggregate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadDataset uploads CSV content as a new dataset.
func (c *Client) UploadDataset(ctx context.Context, filename string, content []byte) (*api.DatasetMetadata, error) {
	build := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", fmt.Errorf("failed to write form file: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to finalize form: %w", err)
		}
		return &buf, writer.FormDataContentType(), nil
	}

	var resp api.DatasetMetadata
	err := c.withRetry(ctx, func(token string) error {
		body, contentType, err := build()
		if err != nil {
			return err
		}
		return c.send(ctx, http.MethodPost, "/datasets", body, contentType, &resp, token)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// installSession stores the token pair result in the in-memory session.
// The refresh cookie was already captured by the jar from the Set-Cookie
// header; it never appears in the response body.
func (c *Client) installSession(resp *api.TokenResponse) {
	c.session.Install(resp.AccessToken, session.Identity{
		UserID:   resp.UserID,
		TenantID: resp.TenantID,
		Email:    resp.Email,
	})
}

// doAuthed performs an authenticated JSON request with the single-flight
// refresh-and-retry discipline:
//
//   - no token in memory (fresh start after reload): refresh first
//   - expired-token 401: refresh once, replay the request once
//   - any second failure surfaces; a request is never retried twice
//
// Auth endpoints never go through this path, so a failing refresh cannot
// recurse into itself.
func (c *Client) doAuthed(ctx context.Context, method, path string, body, result any) error {
	return c.withRetry(ctx, func(token string) error {
		return c.doRequest(ctx, method, path, body, result, token)
	})
}

func (c *Client) withRetry(ctx context.Context, call func(token string) error) error {
	token, ok := c.session.Token()
	if !ok {
		// No access token in memory; try a silent refresh off the cookie.
		var err error
		if token, err = c.refreshAccessToken(ctx); err != nil {
			return err
		}
	}

	err := call(token)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.tokenExpired() {
		return err
	}

	token, refreshErr := c.refreshAccessToken(ctx)
	if refreshErr != nil {
		return refreshErr
	}

	// Exactly one replay with the fresh token.
	return call(token)
}

// refreshAccessToken performs the refresh exchange, deduplicated across
// goroutines. If the session is cleared while the exchange is in flight
// (logout, navigation away), the late result is discarded instead of
// resurrecting the session.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	epoch := c.session.Epoch()

	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		var resp api.TokenResponse
		if err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", nil, &resp, ""); err != nil {
			// Refresh failure is terminal for the session: the rotator
			// demands full re-authentication.
			c.session.Clear()
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}

		if !c.session.InstallIfCurrent(resp.AccessToken, session.Identity{
			UserID:   resp.UserID,
			TenantID: resp.TenantID,
			Email:    resp.Email,
		}, epoch) {
			return nil, ErrSessionExpired
		}

		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// doRequest performs a JSON request. token is attached as a bearer header
// when non-empty.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, token string) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
		contentType = "application/json"
	}

	return c.send(ctx, method, path, bodyReader, contentType, result, token)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, result any, token string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
