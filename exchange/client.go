package exchange

import (
	"bytes"
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

	apolloAuth "github.com/MrEthical07/apolloAuth"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds each request when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// CorrelationHeader carries the request correlation ID both ways.
	CorrelationHeader = "X-Correlation-ID"

	maxBodyBytes = 1 << 20
)

// Config configures a [Client].
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api.
	BaseURL string
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements apolloAuth.CredentialExchange over HTTP.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

var _ apolloAuth.CredentialExchange = (*Client)(nil)

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("exchange: base URL required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("exchange: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("exchange: base URL scheme must be http or https, got %q", base.Scheme)
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("exchange: timeout must be >= 0")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, http: httpClient, logger: logger}, nil
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        *userDTO `json:"user"`
}

type userDTO struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	UserName  string `json:"user_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, creds apolloAuth.Credentials) (*apolloAuth.AuthResult, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("auth/login"), "", loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toResult()
}

// Register posts a new account to /auth/register.
func (c *Client) Register(ctx context.Context, profile apolloAuth.Profile) (*apolloAuth.AuthResult, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("auth/register"), "", registerRequest{
		UserName: profile.UserName,
		Email:    profile.Email,
		Password: profile.Password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toResult()
}

// FetchIdentity reads the identity behind token from /auth/me.
func (c *Client) FetchIdentity(ctx context.Context, token string) (*apolloAuth.UserIdentity, error) {
	if token == "" {
		return nil, apolloAuth.ErrNotAuthenticated
	}
	var user userDTO
	if err := c.do(ctx, http.MethodGet, c.endpoint("auth/me"), token, nil, &user); err != nil {
		return nil, err
	}
	return user.toIdentity()
}

// Health checks the service's /health endpoint at the origin of the base URL.
func (c *Client) Health(ctx context.Context) error {
	origin := url.URL{Scheme: c.base.Scheme, Host: c.base.Host, Path: "/health"}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, origin.String(), "", nil, &body); err != nil {
		return err
	}
	if body.Status != "healthy" {
		return fmt.Errorf("exchange: service reports %q", body.Status)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("exchange: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("exchange: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	correlationID := apolloAuth.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	req.Header.Set(CorrelationHeader, correlationID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "credential API request failed",
			slog.String("method", method),
			slog.String("path", req.URL.Path),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("exchange: %s %s: %w", method, req.URL.Path, ctxErr)
		}
		return fmt.Errorf("exchange: %s %s: %w", method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("exchange: read response: %w", err)
	}

	c.logger.DebugContext(ctx, "credential API request completed",
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		slog.String("correlation_id", correlationID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

func (r authResponse) toResult() (*apolloAuth.AuthResult, error) {
	if r.AccessToken == "" || r.User == nil {
		return nil, apolloAuth.ErrMalformedExchangeResult
	}
	user, err := r.User.toIdentity()
	if err != nil {
		return nil, err
	}
	return &apolloAuth.AuthResult{
		Token:     r.AccessToken,
		TokenType: r.TokenType,
		User:      user,
	}, nil
}

// createdAtLayouts accepts RFC 3339 and the zone-less ISO form Python
// services emit for naive datetimes, read as UTC.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (u userDTO) toIdentity() (*apolloAuth.UserIdentity, error) {
	if u.ID == 0 || u.Email == "" {
		return nil, apolloAuth.ErrMalformedExchangeResult
	}
	out := &apolloAuth.UserIdentity{ID: u.ID, Email: u.Email, UserName: u.UserName}
	if u.CreatedAt == "" {
		return out, nil
	}
	for _, layout := range createdAtLayouts {
		if ts, err := time.ParseInLocation(layout, u.CreatedAt, time.UTC); err == nil {
			ts = ts.UTC()
			out.CreatedAt = &ts
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: created_at %q", ErrUnexpectedResponse, u.CreatedAt)
}
