package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apolloAuth "github.com/MrEthical07/apolloAuth"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()

	srv := httptest.NewServer(handler)
	c, err := New(Config{BaseURL: srv.URL + "/api"})
	if err != nil {
		srv.Close()
		t.Fatalf("New failed: %v", err)
	}
	return c, srv.Close
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginSendsCredentialsAndDecodesResult(t *testing.T) {
	var gotCorrelation string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get(CorrelationHeader)
		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "a@b.com" || body.Password != "secret1" {
			t.Errorf("unexpected body %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok-1",
			"token_type":   "bearer",
			"user":         map[string]any{"id": 1, "email": "a@b.com"},
		})
	})
	c, done := newTestClient(t, mux)
	defer done()

	ctx := apolloAuth.WithCorrelationID(context.Background(), "corr-42")
	res, err := c.Login(ctx, apolloAuth.Credentials{Email: "a@b.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token != "tok-1" || res.TokenType != "bearer" || res.User.ID != 1 || res.User.Email != "a@b.com" {
		t.Fatalf("unexpected result %+v %+v", res, res.User)
	}
	if gotCorrelation != "corr-42" {
		t.Fatalf("expected correlation id forwarded, got %q", gotCorrelation)
	}
}

func TestCorrelationIDGeneratedWhenAbsent(t *testing.T) {
	var got string
	c, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(CorrelationHeader)
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "email": "a@b.com"})
	}))
	defer done()

	if _, err := c.FetchIdentity(context.Background(), "tok"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 36 {
		t.Fatalf("expected a generated UUID, got %q", got)
	}
}

func TestRegisterParsesNaiveCreatedAt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body registerRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.UserName != "alice" {
			t.Errorf("expected user_name alice, got %q", body.UserName)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok-3",
			"token_type":   "bearer",
			"user": map[string]any{
				"id":         3,
				"email":      body.Email,
				"created_at": "2025-01-02T03:04:05.123456",
			},
		})
	})
	c, done := newTestClient(t, mux)
	defer done()

	res, err := c.Register(context.Background(), apolloAuth.Profile{UserName: "alice", Email: "alice@b.com", Password: "Secret12"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)
	if res.User.CreatedAt == nil || !res.User.CreatedAt.Equal(want) {
		t.Fatalf("expected created_at %v, got %v", want, res.User.CreatedAt)
	}
}

func TestFetchIdentitySendsBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         2,
			"email":      "c@d.com",
			"user_name":  "carol",
			"created_at": "2025-01-02T03:04:05Z",
		})
	})
	c, done := newTestClient(t, mux)
	defer done()

	user, err := c.FetchIdentity(context.Background(), "tok-2")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if user.ID != 2 || user.Email != "c@d.com" || user.UserName != "carol" {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = c.FetchIdentity(context.Background(), "other")
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}

	if _, err := c.FetchIdentity(context.Background(), ""); !errors.Is(err, apolloAuth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for empty token, got %v", err)
	}
}

func TestAPIErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "string detail",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Incorrect email or password"}`,
			want:   "Incorrect email or password",
		},
		{
			name:   "validation list",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":[{"loc":["body","email"],"msg":"field required","type":"missing"}]}`,
			want:   "email: field required",
		},
		{
			name:   "no body",
			status: http.StatusBadGateway,
			body:   ``,
			want:   "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer done()

			_, err := c.Login(context.Background(), apolloAuth.Credentials{Email: "a@b.com", Password: "x"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Status() != tt.status || apiErr.Detail != tt.want {
				t.Fatalf("expected %d %q, got %d %q", tt.status, tt.want, apiErr.StatusCode, apiErr.Detail)
			}
		})
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	c, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token_type": "bearer"})
	}))
	defer done()

	_, err := c.Login(context.Background(), apolloAuth.Credentials{Email: "a@b.com", Password: "x"})
	if !errors.Is(err, apolloAuth.ErrMalformedExchangeResult) {
		t.Fatalf("expected ErrMalformedExchangeResult, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := c.FetchIdentity(context.Background(), "tok"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestContextCancel(t *testing.T) {
	c, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.FetchIdentity(ctx, "tok")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "apollo-api"})
	})
	c, done := newTestClient(t, mux)
	defer done()

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health failed: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{BaseURL: "ftp://example.com"},
		{BaseURL: "http://example.com", Timeout: -time.Second},
	} {
		if _, err := New(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
