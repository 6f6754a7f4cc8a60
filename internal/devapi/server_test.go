package devapi

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/apolloAuth/internal/rate"
	"github.com/MrEthical07/apolloAuth/jwt"
	"github.com/MrEthical07/apolloAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func fastPassword() password.Config {
	return password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestServer(t *testing.T, limiter *rate.Limiter) (*Server, *httptest.Server) {
	t.Helper()

	s, err := New(Config{
		Secret:   []byte("dev-secret-dev-secret-dev-secret"),
		Password: fastPassword(),
		Limiter:  limiter,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func post(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	payload, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp, decode(t, resp)
}

func get(t *testing.T, url, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestRegisterLoginMe(t *testing.T) {
	s, srv := newTestServer(t, nil)

	resp, body := post(t, srv.URL+"/api/auth/register", map[string]string{
		"user_name": "alice",
		"email":     "alice@Example.COM",
		"password":  "Secret12",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: expected 200, got %d %v", resp.StatusCode, body)
	}
	user := body["user"].(map[string]any)
	if user["email"] != "alice@example.com" || user["id"].(float64) != 1 || user["created_at"] == nil {
		t.Fatalf("unexpected register user %v", user)
	}
	if body["token_type"] != "bearer" || body["access_token"] == "" {
		t.Fatalf("unexpected token fields %v", body)
	}

	resp, body = post(t, srv.URL+"/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Secret12",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %v", resp.StatusCode, body)
	}
	user = body["user"].(map[string]any)
	if _, ok := user["created_at"]; ok {
		t.Fatalf("login user should carry only id and email, got %v", user)
	}
	token := body["access_token"].(string)

	claims, err := s.Tokens().Parse(token)
	if err != nil || claims.Email() != "alice@example.com" || claims.UserID != 1 {
		t.Fatalf("unexpected claims %+v %v", claims, err)
	}

	resp, body = get(t, srv.URL+"/api/auth/me", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d %v", resp.StatusCode, body)
	}
	if body["user_name"] != "alice" || body["email"] != "alice@example.com" {
		t.Fatalf("unexpected me body %v", body)
	}
}

func TestRegisterErrors(t *testing.T) {
	s, srv := newTestServer(t, nil)
	if _, err := s.CreateUser("bob", "bob@b.com", "Secret12"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	tests := []struct {
		name   string
		body   map[string]string
		status int
		detail string
	}{
		{
			name:   "duplicate",
			body:   map[string]string{"user_name": "b", "email": "BOB@b.com", "password": "Secret12"},
			status: http.StatusBadRequest,
			detail: "Email already registered",
		},
		{
			name:   "weak password",
			body:   map[string]string{"user_name": "c", "email": "c@b.com", "password": "secret12"},
			status: http.StatusBadRequest,
			detail: "Password must be 8-100 characters with uppercase, lowercase, and digits",
		},
		{
			name:   "invalid email",
			body:   map[string]string{"user_name": "d", "email": "not-an-email", "password": "Secret12"},
			status: http.StatusBadRequest,
			detail: "Invalid email: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+"/api/auth/register", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			detail, _ := body["detail"].(string)
			if !strings.HasPrefix(detail, tt.detail) {
				t.Fatalf("expected detail %q, got %q", tt.detail, detail)
			}
		})
	}
	if s.UserCount() != 1 {
		t.Fatalf("expected only bob registered, got %d", s.UserCount())
	}
}

func TestMissingFieldsAnswer422(t *testing.T) {
	_, srv := newTestServer(t, nil)

	resp, body := post(t, srv.URL+"/api/auth/register", map[string]string{"email": "a@b.com"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	issues := body["detail"].([]any)
	if len(issues) != 2 {
		t.Fatalf("expected two missing fields, got %v", issues)
	}
	first := issues[0].(map[string]any)
	loc := first["loc"].([]any)
	if loc[0] != "body" || loc[1] != "password" || first["type"] != "missing" {
		t.Fatalf("unexpected issue %v", first)
	}

	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad JSON, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s, srv := newTestServer(t, nil)
	if _, err := s.CreateUser("alice", "alice@b.com", "Secret12"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	for _, body := range []map[string]string{
		{"email": "alice@b.com", "password": "Wrong123"},
		{"email": "nobody@b.com", "password": "Secret12"},
	} {
		resp, out := post(t, srv.URL+"/api/auth/login", body)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if out["detail"] != "Incorrect email or password" || resp.Header.Get("WWW-Authenticate") != "Bearer" {
			t.Fatalf("unexpected rejection %v %v", out, resp.Header)
		}
	}
}

func TestMeRejectsInvalidToken(t *testing.T) {
	_, srv := newTestServer(t, nil)

	resp, body := get(t, srv.URL+"/api/auth/me", "garbage")
	if resp.StatusCode != http.StatusUnauthorized || body["detail"] != "Could not validate credentials" {
		t.Fatalf("expected 401, got %d %v", resp.StatusCode, body)
	}
}

func TestMeUnknownUser(t *testing.T) {
	s, srv := newTestServer(t, nil)
	token, err := s.Tokens().Mint("ghost@b.com", 42)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	resp, body := get(t, srv.URL+"/api/auth/me", token)
	if resp.StatusCode != http.StatusNotFound || body["detail"] != "User not found" {
		t.Fatalf("expected 404, got %d %v", resp.StatusCode, body)
	}
}

func TestHealthAndCorrelation(t *testing.T) {
	_, srv := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("X-Correlation-ID", "corr-9")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body := decode(t, resp)
	if body["status"] != "healthy" || body["service"] != "apollo-api" {
		t.Fatalf("unexpected health body %v", body)
	}
	if resp.Header.Get("X-Correlation-ID") != "corr-9" {
		t.Fatalf("expected correlation echo, got %q", resp.Header.Get("X-Correlation-ID"))
	}
}

func TestThrottling(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := rate.New(rdb, rate.Config{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		MaxLoginFailures:  2,
		LoginCooldown:     time.Minute,
	})
	s, srv := newTestServer(t, limiter)
	if _, err := s.CreateUser("alice", "alice@b.com", "Secret12"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	wrong := map[string]string{"email": "alice@b.com", "password": "Wrong123"}
	for i := 0; i < 2; i++ {
		if resp, _ := post(t, srv.URL+"/api/auth/login", wrong); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}
	resp, body := post(t, srv.URL+"/api/auth/login", map[string]string{"email": "alice@b.com", "password": "Secret12"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 during cooldown, got %d %v", resp.StatusCode, body)
	}

	mr.FastForward(2 * time.Minute)
	resp, _ = post(t, srv.URL+"/api/auth/login", map[string]string{"email": "alice@b.com", "password": "Secret12"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login after cooldown, got %d", resp.StatusCode)
	}
}

func TestEd25519TokensWithKeyIDAndAudience(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s, err := New(Config{
		Secret:        priv,
		SigningMethod: jwt.MethodEd25519,
		Issuer:        "apollo-api",
		Audience:      "apollo-cli",
		KeyID:         "dev-1",
		Leeway:        30 * time.Second,
		MaxFutureIAT:  time.Minute,
		Password:      fastPassword(),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, body := post(t, srv.URL+"/api/auth/register", map[string]string{
		"user_name": "ed", "email": "ed@b.com", "password": "Secret12",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", resp.StatusCode, body)
	}
	token := body["access_token"].(string)

	summary, err := jwt.Inspect(token)
	if err != nil || summary.Algorithm != "EdDSA" || summary.Email != "ed@b.com" {
		t.Fatalf("unexpected token summary %+v %v", summary, err)
	}
	if resp, _ := get(t, srv.URL+"/api/auth/me", token); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected me to accept the token, got %d", resp.StatusCode)
	}

	// A token from an HS256 server must not pass here.
	other, _ := newTestServer(t, nil)
	foreign, err := other.Tokens().Mint("ed@b.com", 1)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if resp, _ := get(t, srv.URL+"/api/auth/me", foreign); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign token, got %d", resp.StatusCode)
	}
}

func TestNewRejectsUnknownSigningMethod(t *testing.T) {
	_, err := New(Config{Secret: []byte("dev-secret"), SigningMethod: "rs256", Password: fastPassword()})
	if err == nil {
		t.Fatal("expected unsupported signing method to be rejected")
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := normalizeEmail("  Ada.Lovelace@Example.COM ")
	if err != nil || got != "Ada.Lovelace@example.com" {
		t.Fatalf("expected domain lower-cased, got %q %v", got, err)
	}
	for _, bad := range []string{"", "plain", "a@", "@b.com"} {
		if _, err := normalizeEmail(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
