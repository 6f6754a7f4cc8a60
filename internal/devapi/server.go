package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/apolloAuth/internal/rate"
	"github.com/MrEthical07/apolloAuth/jwt"
	"github.com/MrEthical07/apolloAuth/middleware"
	"github.com/MrEthical07/apolloAuth/password"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	// DefaultTokenTTL matches the production service's 30 minute tokens.
	DefaultTokenTTL    = 30 * time.Minute
	defaultServiceName = "apollo-api"
	maxRequestBytes    = 64 << 10

	detailInvalidLogin   = "Incorrect email or password"
	detailEmailTaken     = "Email already registered"
	detailUserNotFound   = "User not found"
	detailTooManyLogins  = "Too many failed login attempts"
	detailInvalidRequest = "Invalid request body"
)

// Config configures a [Server].
type Config struct {
	// Secret is the HS256 signing key, or the Ed25519 private key (raw or
	// PEM) when SigningMethod is jwt.MethodEd25519. Required.
	Secret []byte
	// SigningMethod defaults to jwt.MethodHS256.
	SigningMethod jwt.SigningMethod
	TokenTTL      time.Duration
	Issuer        string
	Audience      string
	KeyID         string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	// Password tunes argon2id. The zero value uses password.DefaultConfig.
	Password password.Config
	// Limiter enables request and failed-login throttling when set.
	Limiter     *rate.Limiter
	Logger      *slog.Logger
	ServiceName string
}

// Server serves the credential API from memory.
type Server struct {
	users   *store
	hasher  *password.Argon2
	tokens  *jwt.Manager
	limiter *rate.Limiter
	logger  *slog.Logger
	service string
	handler http.Handler
	now     func() time.Time
}

// New builds a Server.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("devapi: signing secret required")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Password == (password.Config{}) {
		cfg.Password = password.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("devapi: password hasher: %w", err)
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.TokenTTL,
		SigningMethod: cfg.SigningMethod,
		PrivateKey:    cfg.Secret,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		KeyID:         cfg.KeyID,
		Leeway:        cfg.Leeway,
		MaxFutureIAT:  cfg.MaxFutureIAT,
	})
	if err != nil {
		return nil, fmt.Errorf("devapi: token manager: %w", err)
	}

	s := &Server{
		users:   newStore(),
		hasher:  hasher,
		tokens:  tokens,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
		service: cfg.ServiceName,
		now:     time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/me", middleware.RequireBearer(tokens, nil)(http.HandlerFunc(s.handleMe)))

	s.handler = middleware.Correlation(middleware.RequestLog(cfg.Logger)(s.throttle(mux)))
	return s, nil
}

// Handler returns the HTTP handler with correlation, logging and
// throttling applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Tokens returns the manager used to mint and verify access tokens.
func (s *Server) Tokens() *jwt.Manager {
	return s.tokens
}

// UserCount returns the number of registered accounts.
func (s *Server) UserCount() int {
	return s.users.count()
}

type registerRequest struct {
	UserName *string `json:"user_name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserName, validation.NotNil),
		validation.Field(&r.Email, validation.NotNil),
		validation.Field(&r.Password, validation.NotNil),
	)
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NotNil),
		validation.Field(&r.Password, validation.NotNil),
	)
}

type userView struct {
	ID        int64      `json:"id"`
	UserName  string     `json:"user_name,omitempty"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userView `json:"user"`
}

// CreateUser registers an account directly, applying the same rules as
// POST /api/auth/register.
func (s *Server) CreateUser(userName, email, pw string) (int64, error) {
	u, _, err := s.register(userName, email, pw)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// registerError carries the HTTP status and detail of a rejected signup.
type registerError struct {
	status int
	detail string
}

func (e *registerError) Error() string {
	return e.detail
}

func (s *Server) register(userName, email, pw string) (user, string, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return user{}, "", &registerError{http.StatusBadRequest, "Invalid email: " + err.Error()}
	}
	if err := password.CheckPolicy(pw); err != nil {
		return user{}, "", &registerError{http.StatusBadRequest, err.Error()}
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return user{}, "", &registerError{http.StatusBadRequest, err.Error()}
	}
	created, err := s.users.create(user{
		UserName:     userName,
		Email:        normalized,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, errEmailTaken) {
		return user{}, "", &registerError{http.StatusBadRequest, detailEmailTaken}
	}
	if err != nil {
		return user{}, "", err
	}

	token, err := s.tokens.Mint(created.Email, created.ID)
	if err != nil {
		return user{}, "", err
	}
	return created, token, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, token, err := s.register(*req.UserName, *req.Email, *req.Password)
	if err != nil {
		var re *registerError
		if errors.As(err, &re) {
			writeDetail(w, re.status, re.detail)
			return
		}
		s.logger.ErrorContext(r.Context(), "register failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.InfoContext(r.Context(), "user registered", "user_id", created.ID)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User: userView{
			ID:        created.ID,
			Email:     created.Email,
			CreatedAt: &created.CreatedAt,
		},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := *req.Email

	if s.limiter != nil {
		if err := s.limiter.CheckLogin(ctx, email); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				writeDetail(w, http.StatusTooManyRequests, detailTooManyLogins)
				return
			}
			s.logger.WarnContext(ctx, "login limiter unavailable, continuing", "error", err)
		}
	}

	u, err := s.users.byEmailAddr(email)
	ok := false
	if err == nil {
		ok, err = s.hasher.Verify(*req.Password, u.PasswordHash)
		if err != nil {
			s.logger.ErrorContext(ctx, "stored password hash unreadable", "user_id", u.ID, "error", err)
		}
	}
	if !ok {
		if s.limiter != nil {
			if err := s.limiter.RecordLoginFailure(ctx, email); err != nil {
				s.logger.WarnContext(ctx, "login failure not recorded", "error", err)
			}
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, detailInvalidLogin)
		return
	}

	if upgrade, _ := s.hasher.NeedsUpgrade(u.PasswordHash); upgrade {
		if hash, err := s.hasher.Hash(*req.Password); err == nil {
			s.users.updateHash(u.ID, hash)
		}
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "login limiter reset failed", "error", err)
		}
	}

	token, err := s.tokens.Mint(u.Email, u.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "token mint failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userView{ID: u.ID, Email: u.Email},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.Unauthorized(w, r, jwt.ErrInvalidToken)
		return
	}
	u, err := s.users.get(claims.UserID)
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, userView{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		CreatedAt: &u.CreatedAt,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.service,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Apollo API is running",
		"version": "1.0.0",
		"status":  "healthy",
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	cfg := s.limiter.Config()
	detail := fmt.Sprintf("Rate limit exceeded: %d per %s", cfg.RequestsPerWindow, cfg.Window)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := s.limiter.Allow(r.Context(), clientAddr(r))
		switch {
		case errors.Is(err, rate.ErrRateLimited):
			writeDetail(w, http.StatusTooManyRequests, detail)
			return
		case err != nil:
			s.logger.WarnContext(r.Context(), "request limiter unavailable, continuing", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// normalizeEmail checks the address format and lower-cases the domain.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return "", err
	}
	at := strings.LastIndexByte(email, '@')
	return email[:at] + strings.ToLower(email[at:]), nil
}

type fieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// decodeBody decodes and checks a JSON body. Failures answer 422 with a
// list of field issues.
func decodeBody(w http.ResponseWriter, r *http.Request, dst validation.Validatable) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []fieldIssue{{Loc: []string{"body"}, Msg: detailInvalidRequest, Type: "json_invalid"}},
		})
		return false
	}

	err := dst.Validate()
	if err == nil {
		return true
	}
	var fields validation.Errors
	if !errors.As(err, &fields) {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	issues := make([]fieldIssue, 0, len(names))
	for _, name := range names {
		issues = append(issues, fieldIssue{Loc: []string{"body", name}, Msg: "Field required", Type: "missing"})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
	return false
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
