// Command apollo-devserver runs the development credential API on a local
// port.
//
// Endpoints:
//
//	POST /api/auth/register  JSON {"user_name":"...","email":"...","password":"..."}
//	POST /api/auth/login     JSON {"email":"...","password":"..."}
//	GET  /api/auth/me        requires Authorization: Bearer <token>
//	GET  /health
//
// Request throttling runs on Redis. Without APOLLO_DEV_REDIS_ADDR an
// embedded miniredis instance is started.
//
// Tokens are HS256 by default. APOLLO_DEV_SIGNING_METHOD=ed25519 signs with
// the PEM key at APOLLO_DEV_ED25519_KEY_FILE, or a fresh key when unset.
//
// Run:
//
//	APOLLO_DEV_SECRET=change-me-change-me-change-me-00 go run ./cmd/apollo-devserver
//
// Then:
//
//	curl -i -X POST localhost:8000/api/auth/register \
//	  -H 'Content-Type: application/json' \
//	  -d '{"user_name":"Ada","email":"ada@example.com","password":"Secret123"}'
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/apolloAuth/internal/devapi"
	"github.com/MrEthical07/apolloAuth/internal/rate"
	"github.com/MrEthical07/apolloAuth/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

type config struct {
	Addr     string        `env:"APOLLO_DEV_ADDR" envDefault:":8000"`
	Secret   string        `env:"APOLLO_DEV_SECRET"`
	TokenTTL time.Duration `env:"APOLLO_DEV_TOKEN_TTL" envDefault:"30m"`
	Issuer   string        `env:"APOLLO_DEV_ISSUER" envDefault:"apollo-api"`
	LogLevel slog.Level    `env:"APOLLO_DEV_LOG_LEVEL" envDefault:"info"`

	SigningMethod  string        `env:"APOLLO_DEV_SIGNING_METHOD" envDefault:"hs256"`
	Ed25519KeyFile string        `env:"APOLLO_DEV_ED25519_KEY_FILE"`
	KeyID          string        `env:"APOLLO_DEV_KEY_ID"`
	Audience       string        `env:"APOLLO_DEV_AUDIENCE"`
	Leeway         time.Duration `env:"APOLLO_DEV_LEEWAY"`
	MaxFutureIAT   time.Duration `env:"APOLLO_DEV_MAX_FUTURE_IAT" envDefault:"10m"`

	RedisAddr        string        `env:"APOLLO_DEV_REDIS_ADDR"`
	RateLimit        int           `env:"APOLLO_DEV_RATE_LIMIT" envDefault:"100"`
	RateWindow       time.Duration `env:"APOLLO_DEV_RATE_WINDOW" envDefault:"1m"`
	MaxLoginFailures int           `env:"APOLLO_DEV_MAX_LOGIN_FAILURES" envDefault:"5"`
	LoginCooldown    time.Duration `env:"APOLLO_DEV_LOGIN_COOLDOWN" envDefault:"15m"`

	SeedUserName string `env:"APOLLO_DEV_SEED_USER_NAME" envDefault:"Demo"`
	SeedEmail    string `env:"APOLLO_DEV_SEED_EMAIL"`
	SeedPassword string `env:"APOLLO_DEV_SEED_PASSWORD"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("devserver stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	rdb, cleanup, err := redisClient(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := newServer(cfg, rdb, logger)
	if err != nil {
		return err
	}

	if cfg.SeedEmail != "" {
		id, err := srv.CreateUser(cfg.SeedUserName, cfg.SeedEmail, cfg.SeedPassword)
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		logger.Info("seed user created", "user_id", id, "email", cfg.SeedEmail)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	switch jwt.SigningMethod(cfg.SigningMethod) {
	case jwt.MethodHS256, jwt.MethodEd25519:
	default:
		return config{}, fmt.Errorf("APOLLO_DEV_SIGNING_METHOD: unsupported %q", cfg.SigningMethod)
	}
	return cfg, nil
}

// newServer builds the API with its limiter on rdb.
func newServer(cfg config, rdb redis.UniversalClient, logger *slog.Logger) (*devapi.Server, error) {
	key, err := signingKey(cfg, logger)
	if err != nil {
		return nil, err
	}

	limiter := rate.New(rdb, rate.Config{
		RequestsPerWindow: cfg.RateLimit,
		Window:            cfg.RateWindow,
		MaxLoginFailures:  cfg.MaxLoginFailures,
		LoginCooldown:     cfg.LoginCooldown,
	})

	return devapi.New(devapi.Config{
		Secret:        key,
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		TokenTTL:      cfg.TokenTTL,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		KeyID:         cfg.KeyID,
		Leeway:        cfg.Leeway,
		MaxFutureIAT:  cfg.MaxFutureIAT,
		Limiter:       limiter,
		Logger:        logger,
	})
}

// signingKey returns the configured key, or a random one that lives only as
// long as the process.
func signingKey(cfg config, logger *slog.Logger) ([]byte, error) {
	if jwt.SigningMethod(cfg.SigningMethod) == jwt.MethodEd25519 {
		if cfg.Ed25519KeyFile != "" {
			pem, err := os.ReadFile(cfg.Ed25519KeyFile)
			if err != nil {
				return nil, fmt.Errorf("read signing key: %w", err)
			}
			return pem, nil
		}
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		logger.Warn("APOLLO_DEV_ED25519_KEY_FILE not set, tokens will not survive a restart")
		return priv, nil
	}

	if cfg.Secret != "" {
		return []byte(cfg.Secret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}
	logger.Warn("APOLLO_DEV_SECRET not set, tokens will not survive a restart")
	return secret, nil
}

// redisClient connects to addr, or to an embedded miniredis when addr is
// empty.
func redisClient(addr string) (*redis.Client, func(), error) {
	if addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start embedded redis: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}
