package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("apollo-dev-secret-apollo-dev-secret")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	cfg.PrivateKey = testSecret
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestMintAndParseHS256(t *testing.T) {
	m := newHSManager(t, Config{})

	token, err := m.Mint("ada@example.com", 42)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email() != "ada@example.com" || claims.UserID != 42 {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UserID: 1, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "a@b.com",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newHSManager(t, Config{})
	claims := Claims{UserID: 1, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "a@b.com",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRequiresSubjectAndUserID(t *testing.T) {
	m := newHSManager(t, Config{})
	for _, claims := range []Claims{
		{UserID: 1, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}},
		{RegisteredClaims: gjwt.RegisteredClaims{Subject: "a@b.com", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}},
	} {
		token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
		if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %+v, got %v", claims, err)
		}
	}
}

func TestParseIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "apollo-api",
		Audience:      "apollo-web",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.Mint("u@example.com", 7)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Parse(access); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	sign := func(iss, aud string, exp time.Duration) string {
		claims := Claims{UserID: 7, RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u@example.com",
			Issuer:    iss,
			Audience:  gjwt.ClaimStrings{aud},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(exp)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		s, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
		return s
	}

	if _, err := m.Parse(sign("other", "apollo-web", time.Minute)); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.Parse(sign("apollo-api", "other", time.Minute)); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	if _, err := m.Parse(sign("apollo-api", "apollo-web", -15*time.Second)); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := m.Parse(sign("apollo-api", "apollo-web", -2*time.Minute)); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseKeyIDMismatch(t *testing.T) {
	m := newHSManager(t, Config{KeyID: "k1"})
	good, err := m.Mint("a@b.com", 1)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected matching kid to pass: %v", err)
	}

	other := newHSManager(t, Config{KeyID: "k2"})
	if _, err := other.Parse(good); err == nil {
		t.Fatal("expected unknown kid failure")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{AccessTTL: 0, PrivateKey: testSecret},
		{AccessTTL: time.Minute},
		{AccessTTL: time.Minute, PrivateKey: testSecret, Leeway: time.Hour},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519},
		{AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: testSecret},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config to be rejected", i)
		}
	}
}

func TestEd25519PublicKeyDerivedFromPrivate(t *testing.T) {
	pub, priv := newEdKeys(t)
	signer, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("expected private key alone to be enough: %v", err)
	}
	token, err := signer.Mint("ed@example.com", 3)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	verifier, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	claims, err := verifier.Parse(token)
	if err != nil || claims.UserID != 3 {
		t.Fatalf("expected derived key to match, got %+v %v", claims, err)
	}
}
