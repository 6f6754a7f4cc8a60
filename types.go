package apolloAuth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/apolloAuth/internal/audit"
)

// UserIdentity is the account the current token belongs to. Field names
// follow the credential API's JSON shape.
type UserIdentity struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	UserName  string     `json:"user_name,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Clone returns a deep copy of u. Clone of nil is nil.
func (u *UserIdentity) Clone() *UserIdentity {
	if u == nil {
		return nil
	}
	out := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		out.CreatedAt = &t
	}
	return &out
}

// CachedIdentity is the value of the current-user request cache entry. The
// identity is bound to the token it was issued for; an entry whose binding
// does not match the current token is treated as absent.
type CachedIdentity struct {
	TokenHash string        `json:"token_hash"`
	User      *UserIdentity `json:"user"`
}

// TokenHash returns the hex SHA-256 of token. The cache stores this instead of
// the token itself.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BelongsTo reports whether the entry was written for token.
func (e CachedIdentity) BelongsTo(token string) bool {
	return token != "" && e.User != nil && e.TokenHash == TokenHash(token)
}

// Credentials are the inputs of a login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogValue keeps the password out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("email", c.Email))
}

// Profile is the input of a signup.
type Profile struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogValue keeps the password out of structured logs.
func (p Profile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_name", p.UserName),
		slog.String("email", p.Email),
	)
}

// AuthResult is what a successful credential exchange yields.
type AuthResult struct {
	Token     string        `json:"access_token"`
	TokenType string        `json:"token_type"`
	User      *UserIdentity `json:"user"`
}

func (r *AuthResult) clone() *AuthResult {
	if r == nil {
		return nil
	}
	out := *r
	out.User = r.User.Clone()
	return &out
}

// FetchResult reports the outcome of [Coordinator.FetchCurrentUser].
type FetchResult struct {
	// User is the fetched identity. It is set even when Discarded is true.
	User *UserIdentity
	// Ran is false when the fetch was disabled and nothing was called.
	Ran bool
	// Discarded is true when the token changed while the fetch was in flight,
	// so the identity was not applied.
	Discarded bool
	// Shared is true when this call joined a fetch already in flight.
	Shared bool
}

// CredentialExchange turns credentials into a token and an identity, and a
// token into its current identity. Implementations own their own timeouts.
type CredentialExchange interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, profile Profile) (*AuthResult, error)
	FetchIdentity(ctx context.Context, token string) (*UserIdentity, error)
}

// TokenSlot is the durable home of the token. Last write wins.
type TokenSlot interface {
	Read(ctx context.Context) (token string, ok bool, err error)
	Write(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RequestCache is the shared request-scoped data cache. The coordinator
// writes the current-user entry and wipes the whole cache on logout; other
// consumers may read and write their own keys.
type RequestCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Event is a session lifecycle record delivered to an [EventSink].
type Event = internalaudit.Event

// EventSink receives [Event] values from the coordinator's dispatcher.
type EventSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON-encoded event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes events as structured log records.
type LogSink = internalaudit.LogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink creates a [LogSink] writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	return internalaudit.NewLogSink(logger)
}
