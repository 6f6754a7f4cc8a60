package apolloAuth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/apolloAuth/reqcache"
	"github.com/MrEthical07/apolloAuth/tokenslot"
)

var errUnauthorized = errors.New("Incorrect email or password")

// fakeExchange answers from per-method funcs and counts calls.
type fakeExchange struct {
	login    func(ctx context.Context, creds Credentials) (*AuthResult, error)
	register func(ctx context.Context, profile Profile) (*AuthResult, error)
	fetch    func(ctx context.Context, token string) (*UserIdentity, error)

	loginCalls    atomic.Int64
	registerCalls atomic.Int64
	fetchCalls    atomic.Int64
}

func (f *fakeExchange) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	f.loginCalls.Add(1)
	if f.login == nil {
		return nil, errUnauthorized
	}
	return f.login(ctx, creds)
}

func (f *fakeExchange) Register(ctx context.Context, profile Profile) (*AuthResult, error) {
	f.registerCalls.Add(1)
	if f.register == nil {
		return nil, errUnauthorized
	}
	return f.register(ctx, profile)
}

func (f *fakeExchange) FetchIdentity(ctx context.Context, token string) (*UserIdentity, error) {
	f.fetchCalls.Add(1)
	if f.fetch == nil {
		return nil, errUnauthorized
	}
	return f.fetch(ctx, token)
}

func loginReturns(token string, user *UserIdentity) func(context.Context, Credentials) (*AuthResult, error) {
	return func(context.Context, Credentials) (*AuthResult, error) {
		return &AuthResult{Token: token, TokenType: "bearer", User: user}, nil
	}
}

// brokenSlot fails every operation.
type brokenSlot struct{}

func (brokenSlot) Read(context.Context) (string, bool, error) {
	return "", false, tokenslot.ErrUnavailable
}

func (brokenSlot) Write(context.Context, string) error {
	return tokenslot.ErrUnavailable
}

func (brokenSlot) Clear(context.Context) error {
	return tokenslot.ErrUnavailable
}

// readOnlySlot returns a fixed token and rejects every change.
type readOnlySlot struct {
	token string
}

func (s readOnlySlot) Read(context.Context) (string, bool, error) {
	return s.token, s.token != "", nil
}

func (readOnlySlot) Write(context.Context, string) error {
	return tokenslot.ErrUnavailable
}

func (readOnlySlot) Clear(context.Context) error {
	return tokenslot.ErrUnavailable
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) {
	return false, reqcache.ErrUnavailable
}

func (brokenCache) Set(context.Context, string, any) error {
	return reqcache.ErrUnavailable
}

func (brokenCache) Delete(context.Context, string) error {
	return reqcache.ErrUnavailable
}

func (brokenCache) Clear(context.Context) error {
	return reqcache.ErrUnavailable
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type coordinatorFixture struct {
	coord    *Coordinator
	exchange *fakeExchange
	slot     *tokenslot.Memory
	cache    *reqcache.Memory
}

func newFixture(t *testing.T, exchange *fakeExchange, initialToken string) (*coordinatorFixture, func()) {
	t.Helper()

	slot := tokenslot.NewMemory(initialToken)
	cache := reqcache.NewMemory()
	coord, err := New().
		WithExchange(exchange).
		WithTokenSlot(slot).
		WithRequestCache(cache).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return &coordinatorFixture{
		coord:    coord,
		exchange: exchange,
		slot:     slot,
		cache:    cache,
	}, func() {
		coord.Close()
	}
}

func buildCoordinator(t *testing.T, exchange CredentialExchange, slot TokenSlot, cache RequestCache) *Coordinator {
	t.Helper()
	coord, err := New().
		WithExchange(exchange).
		WithTokenSlot(slot).
		WithRequestCache(cache).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return coord
}

func slotValue(t *testing.T, slot TokenSlot) string {
	t.Helper()
	token, _, err := slot.Read(context.Background())
	if err != nil {
		t.Fatalf("slot read: %v", err)
	}
	return token
}

// assertConsistent checks the invariants that must hold after every
// completed operation.
func assertConsistent(t *testing.T, f *coordinatorFixture) {
	t.Helper()
	st := f.coord.State()
	snap := st.Snapshot()
	if got := slotValue(t, f.slot); got != snap.Token {
		t.Fatalf("slot %q disagrees with state token %q", got, snap.Token)
	}
	if st.IsAuthenticated() != (snap.Token != "") {
		t.Fatalf("derived flag disagrees with token")
	}
	if snap.User != nil && snap.Token == "" {
		t.Fatalf("identity held without a token")
	}
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) listen(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *snapshotRecorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}
