package apolloAuth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/apolloAuth/internal/audit"
	"golang.org/x/sync/singleflight"
)

// Coordinator is the single writer of the session. It drives login, signup,
// rehydration and logout across the token slot, the request cache and
// [State]. Create one with [Builder.Build].
type Coordinator struct {
	config   Config
	exchange CredentialExchange
	slot     TokenSlot
	cache    RequestCache
	logger   *slog.Logger

	state   *State
	gate    *BootstrapGate
	metrics *Metrics
	events  *internalaudit.Dispatcher

	// commitMu makes each operation's slot, cache and state writes one unit.
	commitMu sync.Mutex
	fetches  singleflight.Group

	bootstrapOnce sync.Once
	rehydrated    chan struct{}

	slotErrMu sync.Mutex
	slotErr   error

	now func() time.Time
}

type fetchOutcome struct {
	user      *UserIdentity
	discarded bool
}

// State returns the read-only session state.
func (c *Coordinator) State() *State {
	return c.state
}

// Gate returns the bootstrap gate. It opens during [Coordinator.Bootstrap].
func (c *Coordinator) Gate() *BootstrapGate {
	return c.gate
}

// Login exchanges credentials for a token and commits it with the returned
// identity. Exchange errors are returned unchanged and leave the session
// untouched.
func (c *Coordinator) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, authOp{
		name:    "login",
		success: eventLoginSuccess,
		failure: eventLoginFailure,
		okID:    MetricLoginSuccess,
		failID:  MetricLoginFailure,
		validate: func() error {
			return creds.Validate()
		},
		call: func(ctx context.Context) (*AuthResult, error) {
			return c.exchange.Login(ctx, creds)
		},
		email: creds.Email,
	})
}

// Signup registers a new account and commits the returned token and
// identity exactly like [Coordinator.Login].
func (c *Coordinator) Signup(ctx context.Context, profile Profile) (*AuthResult, error) {
	return c.authenticate(ctx, authOp{
		name:    "signup",
		success: eventSignupSuccess,
		failure: eventSignupFailure,
		okID:    MetricSignupSuccess,
		failID:  MetricSignupFailure,
		validate: func() error {
			return profile.Validate()
		},
		call: func(ctx context.Context) (*AuthResult, error) {
			return c.exchange.Register(ctx, profile)
		},
		email: profile.Email,
	})
}

type authOp struct {
	name     string
	success  string
	failure  string
	okID     MetricID
	failID   MetricID
	validate func() error
	call     func(ctx context.Context) (*AuthResult, error)
	email    string
}

func (c *Coordinator) authenticate(ctx context.Context, op authOp) (*AuthResult, error) {
	if c.config.Validation.Enabled {
		if err := op.validate(); err != nil {
			c.metricInc(MetricValidationRejected)
			c.emit(ctx, op.failure, false, nil, err, nil)
			c.logger.DebugContext(ctx, op.name+" rejected by validation", "email", op.email, "error", err)
			return nil, err
		}
	}

	start := c.now()
	res, err := op.call(ctx)
	c.observeExchange(start)
	if err != nil {
		c.metricInc(op.failID)
		c.emit(ctx, op.failure, false, nil, err, elapsedMetadata(start))
		c.logger.WarnContext(ctx, op.name+" failed", "email", op.email, "error", err)
		return nil, err
	}
	if res == nil || res.Token == "" || res.User == nil {
		c.metricInc(MetricMalformedResult)
		c.metricInc(op.failID)
		c.emit(ctx, op.failure, false, nil, ErrMalformedExchangeResult, nil)
		c.logger.ErrorContext(ctx, op.name+" returned an incomplete result", "email", op.email)
		return nil, ErrMalformedExchangeResult
	}

	out := res.clone()
	c.commitSession(ctx, out.Token, out.User)

	c.metricInc(op.okID)
	c.emit(ctx, op.success, true, out.User, nil, elapsedMetadata(start))
	c.logger.InfoContext(ctx, op.name+" succeeded", "user_id", out.User.ID)
	return out.clone(), nil
}

// commitSession writes slot, cache and state for a new token. The caller's
// cancellation does not stop a commit that has started.
func (c *Coordinator) commitSession(ctx context.Context, token string, user *UserIdentity) {
	ctx = context.WithoutCancel(ctx)

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if err := c.slot.Write(ctx, token); err != nil {
		c.slotFailure(ctx, "write", MetricSlotWriteFailure, err)
	} else {
		c.setSlotErr(nil)
	}
	c.fetches.Forget(token)
	c.seedUser(ctx, token, user)
	c.state.apply(token, user)
}

// FetchCurrentUser fetches the identity of the current token and attaches
// it to the session. With enabled false nothing is called. Concurrent calls
// for the same token share one exchange call, made with the first caller's
// ctx. An identity whose token is no longer current is discarded.
//
// Failures are returned to the caller and leave the session as it was.
func (c *Coordinator) FetchCurrentUser(ctx context.Context, enabled bool) (FetchResult, error) {
	if !enabled {
		c.metricInc(MetricRehydrateSkipped)
		return FetchResult{}, nil
	}
	token := c.state.Token()
	if token == "" {
		c.metricInc(MetricRehydrateSkipped)
		return FetchResult{}, ErrNotAuthenticated
	}

	v, err, shared := c.fetches.Do(token, func() (any, error) {
		return c.fetchIdentity(ctx, token)
	})
	if shared {
		c.metricInc(MetricRehydrateShared)
	}
	if err != nil {
		return FetchResult{Ran: true, Shared: shared}, err
	}

	outcome := v.(fetchOutcome)
	return FetchResult{
		User:      outcome.user.Clone(),
		Ran:       true,
		Discarded: outcome.discarded,
		Shared:    shared,
	}, nil
}

func (c *Coordinator) fetchIdentity(ctx context.Context, token string) (fetchOutcome, error) {
	start := c.now()
	user, err := c.exchange.FetchIdentity(ctx, token)
	c.observeExchange(start)
	if err == nil && user == nil {
		err = ErrMalformedExchangeResult
	}
	if err != nil {
		c.metricInc(MetricRehydrateFailure)
		c.emit(ctx, eventRehydrateFailure, false, nil, err, elapsedMetadata(start))
		c.logger.WarnContext(ctx, "identity fetch failed", "error", err)
		return fetchOutcome{}, err
	}

	user = user.Clone()
	if !c.commitIdentity(ctx, token, user) {
		c.metricInc(MetricRehydrateDiscarded)
		c.emit(ctx, eventRehydrateDiscarded, false, user, nil, nil)
		c.logger.DebugContext(ctx, "identity fetch discarded, token changed while in flight", "user_id", user.ID)
		return fetchOutcome{user: user, discarded: true}, nil
	}

	c.metricInc(MetricRehydrateSuccess)
	c.emit(ctx, eventRehydrateSuccess, true, user, nil, elapsedMetadata(start))
	c.logger.DebugContext(ctx, "identity fetched", "user_id", user.ID)
	return fetchOutcome{user: user}, nil
}

// commitIdentity attaches user to the session if token is still current.
func (c *Coordinator) commitIdentity(ctx context.Context, token string, user *UserIdentity) bool {
	ctx = context.WithoutCancel(ctx)

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if c.state.Token() != token {
		return false
	}
	c.seedUser(ctx, token, user)
	return c.state.setUser(user)
}

// Logout clears the slot, wipes the request cache and resets the session.
// It makes no network call and cannot fail: persistence errors are logged
// and the in-memory session is cleared regardless.
func (c *Coordinator) Logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	prev := c.clearSession(ctx)

	c.metricInc(MetricLogout)
	c.emit(ctx, eventLogout, true, prev.User, nil, nil)
	c.logger.InfoContext(ctx, "logged out", "was_authenticated", prev.Token != "")
}

func (c *Coordinator) clearSession(ctx context.Context) Snapshot {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	prev := c.state.Snapshot()

	if err := c.slot.Clear(ctx); err != nil {
		c.slotFailure(ctx, "clear", MetricSlotClearFailure, err)
	} else {
		c.setSlotErr(nil)
	}
	if err := c.cache.Clear(ctx); err != nil {
		c.metricInc(MetricCacheClearFailure)
		c.logger.ErrorContext(ctx, "request cache clear failed", "error", err)
	}
	if prev.Token != "" {
		c.fetches.Forget(prev.Token)
	}
	c.state.apply("", nil)
	return prev
}

// CurrentUser serves the current identity from the request cache, falling
// back to [Coordinator.FetchCurrentUser] on a miss. A cached identity written
// for a different token counts as a miss.
func (c *Coordinator) CurrentUser(ctx context.Context) (*UserIdentity, error) {
	token := c.state.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	if user, ok := c.cachedUser(ctx, token); ok {
		c.metricInc(MetricCacheHit)
		return user, nil
	}
	c.metricInc(MetricCacheMiss)

	res, err := c.FetchCurrentUser(ctx, true)
	if err != nil {
		return nil, err
	}
	if res.Discarded {
		// The session moved on while fetching; answer for the new one.
		current := c.state.Token()
		if current == "" {
			return nil, ErrNotAuthenticated
		}
		if user, ok := c.cachedUser(ctx, current); ok {
			return user, nil
		}
		if user := c.state.User(); user != nil {
			return user, nil
		}
		return nil, ErrNotAuthenticated
	}
	return res.User, nil
}

func (c *Coordinator) cachedUser(ctx context.Context, token string) (*UserIdentity, bool) {
	var entry CachedIdentity
	ok, err := c.cache.Get(ctx, c.config.Cache.CurrentUserKey, &entry)
	if err != nil {
		c.logger.WarnContext(ctx, "request cache read failed", "key", c.config.Cache.CurrentUserKey, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if !entry.BelongsTo(token) {
		c.logger.DebugContext(ctx, "cached identity belongs to another token, ignoring", "key", c.config.Cache.CurrentUserKey)
		return nil, false
	}
	return entry.User, true
}

// Bootstrap issues the first rehydration on its own goroutine and opens the
// gate once the fetch has been issued. It runs once; later calls return the
// same gate. Rehydration failures are logged, never returned.
func (c *Coordinator) Bootstrap(ctx context.Context) *BootstrapGate {
	c.bootstrapOnce.Do(func() {
		token := c.state.Token()
		issued := make(chan struct{})

		go func() {
			defer close(c.rehydrated)
			close(issued)
			if _, err := c.FetchCurrentUser(ctx, token != ""); err != nil {
				c.logger.WarnContext(ctx, "rehydration failed, continuing without identity", "error", err)
			}
		}()

		<-issued
		if c.gate.open() {
			c.emit(ctx, eventBootstrapReady, true, nil, nil, func() map[string]string {
				if token != "" {
					return map[string]string{"rehydrating": "true"}
				}
				return map[string]string{"rehydrating": "false"}
			})
			c.logger.DebugContext(ctx, "bootstrap gate open", "rehydrating", token != "")
		}
	})
	return c.gate
}

// WaitRehydrated blocks until the rehydration started by Bootstrap has
// finished, whatever its outcome.
func (c *Coordinator) WaitRehydrated(ctx context.Context) error {
	if !c.gate.Ready() {
		return ErrCoordinatorNotReady
	}
	select {
	case <-c.rehydrated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SlotErr returns the last token slot failure, wrapped in
// [ErrSlotUnavailable], or nil once the slot has worked again.
func (c *Coordinator) SlotErr() error {
	c.slotErrMu.Lock()
	defer c.slotErrMu.Unlock()
	return c.slotErr
}

func (c *Coordinator) setSlotErr(err error) {
	c.slotErrMu.Lock()
	c.slotErr = err
	c.slotErrMu.Unlock()
}

// MetricsSnapshot returns a copy of all coordinator metrics.
func (c *Coordinator) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// EventsDropped returns how many events were dropped because the dispatch
// buffer was full.
func (c *Coordinator) EventsDropped() uint64 {
	return c.events.Dropped()
}

// Close flushes queued events. The session itself stays usable.
func (c *Coordinator) Close() {
	c.events.Close()
}

func (c *Coordinator) seedFromSlot(ctx context.Context) {
	token, ok, err := c.slot.Read(ctx)
	if err != nil {
		c.slotFailure(ctx, "read", MetricSlotReadFailure, err)
		return
	}
	if ok && token != "" {
		c.state.setToken(token)
		c.logger.DebugContext(ctx, "session token restored from slot")
	}
}

func (c *Coordinator) seedUser(ctx context.Context, token string, user *UserIdentity) {
	entry := CachedIdentity{TokenHash: TokenHash(token), User: user}
	if err := c.cache.Set(ctx, c.config.Cache.CurrentUserKey, entry); err != nil {
		c.metricInc(MetricCacheWriteFailure)
		c.logger.WarnContext(ctx, "request cache write failed", "key", c.config.Cache.CurrentUserKey, "error", err)
	}
}

func (c *Coordinator) slotFailure(ctx context.Context, op string, id MetricID, err error) {
	wrapped := fmt.Errorf("%w: %s: %w", ErrSlotUnavailable, op, err)
	c.setSlotErr(wrapped)
	c.metricInc(id)
	c.emit(ctx, eventSlotUnavailable, false, nil, err, func() map[string]string {
		return map[string]string{"op": op}
	})
	c.logger.ErrorContext(ctx, "token slot "+op+" failed, session continues in memory", "error", err)
}

func (c *Coordinator) metricInc(id MetricID) {
	c.metrics.Inc(id)
}

func (c *Coordinator) observeExchange(start time.Time) {
	c.metrics.Observe(MetricExchangeLatency, c.now().Sub(start))
}
