package apolloAuth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/apolloAuth/tokenslot"
)

const (
	eventLoginSuccess       = "login_success"
	eventLoginFailure       = "login_failure"
	eventSignupSuccess      = "signup_success"
	eventSignupFailure      = "signup_failure"
	eventRehydrateSuccess   = "rehydrate_success"
	eventRehydrateFailure   = "rehydrate_failure"
	eventRehydrateDiscarded = "rehydrate_discarded"
	eventLogout             = "logout"
	eventSlotUnavailable    = "token_slot_unavailable"
	eventBootstrapReady     = "bootstrap_ready"
)

// EventErrorCode is the stable error classification carried in [Event.Error].
type EventErrorCode string

const (
	eventErrInvalidInput     EventErrorCode = "invalid_input"
	eventErrMalformedResult  EventErrorCode = "malformed_result"
	eventErrNotAuthenticated EventErrorCode = "not_authenticated"
	eventErrSlotUnavailable  EventErrorCode = "slot_unavailable"
	eventErrSlotCorrupt      EventErrorCode = "slot_corrupt"
	eventErrCanceled         EventErrorCode = "canceled"
	eventErrTimeout          EventErrorCode = "timeout"
	eventErrExchange         EventErrorCode = "exchange_error"
)

// statusCoder is satisfied by transport errors that carry an HTTP status,
// such as *exchange.APIError.
type statusCoder interface {
	Status() int
}

func (c *Coordinator) emit(
	ctx context.Context,
	eventType string,
	success bool,
	user *UserIdentity,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.events == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := Event{
		Timestamp:     c.now().UTC(),
		EventType:     eventType,
		CorrelationID: CorrelationIDFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if user != nil {
		event.UserID = strconv.FormatInt(user.ID, 10)
		event.Email = user.Email
	}
	if code := eventErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.events.Emit(ctx, event)
}

func eventErrorCode(err error) EventErrorCode {
	if err == nil {
		return ""
	}

	var sc statusCoder
	switch {
	case errors.Is(err, ErrInvalidInput):
		return eventErrInvalidInput
	case errors.Is(err, ErrMalformedExchangeResult):
		return eventErrMalformedResult
	case errors.Is(err, ErrNotAuthenticated):
		return eventErrNotAuthenticated
	case errors.Is(err, tokenslot.ErrCorruptRecord):
		return eventErrSlotCorrupt
	case errors.Is(err, tokenslot.ErrUnavailable), errors.Is(err, ErrSlotUnavailable):
		return eventErrSlotUnavailable
	case errors.Is(err, context.Canceled):
		return eventErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return eventErrTimeout
	case errors.As(err, &sc):
		return EventErrorCode("http_" + strconv.Itoa(sc.Status()))
	default:
		return eventErrExchange
	}
}

func elapsedMetadata(start time.Time) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"elapsed_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10)}
	}
}
