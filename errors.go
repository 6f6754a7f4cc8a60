package apolloAuth

import "errors"

var (
	// ErrNotAuthenticated is returned by identity reads when no token is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidInput is returned when client-side validation rejects credentials
	// or a signup profile. It is joined with the per-field errors.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedExchangeResult is returned when the credential exchange reports
	// success without a token or user.
	ErrMalformedExchangeResult = errors.New("credential exchange returned an incomplete result")
	// ErrCoordinatorNotReady is returned by WaitRehydrated before Bootstrap has run.
	ErrCoordinatorNotReady = errors.New("coordinator not bootstrapped")
	// ErrSlotUnavailable wraps the last token slot failure reported by
	// Coordinator.SlotErr.
	ErrSlotUnavailable = errors.New("token slot unavailable")
)
