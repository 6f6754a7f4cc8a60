package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnexpectedResponse is returned when a 2xx body cannot be decoded.
var ErrUnexpectedResponse = errors.New("unexpected response from credential API")

// APIError is a non-2xx answer from the credential API.
type APIError struct {
	StatusCode int
	// Detail is the server's "detail" message, or the status text when the
	// body carried none.
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("credential API %d: %s", e.StatusCode, e.Detail)
}

// Status returns the HTTP status code.
func (e *APIError) Status() int {
	return e.StatusCode
}

// Unauthorized reports whether the server rejected the credentials or token.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is an *APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseAPIError builds an APIError from a response body. The detail is
// either a plain string or a list of field validation issues.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Detail: http.StatusText(status)}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(eb.Detail, &msg); err == nil {
		apiErr.Detail = msg
		return apiErr
	}

	var issues []validationIssue
	if err := json.Unmarshal(eb.Detail, &issues); err == nil && len(issues) > 0 {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			parts = append(parts, formatIssue(issue))
		}
		apiErr.Detail = strings.Join(parts, "; ")
	}
	return apiErr
}

func formatIssue(issue validationIssue) string {
	var path []string
	for _, l := range issue.Loc {
		s := fmt.Sprint(l)
		if s == "body" {
			continue
		}
		path = append(path, s)
	}
	if len(path) == 0 {
		return issue.Msg
	}
	return strings.Join(path, ".") + ": " + issue.Msg
}
