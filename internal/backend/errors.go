package backend

import (
	"errors"
	"fmt"
)

// Reason classifies why a call could not be authorized.
type Reason string

const (
	ReasonNoCredential     Reason = "no_credential"
	ReasonExpiredRefresh   Reason = "expired_refresh"
	ReasonRefreshTransport Reason = "refresh_transport_failure"
	ReasonRefreshRejected  Reason = "refresh_rejected"
	ReasonRefreshMalformed Reason = "refresh_malformed_response"
)

var (
	// ErrNoCredential means the call needs authorization but no usable token is stored.
	ErrNoCredential = errors.New("no credential")
	// ErrExpiredRefresh means both the access and the refresh token are expired.
	ErrExpiredRefresh = errors.New("refresh token expired")
	// ErrRefreshTransport wraps network failures of the refresh call.
	ErrRefreshTransport = errors.New("refresh transport failure")
	// ErrRefreshRejected means the backend answered the refresh call with a non-2xx status.
	ErrRefreshRejected = errors.New("refresh rejected")
	// ErrRefreshMalformed means the refresh call succeeded without an access token.
	ErrRefreshMalformed = errors.New("refresh response without access token")
)

// RedirectError is returned by the transport when the session must go back to
// the login page. The caller performs the redirect and wipes the session.
type RedirectError struct {
	Reason Reason
	Err    error
}

func (e *RedirectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login required (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("login required (%s)", e.Reason)
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// AsRedirect extracts a RedirectError from err, including errors wrapped by
// net/http.
func AsRedirect(err error) (*RedirectError, bool) {
	var re *RedirectError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func reasonOf(err error) Reason {
	switch {
	case errors.Is(err, ErrExpiredRefresh):
		return ReasonExpiredRefresh
	case errors.Is(err, ErrRefreshRejected):
		return ReasonRefreshRejected
	case errors.Is(err, ErrRefreshMalformed):
		return ReasonRefreshMalformed
	case errors.Is(err, ErrNoCredential):
		return ReasonNoCredential
	default:
		return ReasonRefreshTransport
	}
}
