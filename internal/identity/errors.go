package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials signals a rejected email/password pair.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrEmailNotConfirmed signals sign-in before the address was confirmed.
	ErrEmailNotConfirmed = errors.New("identity: email not confirmed")
	// ErrAlreadyRegistered signals a duplicate signup for an existing email.
	ErrAlreadyRegistered = errors.New("identity: email already registered")
	// ErrUnavailable signals the identity service could not be reached or
	// failed internally.
	ErrUnavailable = errors.New("identity: service unavailable")
	// ErrNoSession signals an operation that needs an active session.
	ErrNoSession = errors.New("identity: no active session")
)

type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

// classify maps an identity-service error response to the closed error set.
// Classification keys off the machine-readable code and HTTP status only;
// human-readable message text is never inspected.
func classify(status int, resp errorResponse) error {
	code := resp.ErrorCode
	if code == "" {
		code = resp.Error
	}

	switch code {
	case "invalid_credentials", "invalid_grant":
		return ErrInvalidCredentials
	case "email_not_confirmed":
		return ErrEmailNotConfirmed
	case "user_already_exists", "email_exists":
		return ErrAlreadyRegistered
	}

	if status >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
	if status == 401 {
		return ErrInvalidCredentials
	}
	if status == 422 && code == "" {
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("identity: request rejected (status %d, code %q)", status, code)
}
