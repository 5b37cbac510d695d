package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	ErrStorageTransient = errors.New("storage transient failure")
	ErrStorageFatal     = errors.New("storage fatal failure")
	ErrConversionFailed = errors.New("conversion failed")
)

// Reason identifies why a share authorization was denied.
type Reason string

const (
	ReasonNotFound      Reason = "not_found"
	ReasonDeactivated   Reason = "deactivated"
	ReasonExpired       Reason = "expired"
	ReasonExhausted     Reason = "exhausted"
	ReasonWrongPassword Reason = "wrong_password"
	ReasonEmailMismatch Reason = "email_mismatch"
)

// DeniedError carries the policy denial reason. It is terminal and never
// retried.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

func Denied(reason Reason) error {
	return &DeniedError{Reason: reason}
}

// DenialReason extracts the denial reason from an error chain.
func DenialReason(err error) (Reason, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Reason, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsStorageTransient(err error) bool {
	return errors.Is(err, ErrStorageTransient)
}
