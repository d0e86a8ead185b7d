package membership

import (
	"context"
	"errors"
	"fmt"
)

// Caller-facing error kinds. The HTTP layer maps these with errors.Is.
var (
	// ErrInvalidInput is a user-correctable request problem (e.g. empty join code).
	ErrInvalidInput = errors.New("invalid input")
	// ErrOrgNotFound is returned when no organization matches a join code or id.
	ErrOrgNotFound = errors.New("invalid join code")
	// ErrUserNotFound is returned when the acting user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotMember is returned when an operation requires an active membership.
	ErrNotMember = errors.New("not a member of this organization")
	// ErrInvalidArgument marks a programming error such as a document without an id.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("a user with this email already exists")

	// ErrStoreUnavailable and ErrStoreTimeout are transient; callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreTimeout     = errors.New("store timeout")

	// ErrConflict means a guarded write lost to a concurrent change.
	ErrConflict = errors.New("document changed concurrently")
	// ErrJoinCodeTaken is returned by InsertOrganization on a join code collision.
	ErrJoinCodeTaken = errors.New("join code already in use")
	// ErrJoinCodeExhausted means no unique join code could be generated.
	ErrJoinCodeExhausted = errors.New("could not allocate a unique join code")
)

// Retryable reports whether err is a transient store failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrStoreTimeout) || errors.Is(err, ErrConflict)
}

// storeErr normalizes deadline expiry into ErrStoreTimeout. Errors that
// already carry a kind are returned unchanged.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreTimeout) || errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
