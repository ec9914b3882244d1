// Package errs defines the error kinds shared by the queue, playlist and
// identity layers. Callers test for them with errors.Is.
package errs

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned when a referenced user, entry, playlist or position does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPolicyDenied is returned when moderation policy rejects an action.
	ErrPolicyDenied = errors.New("policy denied")
	// ErrInvalidState is returned when an entry is not in the status an operation requires.
	ErrInvalidState = errors.New("invalid state")
	// ErrAlreadyExists is returned when a track is already present in a playlist.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPermissionDenied is returned when the caller may not mutate the target.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PolicyError carries the rule code and user-facing reason of a denial.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "policy denied: " + e.Code
}

// Is makes errors.Is(err, ErrPolicyDenied) hold for every PolicyError.
func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyDenied
}

// Denied returns a PolicyError for the given code and message.
func Denied(code, message string) error {
	return &PolicyError{Code: code, Message: message}
}

// PolicyCode extracts the rule code from a policy denial, or "".
func PolicyCode(err error) string {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
