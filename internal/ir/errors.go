package ir

import (
	"errors"
	"fmt"
)

// Error is a rejected marketplace operation.
//
// Every Error is caller-recoverable: the operation had no observable effect
// and may be retried with a different requester, target or argument.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that was rejected (e.g. "addAdmin").
	Op string

	// Requester is the identity that issued the call.
	Requester Identity

	// Target is the affected identity or store address, when there is one.
	Target Identity

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes rejected operations.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the requester lacks the required role.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeInvariantViolation indicates the operation would leave the
	// marketplace without an Administrator.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeInvalidArgument indicates a malformed input such as an empty
	// store name or the zero identity.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeNotFound indicates a store address that was never minted.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Target != ZeroIdentity:
		return fmt.Sprintf("%s: %s: %s (requester=%s, target=%s)", e.Code, e.Op, e.Message, IdentityHex(e.Requester), IdentityHex(e.Target))
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s (requester=%s)", e.Code, e.Op, e.Message, IdentityHex(e.Requester))
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf returns the ErrorCode of err, or "" when err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAuthorizationError reports whether err is an UNAUTHORIZED rejection.
func IsAuthorizationError(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}

// IsInvariantViolation reports whether err is an INVARIANT_VIOLATION rejection.
func IsInvariantViolation(err error) bool {
	return CodeOf(err) == ErrCodeInvariantViolation
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT rejection.
func IsInvalidArgument(err error) bool {
	return CodeOf(err) == ErrCodeInvalidArgument
}

// IsNotFound reports whether err is a NOT_FOUND rejection.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// NewUnauthorizedError creates an Error for a requester without the role op needs.
func NewUnauthorizedError(op string, requester Identity, need, has Role) *Error {
	return &Error{
		Code:      ErrCodeUnauthorized,
		Op:        op,
		Requester: requester,
		Message:   fmt.Sprintf("requires %s, requester is %s", need, has),
	}
}

// NewLastAdminError creates an Error for a transition that would remove the
// sole remaining Administrator.
func NewLastAdminError(op string, requester, target Identity) *Error {
	return &Error{
		Code:      ErrCodeInvariantViolation,
		Op:        op,
		Requester: requester,
		Target:    target,
		Message:   "cannot remove the last Administrator",
	}
}

// NewInvalidArgumentError creates an Error for a malformed input.
func NewInvalidArgumentError(op string, requester Identity, message string) *Error {
	return &Error{
		Code:      ErrCodeInvalidArgument,
		Op:        op,
		Requester: requester,
		Message:   message,
	}
}

// NewNotFoundError creates an Error for an unknown store address.
func NewNotFoundError(address Identity) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Target:  address,
		Message: fmt.Sprintf("no store at %s", IdentityHex(address)),
	}
}
