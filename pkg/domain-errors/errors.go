// Package domainerrors carries typed failure kinds across the ledger.
//
// Every operation fails with exactly one Code. Callers branch on the code with
// HasCode rather than on message text; the message is for humans and logs.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure, not its representation.
type Code string

const (
	// Ledger failure kinds.
	CodeUnauthorized         Code = "unauthorized"
	CodeAssetNotFound        Code = "asset_not_found"
	CodeRecipientNotVerified Code = "recipient_not_verified"
	CodeAssetNotCompliant    Code = "asset_not_compliant"
	CodeAssetNotActive       Code = "asset_not_active"
	CodePaused               Code = "paused"
	CodeAlreadyPaused        Code = "already_paused"
	CodeAlreadyUnpaused      Code = "already_unpaused"
	CodeEmptyBatch           Code = "empty_batch"
	CodeBatchTooLarge        Code = "batch_too_large"
	CodeReentrantCall        Code = "reentrant_call"
	CodeReceiptRejected      Code = "receipt_rejected"

	// Ambient kinds.
	CodeInvalidInput Code = "invalid_input"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error is a coded failure, optionally wrapping its cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code, so errors.Is(err, New(code, ""))
// works as a code check.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New returns a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Ensure returns err unchanged when it already carries a code, and otherwise
// wraps it like Wrap. A nil err yields nil.
func Ensure(err error, code Code, message string) error {
	if err == nil || CodeOf(err) != "" {
		return err
	}
	return Wrap(err, code, message)
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the outermost code in err's chain, or "" when err is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
