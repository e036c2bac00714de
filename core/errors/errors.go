package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation marks malformed or out-of-range input.
	KindValidation
	// KindAuthorization marks a caller that is not the required owner,
	// starter or authority.
	KindAuthorization
	// KindState marks a record in the wrong lifecycle state.
	KindState
	// KindArithmetic marks checked arithmetic that overflowed or underflowed.
	KindArithmetic
	// KindNotFound marks a missing record or a broken relationship between
	// records.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindArithmetic:
		return "arithmetic"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a typed ledger error. Code is a stable identifier surfaced to
// callers; Message is human readable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// New constructs a typed error. Packages declare these as sentinels and
// compare with errors.Is.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Wrapf returns an error that matches e under errors.Is while carrying extra
// context in its message.
func (e *Error) Wrapf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first typed error in err's chain or
// "Internal" for untyped failures.
func CodeOf(err error) string {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Code
	}
	return "Internal"
}

var (
	ErrArithmeticOverflow  = New(KindArithmetic, "ArithmeticOverflow", "arithmetic overflow")
	ErrArithmeticUnderflow = New(KindArithmetic, "ArithmeticUnderflow", "arithmetic underflow")
	ErrUnauthorized        = New(KindAuthorization, "Unauthorized", "unauthorized")
	ErrModulePaused        = New(KindState, "ModulePaused", "module paused")
)
