package factory

import (
	"errors"
	"fmt"
)

// Code categorizes factory errors.
type Code string

const (
	// CodeUnauthorized indicates the access gate rejected the sender.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeNotOperational indicates the operational gate is closed.
	CodeNotOperational Code = "NOT_OPERATIONAL"

	// CodeNotConfigured indicates the template slot was never written.
	CodeNotConfigured Code = "NOT_CONFIGURED"

	// CodeUnexpectedToken indicates a reply carried a token the factory did not issue.
	CodeUnexpectedToken Code = "UNEXPECTED_TOKEN"

	// CodeMalformedCompletion indicates a successful spawn reply without data.
	CodeMalformedCompletion Code = "MALFORMED_COMPLETION"

	// CodeDeserialization indicates reply data or stored extras did not decode.
	CodeDeserialization Code = "DESERIALIZATION"

	// CodeDuplicateKey indicates the child address is already registered.
	CodeDuplicateKey Code = "DUPLICATE_KEY"

	// CodeInvalidAddress indicates an address failed canonicalization.
	CodeInvalidAddress Code = "INVALID_ADDRESS"

	// CodeInvalidMessage indicates an entry-point message did not decode.
	CodeInvalidMessage Code = "INVALID_MESSAGE"
)

// Error is a factory failure with a stable code. Any Error returned from an
// entry point aborts the host transaction.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if
// there is none.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
