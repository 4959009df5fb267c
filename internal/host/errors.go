package host

import "errors"

var (
	// ErrStopped is returned when work is submitted to a stopped host.
	ErrStopped = errors.New("host stopped")

	// ErrUnknownProgram is returned when a code ID names a program the host
	// was not built with.
	ErrUnknownProgram = errors.New("unknown program")

	// ErrCodeHashMismatch is returned when an instantiate request names a
	// code hash that differs from the stored code's hash.
	ErrCodeHashMismatch = errors.New("code hash mismatch")

	// ErrEmptyLabel is returned when a contract would be created without a label.
	ErrEmptyLabel = errors.New("label is required")

	// ErrMaxDepth is returned when submessages nest deeper than the host allows.
	ErrMaxDepth = errors.New("maximum submessage depth exceeded")
)
