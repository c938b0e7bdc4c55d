// Package errs implements the MSG error taxonomy from spec §7. These are
// concepts, not SA_AIS_* type names: each ErrorCode is what the exec
// apply engine stamps onto a response header, and what propagates back
// to the originating client regardless of whether the record crossed
// the network.
package errs

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the taxonomy in spec §7.
type ErrorCode int

const (
	OK ErrorCode = iota
	NotExist
	Exist
	BadHandle
	InvalidParam
	NoMemory
	TryAgain
	Timeout
	QueueFull
	Library
	Security
	Interrupt
)

func (c ErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case NotExist:
		return "NOT_EXIST"
	case Exist:
		return "EXIST"
	case BadHandle:
		return "BAD_HANDLE"
	case InvalidParam:
		return "INVALID_PARAM"
	case NoMemory:
		return "NO_MEMORY"
	case TryAgain:
		return "TRY_AGAIN"
	case Timeout:
		return "TIMEOUT"
	case QueueFull:
		return "QUEUE_FULL"
	case Library:
		return "LIBRARY"
	case Security:
		return "SECURITY"
	case Interrupt:
		return "INTERRUPT"
	default:
		return "UNKNOWN"
	}
}

// CodedError pairs an ErrorCode with the underlying cause, so the exec
// apply engine can always recover the code to stamp on a response
// header (propagation rule in spec §7) without string matching.
type CodedError struct {
	Code  ErrorCode
	cause error
}

func (e *CodedError) Error() string {
	if e.cause == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.cause)
}

func (e *CodedError) Unwrap() error {
	return e.cause
}

// New builds a CodedError with no wrapped cause.
func New(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, cause: errors.New(message)}
}

// Wrap attaches a code to an existing error.
func Wrap(code ErrorCode, cause error) *CodedError {
	return &CodedError{Code: code, cause: cause}
}

// CodeOf extracts the ErrorCode from err, defaulting to Library for any
// error that did not originate as a CodedError (a framing error, per
// spec §7's LIBRARY case).
func CodeOf(err error) ErrorCode {
	if err == nil {
		return OK
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return Library
}

var (
	// ErrUnsupportedProtocol mirrors go-mcast's protocol.go sentinel.
	// Exec records carry no protocol version, and no code path in this
	// repository returns it.
	ErrUnsupportedProtocol = New(InvalidParam, "protocol version not supported")

	// ErrUnknownOp mirrors core/deliver.go's ErrCommandUnknown, raised
	// when an ExecRecord carries an op the apply engine doesn't know.
	ErrUnknownOp = New(InvalidParam, "unknown exec operation")
)
