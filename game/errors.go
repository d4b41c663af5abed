package game

import "fmt"

// ErrorCode is the stable machine-readable identifier attached to every
// engine error. Callers branch on the code, never on the message text.
type ErrorCode string

const (
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeInvalidBetShape   ErrorCode = "INVALID_BET_SHAPE"
	CodeOutOfRange        ErrorCode = "OUT_OF_RANGE"
	CodeExposureExceeded  ErrorCode = "EXPOSURE_EXCEEDED"
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeFairnessMismatch  ErrorCode = "FAIRNESS_MISMATCH"
	CodeUnknownGame       ErrorCode = "UNKNOWN_GAME"
	CodeConfigError       ErrorCode = "CONFIG_ERROR"
	CodeUnknownSession    ErrorCode = "UNKNOWN_SESSION"
)

// Error is the engine's error type. It wraps an optional cause so that
// errors from collaborators (e.g. the balance service) survive unchanged
// under errors.Is / errors.As.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code, so sentinel comparisons
// like errors.Is(err, game.ErrInvalidState) work regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinel values for errors.Is checks.
var (
	ErrInvalidState      = &Error{Code: CodeInvalidState}
	ErrInvalidBetShape   = &Error{Code: CodeInvalidBetShape}
	ErrOutOfRange        = &Error{Code: CodeOutOfRange}
	ErrExposureExceeded  = &Error{Code: CodeExposureExceeded}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds}
	ErrFairnessMismatch  = &Error{Code: CodeFairnessMismatch}
	ErrUnknownGame       = &Error{Code: CodeUnknownGame}
	ErrConfigError       = &Error{Code: CodeConfigError}
	ErrUnknownSession    = &Error{Code: CodeUnknownSession}
)
