package suggest

import "net/http"

// ErrorKind is the error tag reported in SuggestResponse.Error.
type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindTimeout       ErrorKind = "timeout"
	KindAuth          ErrorKind = "auth"
	KindUpstreamError ErrorKind = "upstream_error"
	KindNotConfigured ErrorKind = "not_configured"
	KindBusy          ErrorKind = "busy"
)

// invalidInputError rejects a request before any work is done (400).
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string   { return "invalid input: " + e.msg }
func (e invalidInputError) StatusCode() int { return http.StatusBadRequest }

// ErrInvalidInput constructs an invalid input error.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err rejects the request as malformed.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}
