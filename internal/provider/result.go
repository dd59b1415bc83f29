package provider

import (
	"context"
	"errors"
	"net"
	"time"
)

// Kind tags the outcome of a provider call.
type Kind string

const (
	KindSuccess       Kind = "success"
	KindTimeout       Kind = "timeout"
	KindAuth          Kind = "auth"
	KindUpstreamError Kind = "upstream_error"
	KindNotConfigured Kind = "not_configured"
)

// Result is the provider boundary: raw HTTP/JSON shapes stop here.
type Result struct {
	Kind      Kind
	Text      string
	Structure StructureKind
	Attempts  int
	Duration  time.Duration
	Err       error
}

// OK reports whether the upstream produced a usable completion.
func (r Result) OK() bool { return r.Kind == KindSuccess }

// Error is a classified provider failure.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Msg + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification of err. Unclassified errors are
// upstream errors, except deadline and network timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUpstreamError
}

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsAuth reports whether err is a credentials failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// classifyStatus maps a non-2xx upstream status to a Kind.
func classifyStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 408 || status == 504:
		return KindTimeout
	default:
		return KindUpstreamError
	}
}
