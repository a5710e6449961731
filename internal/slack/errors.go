package slack

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the machine-readable classification carried by every error
// that leaves this package.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindAPI         ErrorKind = "api_error"
	KindHTTP        ErrorKind = "http_error"
	KindTransport   ErrorKind = "transport_error"
	KindConfig      ErrorKind = "config_error"
	KindClosed      ErrorKind = "client_closed"
)

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New("slack client closed")

// Error is a classified failure of a single web API call.
type Error struct {
	Kind       ErrorKind
	Endpoint   string
	Code       string        // Slack error code for KindAPI
	StatusCode int           // HTTP status for KindHTTP
	RetryAfter time.Duration // advised delay for KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		return fmt.Sprintf("slack %s: %s", e.Endpoint, e.Code)
	case KindHTTP:
		return fmt.Sprintf("slack %s: http %d", e.Endpoint, e.StatusCode)
	case KindRateLimited:
		return fmt.Sprintf("slack %s: rate limited (retry after %s)", e.Endpoint, e.RetryAfter)
	}
	if e.Err != nil {
		return fmt.Sprintf("slack %s: %s: %v", e.Endpoint, e.Kind, e.Err)
	}
	return fmt.Sprintf("slack %s: %s", e.Endpoint, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind satisfies Classified.
func (e *Error) ErrorKind() ErrorKind {
	return e.Kind
}

// Classified is implemented by errors that know their own ErrorKind.
type Classified interface {
	error
	ErrorKind() ErrorKind
}

// KindOf classifies err. Unclassified errors are reported as transport
// errors; nil yields "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	return KindTransport
}

// IsAPIError reports whether err is a Slack API error with the given code.
func IsAPIError(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAPI && e.Code == code
}
