package entsoe

import (
	"errors"
	"fmt"

	"entsoe-agent/internal/model"
)

const (
	KindUnsupportedCountry = model.KindUnsupportedCountry
	KindMissingCredential  = model.KindMissingCredential
	KindTransportFailure   = model.KindTransportFailure
	KindRateLimited        = model.KindRateLimited
	KindUnauthorized       = model.KindUnauthorized
	KindBadParameters      = model.KindBadParameters
	KindNoDataFound        = model.KindNoDataFound
	KindMalformedDocument  = model.KindMalformedDocument
	KindInvalidRequest     = model.KindInvalidRequest
)

// Error represents a failure talking to, or reading from, the transparency platform.
type Error struct {
	Kind       model.ErrorKind
	StatusCode int
	Code       string // reason code from an acknowledgement document
	Message    string
	RetryAfter string // For rate limit errors
	Snippet    string // truncated payload for malformed documents
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind carried by err, or transport_failure
// for errors that did not originate in this package.
func KindOf(err error) model.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransportFailure
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind model.ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func invalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
