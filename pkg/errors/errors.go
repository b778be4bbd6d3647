package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind represents the different kinds of failures that can occur when
// talking to Instagram, regardless of which backend produced them
type Kind string

const (
	KindAuth           Kind = "auth"
	KindSessionExpired Kind = "session_expired"
	KindRateLimit      Kind = "rate_limit"
	KindChallenge      Kind = "challenge"
	KindNotFound       Kind = "not_found"
	KindNetwork        Kind = "network"
	KindParsing        Kind = "parsing"
	KindUnknown        Kind = "unknown"
)

// Error is a classified failure. RetryAfter is a hint only set for
// rate-limit errors when the backend provided one.
type Error struct {
	Kind       Kind
	Message    string
	Code       int
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// New creates a classified error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from any error. Unclassified errors report
// KindUnknown; nil reports an empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RetryAfterHint returns the backoff hint carried by a rate-limit error,
// or zero if the error carries none.
func RetryAfterHint(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

func IsAuth(err error) bool           { return KindOf(err) == KindAuth }
func IsSessionExpired(err error) bool { return KindOf(err) == KindSessionExpired }
func IsRateLimit(err error) bool      { return KindOf(err) == KindRateLimit }
func IsChallenge(err error) bool      { return KindOf(err) == KindChallenge }
func IsNotFound(err error) bool       { return KindOf(err) == KindNotFound }

// Retryable reports whether an error of the given kind is worth retrying
// after a backoff. Rate limits are retryable only by a later, caller-driven
// attempt; auth and challenge failures need human intervention first.
func Retryable(kind Kind) bool {
	switch kind {
	case KindNetwork, KindRateLimit:
		return true
	case KindAuth, KindSessionExpired, KindChallenge, KindNotFound, KindParsing:
		return false
	default:
		return false
	}
}

// TransientNetwork reports whether the error is a transport-level failure
// that can be retried immediately without violating the pacing contract.
func TransientNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}
