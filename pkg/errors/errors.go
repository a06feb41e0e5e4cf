package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies scraping errors into the categories the fetch and
// orchestration layers act on.
type Kind string

const (
	// KindNotFound means the hashtag does not exist. Terminal, never retried.
	KindNotFound Kind = "not_found"
	// KindRateLimited means the remote asked us to slow down (429).
	KindRateLimited Kind = "rate_limited"
	// KindBlocked means the remote refused the request or redirected to a
	// challenge page (403, login/challenge redirect).
	KindBlocked Kind = "blocked"
	// KindTransient covers network failures and 5xx responses.
	KindTransient Kind = "transient"
	// KindDecode means the payload could not be decoded. Re-fetching the same
	// bytes will not help, but a fresh fetch might.
	KindDecode Kind = "decode"
	// KindCancelled means the run was cancelled or its deadline passed.
	KindCancelled Kind = "cancelled"
	// KindUnknown is anything we could not classify.
	KindUnknown Kind = "unknown"
)

// Error is a classified scraping error, optionally carrying the HTTP status
// code that produced it.
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewHTTP creates a classified error carrying an HTTP status code.
func NewHTTP(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// KindOf extracts the Kind from an error chain. Context cancellation maps to
// KindCancelled; anything else unclassified maps to KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// IsRetryable reports whether an error of the given kind is worth retrying
// with backoff.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindRateLimited, KindBlocked, KindTransient:
		return true
	default:
		return false
	}
}

// KindFromStatusCode classifies an HTTP status code.
func KindFromStatusCode(code int) Kind {
	switch {
	case code >= 200 && code < 300:
		return ""
	case code == 429:
		return KindRateLimited
	case code == 403:
		return KindBlocked
	case code == 404:
		return KindNotFound
	case code >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}
