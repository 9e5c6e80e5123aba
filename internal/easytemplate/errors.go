package easytemplate

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure so callers can decide how to react without
// inspecting message text.
type Kind string

// Failure kinds.
const (
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate-limited"
	KindRemote      Kind = "remote"
	KindCache       Kind = "cache"
)

// Sentinel errors. Use errors.Is(err, easytemplate.ErrNotAuthenticated) to check.
var (
	ErrNotAuthenticated = errors.New("not authenticated, login required")
	ErrSessionExpired   = errors.New("session expired, login required")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("rate limited")
	ErrNotFound         = errors.New("not found")
	ErrRemote           = errors.New("remote error")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Error is the single error type returned by Client operations. Kind
// carries the classification, Detail the human-readable message taken from
// the response body when one was available.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Detail     string
	RetryAfter time.Duration
	Err        error // sentinel or transport error, for errors.Is()
}

func (e *Error) Error() string {
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Op == "" {
		return detail
	}
	return fmt.Sprintf("%s failed: %s", e.Op, detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var etErr *Error
	if errors.As(err, &etErr) {
		return etErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var etErr *Error
	if errors.As(err, &etErr) {
		return etErr.Kind
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0 if none.
func StatusCode(err error) int {
	var etErr *Error
	if errors.As(err, &etErr) {
		return etErr.StatusCode
	}
	return 0
}

// classifyStatus maps a failure status to a kind and sentinel.
func classifyStatus(code int) (Kind, error) {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth, ErrUnauthorized
	case http.StatusTooManyRequests:
		return KindRateLimited, ErrRateLimited
	case http.StatusNotFound:
		return KindRemote, ErrNotFound
	default:
		return KindRemote, ErrRemote
	}
}

// withOp returns a copy of err tagged with op unless it already names one.
// Errors that are not *Error are wrapped as remote failures.
func withOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var etErr *Error
	if errors.As(err, &etErr) {
		if etErr.Op != "" {
			return err
		}
		tagged := *etErr
		tagged.Op = op
		return &tagged
	}
	return &Error{Kind: KindRemote, Op: op, Err: err}
}

func invalidRequest(op, detail string) error {
	return &Error{Kind: KindRemote, Op: op, Detail: detail, Err: ErrInvalidRequest}
}
