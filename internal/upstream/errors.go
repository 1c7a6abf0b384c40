// Package upstream classifies failures of outbound calls to ledger, quote and
// source-hosting services.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind identifies a class of upstream failure.
type Kind string

// Failure kinds.
const (
	KindNone              Kind = ""
	KindNetwork           Kind = "network"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindHTTP              Kind = "http"
	KindParse             Kind = "parse"
	KindRPC               Kind = "rpc"
	KindMissingCredential Kind = "missing_credential"
	KindUnknown           Kind = "unknown"
)

// ErrMissingCredential is returned when a call requires an API key that is not configured.
var ErrMissingCredential = errors.New("missing credential")

// Error is a classified upstream failure.
type Error struct {
	Source string // e.g. "solana", "coingecko", "github"
	Kind   Kind
	Status int // HTTP status, 0 when not applicable
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(source string, kind Kind, err error) *Error {
	return &Error{Source: source, Kind: kind, Err: err}
}

// Network wraps a transport-level failure (dial, reset, timeout).
func Network(source string, err error) *Error {
	return &Error{Source: source, Kind: KindNetwork, Err: err}
}

// Parse wraps a decode failure or a missing expected field.
func Parse(source string, err error) *Error {
	return &Error{Source: source, Kind: KindParse, Err: err}
}

// MissingCredential reports that source cannot be queried without a key.
func MissingCredential(source string) *Error {
	return &Error{Source: source, Kind: KindMissingCredential, Err: ErrMissingCredential}
}

// HTTPStatus classifies a non-2xx response. 403 and 429 are both treated as forbidden,
// since providers use either for rate limiting.
func HTTPStatus(source string, status int, body string) *Error {
	kind := KindHTTP
	switch status {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		kind = KindForbidden
	}
	return &Error{
		Source: source,
		Kind:   kind,
		Status: status,
		Err:    fmt.Errorf("unexpected status %d: %s", status, truncate(body, 256)),
	}
}

// KindOf returns the failure class of err. Unclassified transport errors and
// context deadlines are reported as KindNetwork.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	if errors.Is(err, ErrMissingCredential) {
		return KindMissingCredential
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
