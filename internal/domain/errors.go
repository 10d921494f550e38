package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNotFound marks a location that could not be resolved.
var ErrNotFound = errors.New("location not found")

// ErrUnavailable marks a forecast that no provider could supply.
var ErrUnavailable = errors.New("forecast unavailable")

// FailureKind narrows why an upstream call did not produce data.
type FailureKind string

const (
	KindNotFound      FailureKind = "not_found"
	KindEmpty         FailureKind = "empty"
	KindTimeout       FailureKind = "timeout"
	KindTransport     FailureKind = "transport"
	KindStatus        FailureKind = "status"
	KindMalformed     FailureKind = "malformed"
	KindHorizon       FailureKind = "horizon"
	KindCircuitOpen   FailureKind = "circuit_open"
	KindNotConfigured FailureKind = "not_configured"
	KindPanic         FailureKind = "panic"
)

// ProviderError is returned by weather providers. It always satisfies
// errors.Is(err, ErrUnavailable).
type ProviderError struct {
	Provider Source
	Kind     FailureKind
	Status   int // HTTP status when Kind is KindStatus
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrUnavailable }

// LookupError is returned by geocoders and the location resolver. It always
// satisfies errors.Is(err, ErrNotFound).
type LookupError struct {
	Method string // "forward" or "reverse"
	Query  string
	Kind   FailureKind
	Status string // provider status string, e.g. "REQUEST_DENIED"
	Err    error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("%s geocode %q: %s", e.Method, e.Query, e.Kind)
	if e.Status != "" {
		msg += " (" + e.Status + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrNotFound }

// Unavailable builds a ProviderError.
func Unavailable(provider Source, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from a provider or lookup error, falling
// back to classifying the transport error itself.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ClassifyTransport(err)
}

// ClassifyTransport maps a low-level request error to timeout or transport.
func ClassifyTransport(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
