// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota

	// ErrTypeTransport covers network failures, timeouts, and connections
	// dropped mid-stream.
	ErrTypeTransport

	// ErrTypeProtocol covers responses the client cannot interpret, such as
	// a non-stream content type or an unreadable body.
	ErrTypeProtocol

	// ErrTypeApplication covers well-formed backend refusals: auth failures,
	// rate limits, and in-band error chunks.
	ErrTypeApplication

	// ErrTypeGuard covers client-side precondition failures, such as opening
	// a second stream while one is in flight.
	ErrTypeGuard
)

// String returns the taxonomy name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransport:
		return "transport"
	case ErrTypeProtocol:
		return "protocol"
	case ErrTypeApplication:
		return "application"
	case ErrTypeGuard:
		return "guard"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the agent client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel ClientErrors by type, so errors.Is works on wrapped
// values without pointer identity.
func (e *ClientError) Is(target error) bool {
	var ce *ClientError
	if !errors.As(target, &ce) {
		return false
	}
	return e.Type == ce.Type && (ce.Message == "" || ce.Message == e.Message)
}

// Sentinel errors for easy checking.
var (
	ErrStreamInFlight     = &ClientError{Type: ErrTypeGuard, Message: "a stream is already in flight"}
	ErrBackendUnavailable = &ClientError{Type: ErrTypeTransport, Message: "agent backend is unreachable"}
	ErrTimeout            = &ClientError{Type: ErrTypeTransport, Message: "request timed out"}
	ErrRateLimited        = &ClientError{Type: ErrTypeApplication, Message: "rate limited by the backend"}
	ErrUnauthorized       = &ClientError{Type: ErrTypeApplication, Message: "request was not authorized"}
)

// IsTransport reports whether err belongs to the transport category.
func IsTransport(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTransport
}

// IsGuard reports whether err is a client-side precondition failure.
func IsGuard(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeGuard
}
