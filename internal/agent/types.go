// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RequestContext carries the operator's current console position. The backend
// scopes tool access and data visibility from these fields.
type RequestContext struct {
	// Pathname is the console route the operator is viewing.
	Pathname string `json:"pathname"`

	// ActiveTenant is the tenant whose workspace is selected.
	ActiveTenant string `json:"activeTenant"`

	// ActiveContext names the data scope within the tenant, such as a
	// campaign or segment view.
	ActiveContext string `json:"activeContext"`
}

// Request is the body of one streaming chat call.
type Request struct {
	// Message is the raw user input, sent verbatim.
	Message string `json:"message"`

	// SessionID continues an existing exchange. Nil on the first message;
	// the backend then mints a session and announces it on message_start.
	SessionID *string `json:"session_id"`

	// Context is captured at send time and immutable for the stream's
	// duration.
	Context RequestContext `json:"context"`

	// Stream is always true; the endpoint has no buffered mode.
	Stream bool `json:"stream"`
}

// NewRequest builds a request for the given message and context. sessionID
// may be empty, which serializes as null.
func NewRequest(message, sessionID string, rctx RequestContext) Request {
	req := Request{
		Message: message,
		Context: rctx,
		Stream:  true,
	}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	return req
}
