// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/beaconhq/console-agent/internal/agent"
	"github.com/beaconhq/console-agent/internal/conversation"
	"github.com/beaconhq/console-agent/internal/history"
	"github.com/beaconhq/console-agent/internal/protocol"
	"github.com/beaconhq/console-agent/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage rejects blank input before any state changes.
	ErrEmptyMessage = errors.New("message is empty")
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine drives one conversation against the agent backend.
type Engine struct {
	client  *agent.Client
	store   *conversation.Store
	tracker *conversation.Tracker
	session *session.Manager

	// hist is optional; a nil store disables persistence entirely.
	hist *history.Store

	// logger is optional; nil silences diagnostics.
	logger *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Options configures optional engine collaborators.
type Options struct {
	History *history.Store
	Logger  *log.Logger
}

// New creates an engine around the given client.
func New(client *agent.Client, opts Options) *Engine {
	store := conversation.NewStore()
	return &Engine{
		client:  client,
		store:   store,
		tracker: conversation.NewTracker(store),
		session: session.NewManager(),
		hist:    opts.History,
		logger:  opts.Logger,
	}
}

// SetContext updates the console position carried by subsequent sends.
func (e *Engine) SetContext(ctx session.Context) {
	e.session.SetContext(ctx)
}

// Snapshot returns the current conversation state.
func (e *Engine) Snapshot() conversation.State {
	return e.store.Snapshot()
}

// Tracker returns the tool call projection.
func (e *Engine) Tracker() *conversation.Tracker {
	return e.tracker
}

// Status returns the session view for display.
func (e *Engine) Status() session.Status {
	return e.session.Status()
}

// Streaming reports whether a send cycle is in progress.
func (e *Engine) Streaming() bool {
	return e.session.Streaming()
}

// Subscribe registers a state-change callback and returns the unsubscribe
// func. Callbacks fire on the stream goroutine after every applied chunk.
func (e *Engine) Subscribe(fn func()) func() {
	return e.store.Subscribe(fn)
}

// =============================================================================
// SEND CYCLE
// =============================================================================

// Send runs one full send cycle and blocks until the conversation reaches a
// terminal state. It returns nil on completion and on user cancellation;
// transport and backend failures return the classified error after the
// in-thread error message has been appended.
func (e *Engine) Send(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}

	req, err := e.session.BeginSend(message)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
	}()

	e.store.AddUserMessage(message)

	var sawError bool
	streamErr := e.client.Stream(streamCtx, req, func(c protocol.Chunk) {
		if c.Type == protocol.ChunkMessageStart {
			e.session.AdoptSessionID(c.SessionID)
		}
		if c.Type == protocol.ChunkError {
			sawError = true
		}
		e.store.Dispatch(c)
	})

	switch {
	case streamErr == nil:
		e.session.End(session.EndCompleted)
	case errors.Is(streamErr, context.Canceled):
		// User cancellation is a normal outcome: finalize what arrived and
		// report success.
		e.store.CancelStreaming()
		e.session.End(session.EndCancelled)
		streamErr = nil
	default:
		// Mid-stream failures arrive with an in-band error chunk already
		// synthesized by the client. Failures before the stream opened,
		// such as an unreachable backend, have not touched the store yet
		// and get their error message appended here.
		if !sawError {
			e.store.Dispatch(protocol.ErrorChunk(streamErr.Error()))
		}
		e.session.End(session.EndError)
	}

	e.saveHistory()
	return streamErr
}

// Cancel stops the in-flight stream, if any. Safe from any goroutine.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// HISTORY
// =============================================================================

// Resume loads a stored conversation into the engine. Fails while a stream
// is in flight.
func (e *Engine) Resume(sessionID string) error {
	if e.hist == nil {
		return history.ErrNotFound
	}
	msgs, err := e.hist.Load(sessionID)
	if err != nil {
		return err
	}
	if !e.session.Resume(sessionID) {
		return agent.ErrStreamInFlight
	}
	e.store.Hydrate(sessionID, msgs)
	return nil
}

// Reset clears the live conversation and session; history rows survive.
func (e *Engine) Reset() {
	e.Cancel()
	e.store.Reset()
	e.session.Reset()
}

// History exposes the persistence layer for listing and export commands.
// Nil when persistence is disabled.
func (e *Engine) History() *history.Store {
	return e.hist
}

// saveHistory is write-behind: failures are logged and never surface into
// the send cycle.
func (e *Engine) saveHistory() {
	if e.hist == nil {
		return
	}
	id := e.session.SessionID()
	if id == "" {
		return
	}
	tenant := e.session.Context().ActiveTenant
	if err := e.hist.Save(id, tenant, e.store.Messages()); err != nil {
		e.logf("history save failed: %v", err)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
