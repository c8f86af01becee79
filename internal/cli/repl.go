// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/beaconhq/console-agent/internal/agent"
	"github.com/beaconhq/console-agent/internal/config"
	"github.com/beaconhq/console-agent/internal/conversation"
	"github.com/beaconhq/console-agent/internal/engine"
	"github.com/beaconhq/console-agent/internal/session"
)

// =============================================================================
// REPL
// =============================================================================

// Repl is the interactive chat loop.
type Repl struct {
	engine   *engine.Engine
	cfg      *config.Config
	input    *inputReader
	markdown *markdownRenderer

	// printed tracks how much of the open assistant message has already
	// been written, so each notification prints only the new suffix.
	printed int

	// notedKeys deduplicates tool activity lines within one send.
	notedKeys map[string]bool
}

// NewRepl wires the REPL around an engine and configuration.
func NewRepl(eng *engine.Engine, cfg *config.Config) *Repl {
	eng.SetContext(session.Context{
		Pathname:      cfg.Console.Pathname,
		ActiveTenant:  cfg.Console.Tenant,
		ActiveContext: cfg.Console.Context,
	})
	return &Repl{
		engine:   eng,
		cfg:      cfg,
		input:    newInputReader(),
		markdown: newMarkdownRenderer(cfg.UI.Theme),
	}
}

// Run drives the loop until the operator exits. Ctrl+C cancels an in-flight
// response; at the prompt it exits.
func (r *Repl) Run() error {
	defer r.input.Close()

	r.printBanner()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if r.engine.Streaming() {
				r.engine.Cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[cancelled]"))
			}
		}
	}()

	for {
		input, err := r.input.ReadInput(promptStyle.Render("beacon> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both exit cleanly.
			if err != liner.ErrPromptAborted {
				fmt.Println()
			}
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := r.send(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
		}
	}
}

// RunOnce sends a single message and exits, for scripted use. The reply
// prints to stdout; the returned error drives the process exit status.
func (r *Repl) RunOnce(ctx context.Context, message string) error {
	defer r.input.Close()

	err := r.engine.Send(ctx, message)
	snap := r.engine.Snapshot()
	for _, m := range snap.Messages {
		if m.Role != conversation.RoleAssistant {
			continue
		}
		if m.IsError {
			fmt.Fprintln(os.Stderr, m.Content)
			continue
		}
		fmt.Print(r.markdown.Render(m.Content))
	}
	fmt.Println()
	return err
}

// =============================================================================
// SEND AND RENDER
// =============================================================================

// send runs one message through the engine, printing progress as chunks
// arrive. When markdown rendering is on, the text streams after completion
// in styled form; otherwise tokens print as they arrive.
func (r *Repl) send(input string) error {
	useMarkdown := IsStdoutTTY() && r.cfg.UI.Theme != ""
	before := len(r.engine.Snapshot().Messages)
	r.printed = 0
	r.notedKeys = make(map[string]bool)

	unsubscribe := r.engine.Subscribe(func() {
		r.renderProgress(before, useMarkdown)
	})
	defer unsubscribe()

	fmt.Println()
	err := r.engine.Send(context.Background(), input)
	if errors.Is(err, agent.ErrStreamInFlight) {
		return err
	}

	if useMarkdown {
		r.renderFinal(before)
	} else {
		r.printTrailingErrors(before)
	}
	fmt.Println()

	// Failures already surfaced as an in-thread error message, so the loop
	// keeps going rather than double-reporting.
	return nil
}

// printTrailingErrors surfaces the flagged error message in plain-text mode,
// where streamed deltas have already been printed.
func (r *Repl) printTrailingErrors(before int) {
	snap := r.engine.Snapshot()
	for i := before + 1; i < len(snap.Messages); i++ {
		if m := snap.Messages[i]; m.IsError {
			fmt.Println()
			fmt.Println(errorStyle.Render(m.Content))
		}
	}
}

// renderProgress runs on the stream goroutine after every applied chunk.
func (r *Repl) renderProgress(before int, useMarkdown bool) {
	snap := r.engine.Snapshot()
	if len(snap.Messages) <= before+1 {
		// Only the echoed user message so far.
		return
	}

	reply := snap.Messages[before+1]
	if reply.IsError {
		return
	}

	if !useMarkdown && len(reply.Content) > r.printed {
		fmt.Print(reply.Content[r.printed:])
		r.printed = len(reply.Content)
	}

	if r.cfg.UI.ShowToolCalls {
		r.renderToolActivity(snap, reply)
	}
}

// renderToolActivity prints one line per tool call transition.
func (r *Repl) renderToolActivity(snap conversation.State, reply conversation.Message) {
	for _, call := range snap.PendingCalls() {
		if !r.noted(call.ID + ":start") {
			fmt.Fprintln(os.Stderr, toolStyle.Render(fmt.Sprintf("  [tool] %s running...", call.Name)))
		}
	}
	for _, call := range reply.ToolCalls {
		if r.noted(call.ID + ":end") {
			continue
		}
		if call.Status == conversation.CallFailed {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [tool] %s failed: %s", call.Name, call.Error)))
		} else {
			fmt.Fprintln(os.Stderr, toolStyle.Render(fmt.Sprintf("  [tool] %s done", call.Name)))
		}
	}
}

func (r *Repl) noted(key string) bool {
	if r.notedKeys[key] {
		return true
	}
	r.notedKeys[key] = true
	return false
}

// renderFinal prints the finished assistant messages with markdown styling.
func (r *Repl) renderFinal(before int) {
	snap := r.engine.Snapshot()
	for _, m := range snap.Messages[min(before+1, len(snap.Messages)):] {
		if m.Role != conversation.RoleAssistant {
			continue
		}
		if m.IsError {
			fmt.Println(errorStyle.Render(m.Content))
			continue
		}
		if m.Content != "" {
			fmt.Print(r.markdown.Render(m.Content))
		}
	}
}

func (r *Repl) printBanner() {
	fmt.Println(bannerStyle.Render("Beacon Console Agent"))
	if r.cfg.Console.Tenant != "" {
		fmt.Println(infoStyle.Render("tenant: " + r.cfg.Console.Tenant))
	}
	fmt.Println(infoStyle.Render("Type /help for commands, Ctrl+C to cancel a response."))
	fmt.Println()
}
