// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/beaconhq/console-agent/internal/session"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a /command. The bool result is false when the
// REPL should exit.
func (r *Repl) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help", "/h":
		r.printHelp()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/clear", "/c":
		r.engine.Reset()
		fmt.Println(infoStyle.Render("Conversation cleared. The next message starts a new session."))
		return true, nil

	case "/status", "/s":
		r.printStatus()
		return true, nil

	case "/tenant":
		if len(args) == 0 {
			fmt.Println(infoStyle.Render("tenant: " + orNone(r.cfg.Console.Tenant, "(unset)")))
			return true, nil
		}
		r.cfg.Console.Tenant = args[0]
		r.engine.SetContext(session.Context{
			Pathname:      r.cfg.Console.Pathname,
			ActiveTenant:  r.cfg.Console.Tenant,
			ActiveContext: r.cfg.Console.Context,
		})
		fmt.Println(infoStyle.Render("Active tenant set to " + args[0] + "."))
		return true, nil

	case "/context":
		if len(args) == 0 {
			fmt.Println(infoStyle.Render("context: " + orNone(r.cfg.Console.Context, "(unset)")))
			return true, nil
		}
		r.cfg.Console.Context = args[0]
		r.engine.SetContext(session.Context{
			Pathname:      r.cfg.Console.Pathname,
			ActiveTenant:  r.cfg.Console.Tenant,
			ActiveContext: r.cfg.Console.Context,
		})
		fmt.Println(infoStyle.Render("Active context set to " + args[0] + "."))
		return true, nil

	case "/sessions", "/history":
		return true, r.listSessions()

	case "/resume":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /resume <session-id>")
		}
		if err := r.engine.Resume(args[0]); err != nil {
			return true, err
		}
		fmt.Println(infoStyle.Render("Resumed session " + args[0] + "."))
		r.printTranscript()
		return true, nil

	case "/search":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /search <query>")
		}
		return true, r.searchSessions(strings.Join(args, " "))

	case "/export":
		if len(args) < 2 {
			return true, fmt.Errorf("usage: /export <session-id> <file.md|file.json>")
		}
		return true, r.exportSession(args[0], args[1])

	case "/delete":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /delete <session-id>")
		}
		if r.engine.History() == nil {
			return true, fmt.Errorf("history is disabled")
		}
		if err := r.engine.History().Delete(args[0]); err != nil {
			return true, err
		}
		fmt.Println(infoStyle.Render("Deleted session " + args[0] + "."))
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (r *Repl) printHelp() {
	rows := [][2]string{
		{"/help, /h", "Show this help"},
		{"/status, /s", "Show session status"},
		{"/tenant [slug]", "Show or switch the active tenant"},
		{"/context [scope]", "Show or switch the active data context"},
		{"/clear, /c", "Clear the conversation and start a new session"},
		{"/sessions", "List stored conversations"},
		{"/resume <id>", "Resume a stored conversation"},
		{"/search <query>", "Search stored conversations"},
		{"/export <id> <file>", "Export a conversation to markdown or JSON"},
		{"/delete <id>", "Delete a stored conversation"},
		{"/quit, /q", "Exit"},
	}
	fmt.Println(headerStyle.Render("Commands"))
	for _, row := range rows {
		fmt.Printf("  %s  %s\n", commandStyle.Render(fmt.Sprintf("%-22s", row[0])), infoStyle.Render(row[1]))
	}
	fmt.Println(infoStyle.Render("  Ctrl+C cancels the current response; partial output is kept."))
}

func (r *Repl) printStatus() {
	st := r.engine.Status()
	fmt.Println(headerStyle.Render("Session"))
	fmt.Printf("  %s %s\n", infoStyle.Render("id:      "), orNone(st.SessionID, "(none yet)"))
	fmt.Printf("  %s %s\n", infoStyle.Render("phase:   "), st.Phase)
	fmt.Printf("  %s %d\n", infoStyle.Render("sends:   "), st.SendCount)
	fmt.Printf("  %s %s\n", infoStyle.Render("tenant:  "), orNone(r.cfg.Console.Tenant, "(unset)"))
	fmt.Printf("  %s %s\n", infoStyle.Render("context: "), orNone(r.cfg.Console.Context, "(unset)"))

	completed, failed, pending := r.engine.Tracker().Counts()
	fmt.Printf("  %s %d completed, %d failed, %d pending\n",
		infoStyle.Render("tools:   "), completed, failed, pending)
}

func (r *Repl) listSessions() error {
	hist := r.engine.History()
	if hist == nil {
		return fmt.Errorf("history is disabled")
	}
	metas, err := hist.List(20)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println(infoStyle.Render("No stored conversations."))
		return nil
	}
	fmt.Println(headerStyle.Render("Stored conversations"))
	for _, m := range metas {
		fmt.Printf("  %s  %s  %s\n",
			commandStyle.Render(m.SessionID),
			infoStyle.Render(m.UpdatedAt.Format("2006-01-02 15:04")),
			m.Title)
	}
	return nil
}

func (r *Repl) searchSessions(query string) error {
	hist := r.engine.History()
	if hist == nil {
		return fmt.Errorf("history is disabled")
	}
	metas, err := hist.Search(query, 20)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println(infoStyle.Render("No matches."))
		return nil
	}
	for _, m := range metas {
		fmt.Printf("  %s  %s\n", commandStyle.Render(m.SessionID), m.Title)
	}
	return nil
}

func (r *Repl) exportSession(id, path string) error {
	hist := r.engine.History()
	if hist == nil {
		return fmt.Errorf("history is disabled")
	}
	var err error
	if strings.HasSuffix(path, ".json") {
		err = hist.ExportJSON(id, path)
	} else {
		err = hist.ExportMarkdown(id, path)
	}
	if err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("Exported to " + path + "."))
	return nil
}

// printTranscript replays a resumed conversation to the terminal.
func (r *Repl) printTranscript() {
	for _, m := range r.engine.Snapshot().Messages {
		label := promptStyle.Render(m.Role.DisplayName() + ":")
		fmt.Printf("\n%s\n", label)
		if m.IsError {
			fmt.Println(errorStyle.Render(m.Content))
			continue
		}
		fmt.Print(r.markdown.Render(m.Content))
	}
	fmt.Println()
}

func orNone(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
