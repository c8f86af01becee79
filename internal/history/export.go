// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beaconhq/console-agent/internal/conversation"
	"github.com/beaconhq/console-agent/internal/util"
)

// =============================================================================
// EXPORT
// =============================================================================

// exportEnvelope is the JSON document written by ExportJSON.
type exportEnvelope struct {
	SessionID  string                 `json:"session_id"`
	ExportedAt time.Time              `json:"exported_at"`
	Messages   []conversation.Message `json:"messages"`
}

// ExportJSON writes a stored conversation to path as a JSON document.
func (s *Store) ExportJSON(sessionID, path string) error {
	msgs, err := s.Load(sessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(exportEnvelope{
		SessionID:  sessionID,
		ExportedAt: time.Now(),
		Messages:   msgs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	return util.AtomicWriteFile(path, data, 0644)
}

// ExportMarkdown writes a stored conversation to path as a Markdown
// transcript with a metadata frontmatter block.
func (s *Store) ExportMarkdown(sessionID, path string) error {
	msgs, err := s.Load(sessionID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("session: %s\n", sessionID))
	sb.WriteString(fmt.Sprintf("messages: %d\n", len(msgs)))
	sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("# %s\n\n", deriveTitle(msgs)))

	for _, m := range msgs {
		label := m.Role.DisplayName()
		if m.IsError {
			label = "Assistant (error)"
		}
		sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, m.CreatedAt.Format("2006-01-02 15:04")))
		if m.Content != "" {
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
		}
		for _, call := range m.ToolCalls {
			sb.WriteString(fmt.Sprintf("> **Tool**: `%s` (%s)\n", call.Name, call.Status))
			if call.Result != "" {
				sb.WriteString(fmt.Sprintf("> ```\n> %s\n> ```\n", strings.ReplaceAll(call.Result, "\n", "\n> ")))
			}
			if call.Error != "" {
				sb.WriteString(fmt.Sprintf("> error: %s\n", call.Error))
			}
			sb.WriteString("\n")
		}
	}

	return util.AtomicWriteFile(path, []byte(sb.String()), 0644)
}
