// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MKhiriev/weave-sync/internal/awareness"
	"github.com/MKhiriev/weave-sync/models"
)

func (m editorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("weave-sync · " + m.session.Channel))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	if len(m.fields) == 0 {
		b.WriteString(helpStyle.Render("the document is empty, press n to add a field"))
		b.WriteString("\n")
	}
	for i, field := range m.fields {
		line := fmt.Sprintf("%s: %s", field, m.values[field])
		if i == m.idx {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if marks := m.remoteMarks(field); marks != "" {
			b.WriteString(" ")
			b.WriteString(marks)
		}
		b.WriteString("\n")
	}

	if box := m.editBox(); box != "" {
		b.WriteString("\n")
		b.WriteString(box)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help()))

	return appStyle.Render(b.String())
}

func (m editorModel) statusLine() string {
	name := m.state.String()
	style, ok := stateStyles[strings.ToLower(name)]
	if !ok {
		style = helpStyle
	}

	state := style.Render("● " + name)
	if m.state == models.Connecting {
		state = m.spinner.View() + " " + state
	}

	who := userStyle(m.session.Identity.User.Color).Render(m.session.Identity.User.Name)
	if m.session.Identity.Guest {
		who += helpStyle.Render(" (guest)")
	}

	parts := []string{state, fmt.Sprintf("%d online", m.online), fmt.Sprintf("v%d", m.version), who}
	if m.saving {
		parts = append(parts, "saving…")
	}
	return strings.Join(parts, "  ")
}

func (m editorModel) remoteMarks(field string) string {
	var marks []string
	for _, u := range m.remote {
		if u.field == field {
			marks = append(marks, userStyle(u.color).Render("["+u.name+"]"))
		}
	}
	return strings.Join(marks, " ")
}

func (m editorModel) editBox() string {
	switch m.mode {
	case modeNewKey:
		return editBoxStyle.Render("new field\n" + m.keyInput.View())
	case modeNewValue, modeEditValue:
		return editBoxStyle.Render(m.pendingKey + "\n" + m.valueInput.View())
	}
	return ""
}

func (m editorModel) help() string {
	if m.mode != modeBrowse {
		return "enter confirm · esc cancel"
	}
	return "↑/↓ move · e edit · n new · d delete · s save · c copy · q quit"
}

// remoteUsers extracts the user and selected field of every remote
// awareness state, ordered by name.
func remoteUsers(states map[uint64]awareness.State, self uint64) []remoteUser {
	users := make([]remoteUser, 0, len(states))
	for clientID, state := range states {
		if clientID == self || state == nil {
			continue
		}
		u := remoteUser{name: fmt.Sprintf("peer-%d", clientID)}
		if info, ok := state["user"].(map[string]any); ok {
			if name, ok := info["name"].(string); ok && name != "" {
				u.name = name
			}
			u.color, _ = info["color"].(string)
		}
		u.field, _ = state[fieldStateID].(string)
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b remoteUser) int { return strings.Compare(a.name, b.name) })
	return users
}
