// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/weave-sync/internal/client"
	"github.com/MKhiriev/weave-sync/models"
)

const (
	saveTimeout  = 5 * time.Second
	statusTTL    = 3 * time.Second
	fieldStateID = "field"
)

type editMode int

const (
	modeBrowse editMode = iota
	modeEditValue
	modeNewKey
	modeNewValue
)

// remoteUser is a remote awareness state reduced to what the editor shows.
type remoteUser struct {
	name  string
	color string
	field string
}

type editorModel struct {
	ctx     context.Context
	session *client.Session
	changes <-chan struct{}

	fields []string
	values map[string]string
	idx    int

	state   models.ConnectionState
	synced  bool
	version uint64
	online  int
	remote  []remoteUser

	mode       editMode
	keyInput   textinput.Model
	valueInput textinput.Model
	pendingKey string

	saving  bool
	status  string
	errMsg  string
	spinner spinner.Model
}

func newEditorModel(ctx context.Context, session *client.Session, changes <-chan struct{}) editorModel {
	keyInput := textinput.New()
	keyInput.Placeholder = "field name"
	keyInput.CharLimit = 128

	valueInput := textinput.New()
	valueInput.Placeholder = "value"

	m := editorModel{
		ctx:        ctx,
		session:    session,
		changes:    changes,
		keyInput:   keyInput,
		valueInput: valueInput,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.refresh()
	return m
}

func (m editorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange())
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("save failed: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.status = "saved"
		return m, clearStatusAfter(statusTTL)

	case copiedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("copy failed: %v", msg.err)
			return m, nil
		}
		m.status = "document copied to clipboard"
		return m, clearStatusAfter(statusTTL)

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}

	return m, nil
}

func (m editorModel) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit

	case key.Matches(msg, keys.up):
		if m.idx > 0 {
			m.idx--
			m.announceField()
		}

	case key.Matches(msg, keys.down):
		if m.idx < len(m.fields)-1 {
			m.idx++
			m.announceField()
		}

	case key.Matches(msg, keys.enter), key.Matches(msg, keys.edit):
		field, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeEditValue
		m.pendingKey = field
		m.valueInput.SetValue(m.values[field])
		m.valueInput.CursorEnd()
		return m, m.valueInput.Focus()

	case key.Matches(msg, keys.newItem):
		m.mode = modeNewKey
		m.keyInput.Reset()
		return m, m.keyInput.Focus()

	case key.Matches(msg, keys.delete):
		if field, ok := m.selected(); ok {
			m.session.Doc.Delete(field)
			m.refresh()
		}

	case key.Matches(msg, keys.save):
		if m.saving {
			return m, nil
		}
		m.saving = true
		return m, m.save()

	case key.Matches(msg, keys.copy):
		return m, copyDocument(m.values)
	}

	return m, nil
}

func (m editorModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, keys.esc):
		m.stopEditing()
		return m, nil

	case key.Matches(msg, keys.enter):
		switch m.mode {
		case modeNewKey:
			field := strings.TrimSpace(m.keyInput.Value())
			if field == "" {
				return m, nil
			}
			m.pendingKey = field
			m.mode = modeNewValue
			m.keyInput.Blur()
			m.valueInput.Reset()
			return m, m.valueInput.Focus()

		case modeNewValue, modeEditValue:
			m.session.Doc.Set(m.pendingKey, m.valueInput.Value())
			field := m.pendingKey
			m.stopEditing()
			m.refresh()
			m.selectField(field)
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.mode == modeNewKey {
		m.keyInput, cmd = m.keyInput.Update(msg)
	} else {
		m.valueInput, cmd = m.valueInput.Update(msg)
	}
	return m, cmd
}

func (m *editorModel) stopEditing() {
	m.mode = modeBrowse
	m.pendingKey = ""
	m.keyInput.Blur()
	m.valueInput.Blur()
}

// refresh re-reads the document and the session state.
func (m *editorModel) refresh() {
	p := m.session.Provider

	m.values = m.session.Doc.ToMap()
	m.fields = make([]string, 0, len(m.values))
	for field := range m.values {
		m.fields = append(m.fields, field)
	}
	slices.Sort(m.fields)
	if m.idx >= len(m.fields) {
		m.idx = max(len(m.fields)-1, 0)
	}

	m.state = p.State()
	m.synced = p.Synced()
	m.version = p.Version()
	m.online = p.Presence().Count()
	m.remote = remoteUsers(p.Awareness().States(), p.Awareness().ClientID())
}

func (m editorModel) selected() (string, bool) {
	if len(m.fields) == 0 {
		return "", false
	}
	return m.fields[m.idx], true
}

func (m *editorModel) selectField(field string) {
	if i := slices.Index(m.fields, field); i >= 0 {
		m.idx = i
	}
	m.announceField()
}

// announceField publishes the selected field through awareness so remote
// editors can show where this user is.
func (m editorModel) announceField() {
	field, _ := m.selected()
	m.session.Provider.Awareness().SetLocalStateField(fieldStateID, field)
}

func (m editorModel) waitForChange() tea.Cmd {
	changes, done := m.changes, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changes:
			return sessionChangedMsg{}
		case <-done:
			return nil
		}
	}
}

func (m editorModel) save() tea.Cmd {
	ctx, provider := m.ctx, m.session.Provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()
		return savedMsg{err: provider.Save(ctx)}
	}
}

func copyDocument(values map[string]string) tea.Cmd {
	return func() tea.Msg {
		data, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{err: clipboard.WriteAll(string(data))}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}
