// Package tui composes the single-screen client: chat pane on top, reminder
// list below, confirmation modal overlaid while a candidate is pending. All
// controller and store calls run as commands so the event loop never blocks
// on the network.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rappel-client/internal/chat"
	"rappel-client/internal/model"
	"rappel-client/internal/notify"
	"rappel-client/internal/store"
)

type focusArea int

const (
	focusChat focusArea = iota
	focusList
)

// Model is the bubbletea model for the whole screen.
type Model struct {
	controller *chat.Controller
	reminders  *store.Store
	bridge     *notify.Bridge

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	focus  focusArea
	cursor int
	notice string

	width  int
	height int
	ready  bool
}

type (
	turnDoneMsg    struct{ err error }
	confirmDoneMsg struct{ err error }
	fetchDoneMsg   struct{}
	removeDoneMsg  struct {
		id  string
		err error
	}
	toggleDoneMsg struct{ err error }
)

func NewModel(controller *chat.Controller, reminders *store.Store, bridge *notify.Bridge) Model {
	ti := textinput.New()
	ti.Placeholder = "Écris ton rappel… (ex: demain 15h appeler Paul)"
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		controller: controller,
		reminders:  reminders,
		bridge:     bridge,
		input:      ti,
		spinner:    sp,
		viewport:   viewport.New(80, 12),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.fetchCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatHeight := msg.Height/2 - 4
		if chatHeight < 5 {
			chatHeight = 5
		}
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = chatHeight
		m.input.Width = msg.Width - 6
		if !m.ready {
			m.ready = true
			m.refreshTranscript()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// The user bubble is appended by the controller before the network
		// call resolves; pick it up while the turn is still in flight.
		if m.controller.State() == chat.StateAwaitingResponse {
			m.refreshTranscript()
		}
		return m, cmd

	case turnDoneMsg:
		m.refreshTranscript()
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, nil

	case confirmDoneMsg:
		m.refreshTranscript()
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, nil

	case fetchDoneMsg:
		if err := m.reminders.Err(); err != nil {
			m.notice = err.Error()
		}
		m.clampCursor()
		return m, nil

	case removeDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.clampCursor()
		return m, nil

	case toggleDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The modal captures keys while a candidate is pending.
	if m.controller.State() == chat.StateConfirmationPending {
		switch msg.String() {
		case "y", "o", "enter":
			return m, m.confirmCmd()
		case "n", "esc":
			_ = m.controller.Cancel()
			m.refreshTranscript()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusChat {
			m.focus = focusList
			m.input.Blur()
		} else {
			m.focus = focusChat
			m.input.Focus()
		}
		return m, nil
	}

	if m.focus == focusList {
		return m.handleListKey(msg)
	}

	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.controller.State() == chat.StateAwaitingResponse {
			// Send stays disabled while a turn is in flight.
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		return m, m.sendCmd(text)
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Digit shortcuts submit a suggestion chip from the latest assistant
	// bubble.
	if s := msg.String(); len(s) == 1 && s >= "1" && s <= "9" && m.input.Value() == "" {
		if suggestion, ok := m.suggestionAt(s); ok {
			m.notice = ""
			return m, m.sendCmd(suggestion)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	reminders := m.reminders.Reminders()

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(reminders)-1 {
			m.cursor++
		}
	case "r":
		return m, m.fetchCmd()
	case "d", "backspace":
		if m.cursor < len(reminders) {
			return m, m.removeCmd(reminders[m.cursor].ID)
		}
	case " ", "x":
		if m.cursor < len(reminders) {
			r := reminders[m.cursor]
			return m, m.toggleCmd(r.ID, r.Status.Toggle())
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Initialisation…"
	}

	header := headerStyle.Width(m.width).Render(m.headerLine())
	chatPane := m.viewport.View()
	inputLine := m.inputLine()
	listPane := m.renderReminderList()
	footer := footerStyle.Render(m.footerLine())

	screen := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatPane,
		inputLine,
		listPane,
		footer,
	)

	if m.controller.State() == chat.StateConfirmationPending {
		modal := m.renderConfirmationModal()
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
			lipgloss.WithWhitespaceChars(" "))
	}
	return screen
}

func (m Model) headerLine() string {
	state := "prêt"
	switch m.controller.State() {
	case chat.StateAwaitingResponse:
		state = "assistant en train d'écrire…"
	case chat.StateConfirmationPending:
		state = "confirmation en attente"
	}
	if m.reminders.Loading() {
		state += " · chargement des rappels"
	}
	return fmt.Sprintf("Rappel — %s", state)
}

func (m Model) inputLine() string {
	if m.controller.State() == chat.StateAwaitingResponse {
		return m.spinner.View() + " envoi en cours…"
	}
	return "> " + m.input.View()
}

func (m Model) footerLine() string {
	help := "Entrée: envoyer · Tab: liste · 1-9: suggestion · Ctrl+C: quitter"
	if m.focus == focusList {
		help = "j/k: naviguer · espace: terminé/planifié · d: supprimer · r: rafraîchir · Tab: chat"
	}
	if m.notice != "" {
		return noticeStyle.Render("⚠ "+m.notice) + "  " + help
	}
	return help
}

func (m *Model) refreshTranscript() {
	var b strings.Builder
	for _, msg := range m.controller.Messages() {
		ts := msg.Timestamp.Format("15:04")
		switch {
		case msg.Role == model.RoleUser:
			b.WriteString(userBubbleStyle.Render(fmt.Sprintf("[%s] moi: %s", ts, msg.Text)))
		case msg.IsError:
			b.WriteString(errorBubbleStyle.Render(fmt.Sprintf("[%s] %s", ts, msg.Text)))
		default:
			b.WriteString(assistantBubbleStyle.Render(fmt.Sprintf("[%s] assistant: %s", ts, msg.Text)))
		}
		b.WriteByte('\n')
		for i, s := range msg.Suggestions {
			b.WriteString(suggestionStyle.Render(fmt.Sprintf("  %d· %s", i+1, s)))
			b.WriteByte('\n')
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) renderReminderList() string {
	reminders := m.reminders.Reminders()

	var b strings.Builder
	b.WriteString(listTitleStyle.Render(fmt.Sprintf("Rappels (%d)", len(reminders))))
	b.WriteByte('\n')

	if len(reminders) == 0 {
		b.WriteString("  aucun rappel pour le moment\n")
		return b.String()
	}

	visible := m.height/2 - 4
	if visible < 3 {
		visible = 3
	}
	for i, r := range reminders {
		if i >= visible {
			b.WriteString(fmt.Sprintf("  … et %d de plus\n", len(reminders)-visible))
			break
		}
		line := fmt.Sprintf("%s  %s (%s)", statusGlyph(r.Status), r.Title, formatInstant(r.DatetimeISO))
		if r.Status == model.StatusCompleted {
			line = completedStyle.Render(line)
		}
		if m.focus == focusList && i == m.cursor {
			line = listCursorStyle.Render("▸ ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) renderConfirmationModal() string {
	pending := m.controller.Pending()
	if pending == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(listTitleStyle.Render("Confirmer ce rappel ?"))
	b.WriteString("\n\n")
	b.WriteString("Titre: " + pending.Title + "\n")
	if pending.Description != nil {
		b.WriteString("Description: " + *pending.Description + "\n")
	}
	if pending.DatetimeISO != nil {
		b.WriteString("Quand: " + formatInstant(*pending.DatetimeISO) + " (" + pending.Timezone + ")\n")
	} else {
		b.WriteString(noticeStyle.Render("Quand: instant non déterminé — confirmation impossible") + "\n")
	}
	if pending.IsAmbiguous && pending.AmbiguityReason != nil {
		b.WriteString(noticeStyle.Render("⚠ "+*pending.AmbiguityReason) + "\n")
	}
	b.WriteString("\n[y] confirmer   [n] annuler")
	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render("⚠ "+m.notice))
	}
	return modalStyle.Render(b.String())
}

func (m Model) suggestionAt(digit string) (string, bool) {
	idx, err := strconv.Atoi(digit)
	if err != nil {
		return "", false
	}
	messages := m.controller.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			if idx >= 1 && idx <= len(messages[i].Suggestions) {
				return messages[i].Suggestions[idx-1], true
			}
			return "", false
		}
	}
	return "", false
}

func (m *Model) clampCursor() {
	if n := len(m.reminders.Reminders()); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	} else if n == 0 {
		m.cursor = 0
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		err := m.controller.Send(context.Background(), text)
		return turnDoneMsg{err: err}
	}
}

func (m Model) confirmCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.controller.Confirm(context.Background())
		return confirmDoneMsg{err: err}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		m.reminders.Fetch(context.Background())
		return fetchDoneMsg{}
	}
}

// removeCmd deletes server-side through the store; the local notification is
// cancelled best-effort only once the delete succeeded.
func (m Model) removeCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.reminders.Remove(context.Background(), id)
		if err == nil {
			m.bridge.CancelFor(id)
		}
		return removeDoneMsg{id: id, err: err}
	}
}

func (m Model) toggleCmd(id string, status model.Status) tea.Cmd {
	return func() tea.Msg {
		err := m.reminders.UpdateStatus(context.Background(), id, status)
		return toggleDoneMsg{err: err}
	}
}

func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusCompleted:
		return "✓"
	case model.StatusCancelled:
		return "✕"
	default:
		return "○"
	}
}

func formatInstant(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01 15:04")
}
