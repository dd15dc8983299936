package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fleetchat/internal/conversation"
	"fleetchat/internal/logging"
	"fleetchat/internal/orchestrator"
	"fleetchat/internal/session"
	"fleetchat/internal/simulation"
	"fleetchat/internal/store"
	"fleetchat/internal/types"
)

type screen int

const (
	screenLogin screen = iota
	screenConfigure
	screenRestore
	screenChat
)

const (
	defaultViewportWidth  = 80
	defaultViewportHeight = 20
	chatChromeLines       = 6
)

var loginChoices = []string{
	"Preloaded demo user (three ready-made fleets)",
	"Custom user (configure your own fleets)",
	"Restore an existing session",
}

type Model struct {
	orchestrator *orchestrator.Orchestrator
	recent       store.SessionIndexStore
	logger       logging.Logger

	screen      screen
	width       int
	height      int
	loginCursor int
	busy        bool
	status      string
	statusErr   bool

	form           *FleetForm
	restoreInput   textinput.Model
	recentSessions []*types.Session
	recentCursor   int

	view         *orchestrator.View
	conversation conversation.State
	input        textinput.Model
	viewport     viewport.Model
	spinner      spinner.Model
	transcript   *transcriptRenderer
	filterMode   bool
	filterCursor int
	notice       simulation.Notice
}

func NewModel(o *orchestrator.Orchestrator, recent store.SessionIndexStore, logger logging.Logger) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask about your fleet..."
	input.CharLimit = 2000

	restore := textinput.New()
	restore.Prompt = "session id: "
	restore.CharLimit = 128

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = thoughtStyle

	vp := viewport.New(defaultViewportWidth, defaultViewportHeight)
	vp.MouseWheelEnabled = true

	return &Model{
		orchestrator: o,
		recent:       recent,
		logger:       logging.Component(logger, "app"),
		restoreInput: restore,
		input:        input,
		viewport:     vp,
		spinner:      spin,
		transcript:   newTranscriptRenderer(),
		width:        defaultViewportWidth,
		height:       defaultViewportHeight + chatChromeLines,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.FocusMsg:
		m.orchestrator.SetVisible(true)
		return m, nil
	case tea.BlurMsg:
		m.orchestrator.SetVisible(false)
		return m, nil
	case tea.MouseMsg:
		m.orchestrator.Touch()
		if m.screen == screenChat {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if m.screen != screenChat {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sessionCreatedMsg:
		m.busy = false
		if msg.err != nil {
			m.setError("create session failed", msg.err)
			return m, nil
		}
		m.setStatus("session " + msg.id + " created")
		return m, attachCmd(m.orchestrator)
	case sessionRestoredMsg:
		m.busy = false
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrSessionNotFound) {
				m.setError("restore failed", fmt.Errorf("session %q was not found", msg.id))
				return m, nil
			}
			m.setError("restore failed", msg.err)
			return m, nil
		}
		m.setStatus("session " + msg.id + " restored")
		return m, attachCmd(m.orchestrator)
	case attachMsg:
		if msg.err != nil {
			m.setError("open conversation failed", msg.err)
			return m, nil
		}
		m.view = msg.view
		m.screen = screenChat
		m.restoreInput.Blur()
		m.input.Focus()
		m.refreshConversation()
		return m, tea.Batch(
			waitForChangesCmd(msg.view.Conversation),
			waitForNoticeCmd(m.orchestrator.Notices()),
			m.spinner.Tick,
			textinput.Blink,
		)
	case conversationChangedMsg:
		m.refreshConversation()
		if m.view == nil {
			return m, nil
		}
		return m, waitForChangesCmd(m.view.Conversation)
	case askDoneMsg:
		if msg.err != nil {
			m.setError("ask failed", msg.err)
		}
		return m, nil
	case noticeMsg:
		m.notice = msg.notice
		m.input.Blur()
		m.filterMode = false
		return m, nil
	case manualStopDoneMsg:
		return m, nil
	case recentSessionsMsg:
		if msg.err != nil {
			m.logger.Warn("recent_sessions_failed", logging.Err(msg.err))
			return m, nil
		}
		m.recentSessions = msg.sessions
		m.recentCursor = 0
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.notice != simulation.NoticeNone {
		switch msg.String() {
		case "q", "esc", "enter":
			return m, tea.Quit
		}
		return m, nil
	}
	m.orchestrator.Touch()
	switch m.screen {
	case screenLogin:
		return m.handleLoginKey(msg)
	case screenConfigure:
		return m.handleConfigureKey(msg)
	case screenRestore:
		return m.handleRestoreKey(msg)
	case screenChat:
		return m.handleChatKey(msg)
	}
	return m, nil
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.loginCursor > 0 {
			m.loginCursor--
		}
		return m, nil
	case "down", "j":
		if m.loginCursor < len(loginChoices)-1 {
			m.loginCursor++
		}
		return m, nil
	case "1", "2", "3":
		m.loginCursor = int(msg.String()[0] - '1')
		return m.chooseLogin()
	case "enter":
		return m.chooseLogin()
	}
	return m, nil
}

func (m *Model) chooseLogin() (tea.Model, tea.Cmd) {
	sessions := m.orchestrator.Sessions()
	switch m.loginCursor {
	case 0:
		if err := sessions.Login(session.LoginPreloaded); err != nil {
			m.setError("login failed", err)
			return m, nil
		}
		return m.submitFleet()
	case 1:
		if err := sessions.Login(session.LoginCustom); err != nil {
			m.setError("login failed", err)
			return m, nil
		}
		m.form = NewFleetForm(sessions, m.width)
		m.screen = screenConfigure
		m.setStatus("")
		return m, textinput.Blink
	default:
		m.screen = screenRestore
		m.restoreInput.Reset()
		m.restoreInput.Focus()
		m.setStatus("")
		return m, tea.Batch(textinput.Blink, recentSessionsCmd(m.recent))
	}
}

func (m *Model) submitFleet() (tea.Model, tea.Cmd) {
	sessions := m.orchestrator.Sessions()
	fleet, err := sessions.FinishConfiguring()
	if err != nil {
		m.setError("configure failed", err)
		return m, nil
	}
	m.busy = true
	m.setStatus(fmt.Sprintf("Creating session for %d vehicles...", fleet.Total()))
	return m, createSessionCmd(sessions, fleet)
}

func (m *Model) handleConfigureKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	if msg.String() == "esc" {
		m.screen = screenLogin
		m.form = nil
		return m, nil
	}
	submit, cmd := m.form.Update(msg)
	if !submit {
		return m, cmd
	}
	return m.submitFleet()
}

func (m *Model) handleRestoreKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.screen = screenLogin
		m.restoreInput.Blur()
		return m, nil
	case "up", "down":
		if len(m.recentSessions) == 0 {
			return m, nil
		}
		if msg.String() == "up" {
			m.recentCursor = (m.recentCursor + len(m.recentSessions) - 1) % len(m.recentSessions)
		} else {
			m.recentCursor = (m.recentCursor + 1) % len(m.recentSessions)
		}
		m.restoreInput.SetValue(m.recentSessions[m.recentCursor].ID)
		m.restoreInput.CursorEnd()
		return m, nil
	case "enter":
		id := strings.TrimSpace(m.restoreInput.Value())
		if id == "" {
			m.setError("restore failed", errors.New("session id is required"))
			return m, nil
		}
		m.busy = true
		m.setStatus("Restoring session " + id + "...")
		return m, restoreSessionCmd(m.orchestrator.Sessions(), id)
	}
	var cmd tea.Cmd
	m.restoreInput, cmd = m.restoreInput.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterMode {
		return m.handleFilterKey(msg)
	}
	switch msg.String() {
	case "enter":
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			return m, nil
		}
		m.input.Reset()
		m.setStatus("")
		return m, askCmd(m.orchestrator, query)
	case "ctrl+f":
		m.filterMode = true
		m.input.Blur()
		return m, nil
	case "ctrl+y":
		m.copyLastAnswer()
		return m, nil
	case "ctrl+k":
		m.copySessionID()
		return m, nil
	case "ctrl+s":
		m.setStatus("Stopping simulation...")
		return m, manualStopCmd(m.orchestrator)
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filters := session.AvailableFilters(m.orchestrator.Sessions().Snapshot().Fleet)
	switch msg.String() {
	case "esc", "ctrl+f", "enter":
		m.filterMode = false
		m.input.Focus()
		return m, nil
	case "left", "h":
		if m.filterCursor > 0 {
			m.filterCursor--
		}
	case "right", "l":
		if m.filterCursor < len(filters)-1 {
			m.filterCursor++
		}
	case " ", "x":
		if m.filterCursor < len(filters) {
			if _, err := m.orchestrator.Sessions().Filters().Toggle(filters[m.filterCursor].Key); err != nil {
				m.setError("filter", err)
			}
		}
	case "c":
		m.orchestrator.Sessions().Filters().Clear()
	}
	return m, nil
}

func (m *Model) copyLastAnswer() {
	if m.view == nil {
		return
	}
	msg, ok := m.view.Conversation.LastCompletedBotMessage()
	if !ok {
		m.setStatus("nothing to copy yet")
		return
	}
	if err := copyTextToClipboard(msg.Text); err != nil {
		m.setError("copy failed", err)
		return
	}
	m.setStatus("answer copied")
}

func (m *Model) copySessionID() {
	id := m.orchestrator.Sessions().SessionID()
	if id == "" {
		return
	}
	if err := copyTextToClipboard(id); err != nil {
		m.setError("copy failed", err)
		return
	}
	m.setStatus("session id copied")
}

func (m *Model) refreshConversation() {
	if m.view == nil {
		return
	}
	m.conversation = m.view.Conversation.Snapshot()
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.transcript.Render(m.conversation.Messages, m.viewport.Width))
	if follow || m.conversation.Thinking {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize(width, height int) {
	if width <= 0 {
		width = defaultViewportWidth
	}
	if height <= 0 {
		height = defaultViewportHeight + chatChromeLines
	}
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(1, height-chatChromeLines)
	m.input.Width = max(10, width-4)
	if m.form != nil {
		m.form.Resize(width)
	}
	m.refreshConversation()
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(prefix string, err error) {
	m.status = prefix + ": " + err.Error()
	m.statusErr = true
	m.logger.Warn("ui_error", logging.F("context", prefix), logging.Err(err))
}

func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenLogin:
		body = m.loginView()
	case screenConfigure:
		body = m.form.View()
	case screenRestore:
		body = m.restoreView()
	case screenChat:
		body = m.chatView()
	}
	if m.notice != simulation.NoticeNone {
		return m.noticeView()
	}
	if status := m.statusLine(); status != "" {
		body += "\n" + status
	}
	return body
}

func (m *Model) statusLine() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return statusErrorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

func (m *Model) loginView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Fleet diagnostics demo"))
	b.WriteString("\n\n")
	for i, choice := range loginChoices {
		line := fmt.Sprintf("%d. %s", i+1, choice)
		if i == m.loginCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑↓ select • enter choose • q quit"))
	return b.String()
}

func (m *Model) restoreView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Restore a session"))
	b.WriteString("\n\n")
	b.WriteString(m.restoreInput.View())
	b.WriteString("\n")
	if len(m.recentSessions) > 0 {
		b.WriteString("\n" + dividerStyle.Render("recent sessions") + "\n")
		for i, s := range m.recentSessions {
			line := fmt.Sprintf("%s  %d vehicles  %s", s.ID, s.Fleet.Total(), s.LastUsedAt.Local().Format("2006-01-02 15:04"))
			if i == m.recentCursor && m.restoreInput.Value() == s.ID {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("↑↓ recent • enter restore • esc back"))
	return b.String()
}

func (m *Model) chatView() string {
	lines := []string{
		m.headerLine(),
		m.filterLine(),
		m.viewport.View(),
		m.thoughtLine(),
		m.input.View(),
		helpStyle.Render("enter ask • ctrl+f filters • ctrl+y copy answer • ctrl+k copy session id • ctrl+s stop simulation • ctrl+c quit"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) headerLine() string {
	snapshot := m.orchestrator.Sessions().Snapshot()
	channel := "-"
	if m.view != nil {
		channel = m.view.ChannelState().String()
	}
	return headerStyle.Render("Fleet diagnostics") + statusStyle.Render(fmt.Sprintf("  session %s • %d vehicles • thoughts %s", snapshot.ID, snapshot.Fleet.Total(), channel))
}

func (m *Model) filterLine() string {
	sessions := m.orchestrator.Sessions()
	filters := session.AvailableFilters(sessions.Snapshot().Fleet)
	parts := make([]string, 0, len(filters))
	for i, filter := range filters {
		enabled := sessions.Filters().Enabled(filter.Key)
		if !m.filterMode && !enabled {
			continue
		}
		label := filterOffStyle.Render(filter.Label)
		if enabled {
			label = filterOnStyle.Render(filter.Label)
		}
		if m.filterMode && i == m.filterCursor {
			label = selectedStyle.Render(label)
		}
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return helpStyle.Render("filters: none")
	}
	line := "filters: " + strings.Join(parts, "  ")
	if m.filterMode {
		line += helpStyle.Render("   ←→ move • space toggle • c clear • esc done")
	}
	return line
}

func (m *Model) thoughtLine() string {
	if !m.conversation.Thinking {
		return ""
	}
	thought := m.conversation.CurrentThought
	if thought == "" {
		thought = conversation.PlaceholderText
	}
	return m.spinner.View() + " " + thoughtStyle.Render(truncateLine(sanitizeLine(thought), m.width-4))
}

func (m *Model) noticeView() string {
	title, body := noticeText(m.notice)
	box := noticeStyle.Render(noticeTitleStyle.Render(title) + "\n\n" + body + "\n\n" + helpStyle.Render("press q to exit"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func noticeText(notice simulation.Notice) (string, string) {
	switch notice {
	case simulation.NoticeInactivity:
		return "Simulation paused", "The fleet simulation was stopped because this session was inactive.\nRestart the app to start a new session."
	case simulation.NoticeManualStop:
		return "Simulation stopped", "You stopped the fleet simulation.\nRestart the app to start a new session."
	}
	return "", ""
}
