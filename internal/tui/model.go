package tui

import (
	"context"
	"log/slog"
	"strings"

	"OpenCodeWeb/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WelcomeText is shown while the conversation is empty
const WelcomeText = "Welcome to opencode-web! Send a message to start chatting with OpenCode."

// Chat is the orchestrator surface the view drives
type Chat interface {
	CreateSession(ctx context.Context, title string) (session.Session, error)
	SendMessage(ctx context.Context, content string) (session.Message, error)
	Snapshot() session.State
}

// StateMsg carries an orchestrator snapshot into the program
type StateMsg session.State

// SessionCreatedMsg reports the outcome of a create
type SessionCreatedMsg struct {
	Session session.Session
	Err     error
}

// MessageSentMsg reports the outcome of a send
type MessageSentMsg struct {
	Err error
}

// Model is the terminal chat view
type Model struct {
	ctx    context.Context
	chat   Chat
	title  string
	logger *slog.Logger

	state    session.State
	status   string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool
}

// New creates the view. title names sessions created from it.
func New(ctx context.Context, c Chat, title string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		ctx:     ctx,
		chat:    c,
		title:   title,
		logger:  logger,
		state:   c.Snapshot(),
		input:   ti,
		spinner: sp,
	}
}

// Init creates the first session unless one already exists
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.state.Session == nil {
		cmds = append(cmds, m.createSession())
	}
	return tea.Batch(cmds...)
}

func (m *Model) createSession() tea.Cmd {
	ctx, c, title := m.ctx, m.chat, m.title
	return func() tea.Msg {
		sess, err := c.CreateSession(ctx, title)
		return SessionCreatedMsg{Session: sess, Err: err}
	}
}

func (m *Model) sendMessage(content string) tea.Cmd {
	ctx, c := m.ctx, m.chat
	return func() tea.Msg {
		_, err := c.SendMessage(ctx, content)
		return MessageSentMsg{Err: err}
	}
}

// createAndSend opens a session first, for when the initial create failed
func (m *Model) createAndSend(content string) tea.Cmd {
	ctx, c, title := m.ctx, m.chat, m.title
	return func() tea.Msg {
		if _, err := c.CreateSession(ctx, title); err != nil {
			return SessionCreatedMsg{Err: err}
		}
		_, err := c.SendMessage(ctx, content)
		return MessageSentMsg{Err: err}
	}
}

// Update handles input and orchestrator events
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case StateMsg:
		m.state = session.State(msg)
		m.refresh()
		return m, nil

	case SessionCreatedMsg:
		if msg.Err != nil {
			m.logger.Error("failed to create session", "error", msg.Err)
			m.status = msg.Err.Error()
		} else {
			m.status = ""
		}
		return m, nil

	case MessageSentMsg:
		if msg.Err != nil {
			m.logger.Error("failed to send message", "error", msg.Err)
			m.status = msg.Err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Loading {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+n":
		m.status = ""
		return m, m.createSession()

	case "enter":
		content := m.input.Value()
		if strings.TrimSpace(content) == "" || m.state.Loading {
			return m, nil
		}
		m.input.Reset()
		m.status = ""
		if m.state.Session == nil {
			return m, m.createAndSend(content)
		}
		return m, m.sendMessage(content)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// header, status line, bordered input and help line
	vpHeight := height - 7
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages() string {
	if len(m.state.Messages) == 0 && !m.state.Loading {
		return welcomeStyle.Render(WelcomeText)
	}

	bubbleWidth := m.width * 2 / 3
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var b strings.Builder
	for _, msg := range m.state.Messages {
		b.WriteString(m.renderMessage(msg, bubbleWidth))
		b.WriteString("\n\n")
	}
	if m.state.Loading {
		b.WriteString(botLabelStyle.Render("OpenCode"))
		b.WriteString(" ")
		b.WriteString(m.spinner.View())
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderMessage(msg session.Message, width int) string {
	if msg.Role == session.RoleUser {
		label := youLabelStyle.Render("You")
		if msg.Status == session.StatusFailed {
			label += " " + failedStyle.Render("not delivered")
		}
		block := lipgloss.JoinVertical(lipgloss.Right,
			userBubbleStyle.Width(width).Render(msg.Content),
			label,
		)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		botBubbleStyle.Width(width).Render(msg.Content),
		botLabelStyle.Render("OpenCode"),
	)
}

// View renders the screen
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := headerStyle.Render("opencode-web")
	if m.state.Session != nil {
		name := m.state.Session.Title
		if name == "" {
			name = m.state.Session.ID
		}
		header += sessionStyle.Render(name)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		statusStyle.Render(m.status),
		inputStyle.Width(m.width-2).Render(m.input.View()),
		helpStyle.Render("enter send • ctrl+n new session • esc quit"),
	)
}
