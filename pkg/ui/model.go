// Package ui is the terminal presentation of a chat session. It reads the
// session's transcript, busy flag and suggested prompts and turns key presses
// into session intents.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/compliance-chat/pkg/session"
	"github.com/go-go-golems/compliance-chat/pkg/transcript"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
)

const (
	AboutName    = "Irtaza Ali"
	AboutTagline = "Full time SQA Engineer and part time AI Developer"

	thinkingText  = "Thinking..."
	defaultWidth  = 80
	defaultHeight = 24
)

type Model struct {
	session *session.Session
	backend Backend
	keys    keyMap
	styles  styles
	help    help.Model

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	markdown     bool
	glamourStyle string
	renderer     *glamour.TermRenderer
	wrap         int
	rendered     []string
	copyFn       func(string) error

	width, height int
	busy          bool
	pending       bool
	version       uint64
	showAbout     bool
	status        string
}

type ModelOption func(*Model)

// WithBackend replaces the session backend, mostly for tests.
func WithBackend(b Backend) ModelOption {
	return func(m *Model) { m.backend = b }
}

// WithMarkdown toggles glamour rendering of bot messages.
func WithMarkdown(enabled bool) ModelOption {
	return func(m *Model) { m.markdown = enabled }
}

// WithGlamourStyle selects a glamour standard style ("dark", "light", "notty", ...).
func WithGlamourStyle(style string) ModelOption {
	return func(m *Model) { m.glamourStyle = style }
}

func WithClipboard(fn func(string) error) ModelOption {
	return func(m *Model) { m.copyFn = fn }
}

func WithSize(width, height int) ModelOption {
	return func(m *Model) {
		m.width = width
		m.height = height
	}
}

func NewModel(ctx context.Context, s *session.Session, options ...ModelOption) Model {
	ti := textinput.New()
	ti.Placeholder = s.Placeholder()
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		session:      s,
		backend:      NewSessionBackend(ctx, s),
		keys:         defaultKeyMap(),
		styles:       defaultStyles(),
		help:         help.New(),
		input:        ti,
		spinner:      sp,
		markdown:     true,
		glamourStyle: "dark",
		copyFn:       clipboard.WriteAll,
		width:        defaultWidth,
		height:       defaultHeight,
	}
	for _, opt := range options {
		opt(&m)
	}
	m.viewport = viewport.New(m.width, 1)
	m.resize(m.width, m.height)
	m.refresh()
	m.viewport.GotoBottom()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		return m, m.refresh()

	case TurnFinishedMsg:
		m.pending = false
		if msg.Result.Status == turn.StatusRejected {
			m.status = "Still waiting for the previous answer."
		}
		return m, m.refresh()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.renderContent()
		m.viewport.GotoBottom()
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.About):
		m.showAbout = !m.showAbout
		m.resize(m.width, m.height)
		return m, m.refresh()

	case key.Matches(msg, m.keys.CopyAnswer):
		m.copyLastAnswer()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		if m.waiting() {
			return m, nil
		}
		if strings.TrimSpace(m.input.Value()) == "" {
			return m, nil
		}
		m.status = ""
		m.pending = true
		m.backend.SetInput(m.input.Value())
		return m, tea.Batch(m.backend.SubmitTyped(), m.spinner.Tick)

	case key.Matches(msg, m.keys.PickPrompt) && m.input.Value() == "":
		if p, ok := m.promptForKey(msg.String()); ok {
			if m.waiting() {
				return m, nil
			}
			m.status = ""
			m.pending = true
			return m, tea.Batch(m.backend.SubmitSuggested(p), m.spinner.Tick)
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.backend.SetInput(after)
	}
	return m, cmd
}

// waiting is true while a turn runs or one was dispatched and has not returned.
func (m Model) waiting() bool {
	return m.pending || m.session.Busy()
}

func (m Model) promptForKey(k string) (string, bool) {
	visible := m.session.VisiblePrompts()
	if len(k) != 1 || k[0] < '1' || k[0] > '9' {
		return "", false
	}
	i := int(k[0] - '1')
	if i >= len(visible) {
		return "", false
	}
	return visible[i], true
}

func (m *Model) copyLastAnswer() {
	text, ok := m.session.LastAnswer()
	if !ok {
		m.status = "Nothing to copy yet."
		return
	}
	if err := m.copyFn(text); err != nil {
		log.Warn().Err(err).Msg("Failed to copy answer to clipboard")
		m.status = "Could not copy to clipboard."
		return
	}
	m.status = "Copied the last answer."
}

// refresh pulls a consistent view from the session and redraws what changed.
// It returns a spinner tick when a turn has just started.
func (m *Model) refresh() tea.Cmd {
	v := m.session.View()
	wasBusy := m.busy
	m.busy = v.Busy
	if v.Input != m.input.Value() {
		m.input.SetValue(v.Input)
	}
	changed := v.Version != m.version || wasBusy != v.Busy
	m.version = v.Version
	m.renderMessages(v.Messages)
	m.renderContent()
	if changed {
		m.viewport.GotoBottom()
	}
	if m.busy && !wasBusy {
		return m.spinner.Tick
	}
	return nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-len(m.input.Prompt)-1, 10)
	m.help.Width = width

	reserved := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
	m.viewport.Width = width
	m.viewport.Height = max(height-reserved, 3)

	wrap := max(width-4, 20)
	if wrap == m.wrap {
		return
	}
	m.wrap = wrap
	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.glamourStyle),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create markdown renderer, falling back to plain text")
			r = nil
		}
		m.renderer = r
	}
	// cached renders depend on the wrap width
	m.rendered = nil
}

func (m *Model) renderMessages(msgs []transcript.Message) {
	for i := len(m.rendered); i < len(msgs); i++ {
		m.rendered = append(m.rendered, m.renderMessage(msgs[i]))
	}
}

func (m *Model) renderMessage(msg transcript.Message) string {
	if msg.IsUser() {
		return m.styles.Role.Render("You") + "\n" + m.styles.User.Render(msg.Content)
	}
	body := msg.Content
	if m.markdown && m.renderer != nil {
		out, err := m.renderer.Render(msg.Content)
		if err != nil {
			log.Debug().Err(err).Msg("Markdown render failed")
		} else {
			body = strings.Trim(out, "\n")
		}
	}
	return m.styles.Role.Render("Bot") + "\n" + m.styles.Bot.Render(body)
}

func (m *Model) renderContent() {
	var b strings.Builder
	if visible := m.session.VisiblePrompts(); len(visible) > 0 {
		b.WriteString(m.styles.PromptHead.Render(m.session.PromptsTitle() + ":"))
		b.WriteString("\n")
		for i, p := range visible {
			b.WriteString(m.styles.Prompt.Render(fmt.Sprintf("  %d. %s", i+1, p)))
			b.WriteString("\n")
		}
	}
	for i, r := range m.rendered {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r)
	}
	if m.busy {
		if len(m.rendered) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.spinner.View() + " " + m.styles.Status.Render(thinkingText))
	}
	m.viewport.SetContent(b.String())
}

func (m Model) headerView() string {
	return m.styles.Title.Render(m.session.Title())
}

func (m Model) footerView() string {
	parts := []string{}
	if m.showAbout {
		parts = append(parts, m.aboutView())
	}
	parts = append(parts,
		m.styles.Status.Render(m.status),
		m.styles.Input.Render(m.input.View()),
		m.help.View(m.keys),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) aboutView() string {
	return m.styles.About.Render(lipgloss.NewStyle().Bold(true).Render(AboutName) + "\n" + AboutTagline)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

// Busy reports the busy flag as last drawn.
func (m Model) Busy() bool { return m.busy }

func (m Model) Input() string { return m.input.Value() }

func (m Model) ShowingAbout() bool { return m.showAbout }

func (m Model) Status() string { return m.status }

// Content returns the transcript area as currently laid out.
func (m Model) Content() string { return m.viewport.View() }
