package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/prompts"
	"github.com/go-go-golems/compliance-chat/pkg/session"
)

type echoAnswerer struct {
	mu      sync.Mutex
	queries []string
	gate    chan struct{}
	started chan struct{}
}

func (e *echoAnswerer) Ask(_ context.Context, q string) (answer.Reply, error) {
	e.mu.Lock()
	e.queries = append(e.queries, q)
	e.mu.Unlock()
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.gate != nil {
		<-e.gate
	}
	return answer.Reply{Answer: "echo: " + q}, nil
}

func newTestModel(t *testing.T, a answer.Answerer, opts ...ModelOption) (Model, *session.Session) {
	t.Helper()
	s, err := session.New(a, prompts.Default())
	require.NoError(t, err)
	opts = append([]ModelOption{WithMarkdown(false)}, opts...)
	return NewModel(context.Background(), s, opts...), s
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// drive executes cmd, flattening batches, and feeds every produced message back into m.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestEmptySessionShowsPrompts(t *testing.T) {
	m, _ := newTestModel(t, &echoAnswerer{})
	view := m.View()
	require.Contains(t, view, "Crypto Compliance Chatbot")
	require.Contains(t, view, "1. What is KYC in crypto compliance?")
	require.Contains(t, view, "5. Why is blockchain transparency important?")
}

func TestTypedSubmission(t *testing.T) {
	a := &echoAnswerer{}
	m, s := newTestModel(t, a)

	m, _ = update(t, m, runes("What is MiCA?"))
	require.Equal(t, "What is MiCA?", s.Input())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = drive(t, m, cmd)

	require.Equal(t, []string{"What is MiCA?"}, a.queries)
	require.Len(t, s.Transcript(), 2)
	require.Equal(t, "", m.Input())
	require.False(t, m.Busy())
	require.Contains(t, m.Content(), "echo: What is MiCA?")
	require.NotContains(t, m.View(), "1. What is KYC")
}

func TestWhitespaceEnterIsInert(t *testing.T) {
	a := &echoAnswerer{}
	m, s := newTestModel(t, a)
	m, _ = update(t, m, runes("   "))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Empty(t, s.Transcript())
}

func TestNumberKeySubmitsSuggestedPrompt(t *testing.T) {
	a := &echoAnswerer{}
	m, s := newTestModel(t, a)

	m, cmd := update(t, m, runes("2"))
	require.NotNil(t, cmd)
	m = drive(t, m, cmd)

	msgs := s.Transcript()
	require.Len(t, msgs, 2)
	require.Equal(t, "Explain AML in crypto.", msgs[0].Content)
	require.Equal(t, "echo: Explain AML in crypto.", msgs[1].Content)

	// once the transcript is not empty digits are plain text
	m, _ = update(t, m, runes("2"))
	require.Equal(t, "2", m.Input())
	require.Len(t, s.Transcript(), 2)
}

func TestEnterIsInertWhileBusy(t *testing.T) {
	a := &echoAnswerer{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	m, s := newTestModel(t, a)

	m, _ = update(t, m, runes("first"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd) }()

	select {
	case <-a.started:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not start")
	}
	require.True(t, s.Busy())

	m, _ = update(t, m, SessionEventMsg{})
	require.True(t, m.Busy())
	require.Contains(t, m.Content(), "Thinking...")

	m, _ = update(t, m, runes("second"))
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)

	close(a.gate)
	for _, msg := range <-done {
		m, _ = update(t, m, msg)
	}
	require.False(t, m.Busy())
	require.Equal(t, "second", m.Input())
	require.Len(t, s.Transcript(), 2)
}

func TestSecondEnterBeforeTurnStartsIsInert(t *testing.T) {
	a := &echoAnswerer{}
	m, s := newTestModel(t, a)

	m, _ = update(t, m, runes("abc"))
	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, first)

	// the first command has not run yet, so the session is not busy
	require.False(t, s.Busy())
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, second)

	m = drive(t, m, first)
	require.Equal(t, []string{"abc"}, a.queries)
	require.Len(t, s.Transcript(), 2)

	m, _ = update(t, m, runes("next"))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
}

func TestAboutToggleWhileBusyKeepsTranscript(t *testing.T) {
	a := &echoAnswerer{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	m, _ := newTestModel(t, a)

	m, _ = update(t, m, runes("first question"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd) }()
	select {
	case <-a.started:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not start")
	}

	m, _ = update(t, m, SessionEventMsg{})
	require.True(t, m.Busy())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	require.Contains(t, m.Content(), "first question")

	m, _ = update(t, m, spinner.TickMsg{ID: m.spinner.ID()})
	require.Contains(t, m.Content(), "first question")
	require.Contains(t, m.Content(), "Thinking...")

	close(a.gate)
	for _, msg := range <-done {
		m, _ = update(t, m, msg)
	}
	require.Contains(t, m.Content(), "echo: first question")
}

func TestResizeRerendersTranscript(t *testing.T) {
	m, s := newTestModel(t, &echoAnswerer{})
	s.SubmitSuggested(context.Background(), "Explain AML in crypto.")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})
	require.Contains(t, m.Content(), "echo: Explain AML in crypto.")
}

func TestAboutToggle(t *testing.T) {
	m, _ := newTestModel(t, &echoAnswerer{})
	require.NotContains(t, m.View(), AboutName)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	require.True(t, m.ShowingAbout())
	require.Contains(t, m.View(), AboutName)
	require.Contains(t, m.View(), AboutTagline)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	require.False(t, m.ShowingAbout())
}

func TestCopyLastAnswer(t *testing.T) {
	var copied string
	m, _ := newTestModel(t, &echoAnswerer{}, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "Nothing to copy yet.", m.Status())

	m, cmd := update(t, m, runes("1"))
	m = drive(t, m, cmd)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "echo: What is KYC in crypto compliance?", copied)
	require.Equal(t, "Copied the last answer.", m.Status())
}

func TestCopyFailureIsReported(t *testing.T) {
	m, s := newTestModel(t, &echoAnswerer{}, WithClipboard(func(string) error {
		return errors.New("no clipboard")
	}))
	s.SubmitSuggested(context.Background(), "Explain AML in crypto.")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "Could not copy to clipboard.", m.Status())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, &echoAnswerer{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestMarkdownRendering(t *testing.T) {
	s, err := session.New(&echoAnswerer{}, prompts.Default())
	require.NoError(t, err)
	m := NewModel(context.Background(), s, WithGlamourStyle("dark"))
	s.SubmitSuggested(context.Background(), "**bold** question")

	m, _ = update(t, m, SessionEventMsg{})
	require.Contains(t, m.Content(), "question")
	require.NotContains(t, m.Content(), "echo: **bold**")
}
