package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/compliance-chat/pkg/eventbus"
	"github.com/go-go-golems/compliance-chat/pkg/session"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
)

// Backend turns UI intents into session calls that run off the Bubble Tea
// event loop.
type Backend interface {
	SubmitTyped() tea.Cmd
	SubmitSuggested(text string) tea.Cmd
	SetInput(text string)
}

// SessionBackend drives a session.Session.
type SessionBackend struct {
	ctx     context.Context
	session *session.Session
}

var _ Backend = &SessionBackend{}

func NewSessionBackend(ctx context.Context, s *session.Session) *SessionBackend {
	return &SessionBackend{ctx: ctx, session: s}
}

func (b *SessionBackend) SetInput(text string) { b.session.SetInput(text) }

// SubmitTyped returns a command that runs one turn with the composer text.
func (b *SessionBackend) SubmitTyped() tea.Cmd {
	return func() tea.Msg {
		return TurnFinishedMsg{Result: b.session.SubmitTyped(b.ctx)}
	}
}

func (b *SessionBackend) SubmitSuggested(text string) tea.Cmd {
	return func() tea.Msg {
		return TurnFinishedMsg{Result: b.session.SubmitSuggested(b.ctx, text)}
	}
}

// TurnFinishedMsg is delivered when a submission returns.
type TurnFinishedMsg struct {
	Result turn.Result
}

// SessionEventMsg wraps a session change published on the event bus.
type SessionEventMsg struct {
	Event eventbus.Event
}

// ForwardFunc returns a callback for eventbus.ForwardTo that injects session
// events into the program p. Events of other sessions are dropped when
// sessionID is set.
func ForwardFunc(p *tea.Program, sessionID string) func(eventbus.Event) {
	return func(e eventbus.Event) {
		if sessionID != "" && e.SessionID != sessionID {
			log.Debug().Str("session_id", e.SessionID).Msg("Ignoring event of another session")
			return
		}
		log.Debug().Str("type", string(e.Type)).Uint64("seq", e.Seq).Msg("Dispatching event to UI")
		p.Send(SessionEventMsg{Event: e})
	}
}
