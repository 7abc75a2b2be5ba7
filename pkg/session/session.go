// Package session is the entry point for presentation intents. It owns one
// turn.Controller and the suggested prompts shown while the conversation is
// empty.
package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/prompts"
	"github.com/go-go-golems/compliance-chat/pkg/transcript"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
)

const (
	DefaultTitle       = "Crypto Compliance Chatbot"
	DefaultPlaceholder = "Ask about crypto compliance..."
)

type Session struct {
	ID uuid.UUID

	controller  *turn.Controller
	prompts     prompts.Set
	title       string
	placeholder string
}

type Option func(*config)

type config struct {
	id          uuid.UUID
	turnOptions []turn.Option
	title       string
	placeholder string
}

// WithID fixes the session ID instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(c *config) { c.id = id }
}

// WithTurnOptions forwards options to the underlying turn.Controller.
func WithTurnOptions(opts ...turn.Option) Option {
	return func(c *config) { c.turnOptions = append(c.turnOptions, opts...) }
}

func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

func WithPlaceholder(placeholder string) Option {
	return func(c *config) { c.placeholder = placeholder }
}

func New(a answer.Answerer, set prompts.Set, opts ...Option) (*Session, error) {
	cfg := &config{
		id:          uuid.New(),
		title:       DefaultTitle,
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// the session ID goes first so an explicit turn.WithSessionID can override it
	turnOpts := append([]turn.Option{turn.WithSessionID(cfg.id.String())}, cfg.turnOptions...)
	c, err := turn.NewController(a, turnOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create turn controller")
	}

	return &Session{
		ID:          cfg.id,
		controller:  c,
		prompts:     set,
		title:       cfg.title,
		placeholder: cfg.placeholder,
	}, nil
}

// SetInput records the text currently in the composer.
func (s *Session) SetInput(text string) { s.controller.State().SetInput(text) }

func (s *Session) Input() string { return s.controller.State().Input() }

// SubmitTyped runs a turn with the composer text.
func (s *Session) SubmitTyped(ctx context.Context) turn.Result {
	return s.controller.Run(ctx, turn.Request{
		Query:  s.controller.State().Input(),
		Source: turn.SourceTyped,
	})
}

// SubmitSuggested runs a turn with text, independent of the composer.
func (s *Session) SubmitSuggested(ctx context.Context, text string) turn.Result {
	return s.controller.Run(ctx, turn.Request{
		Query:  text,
		Source: turn.SourceSuggested,
	})
}

func (s *Session) Transcript() []transcript.Message { return s.controller.State().Messages() }

func (s *Session) Busy() bool { return s.controller.State().Busy() }

func (s *Session) View() turn.View { return s.controller.State().View() }

// LastAnswer returns the most recent bot message content.
func (s *Session) LastAnswer() (string, bool) {
	m, ok := s.controller.State().LastBot()
	if !ok {
		return "", false
	}
	return m.Content, true
}

// SuggestedPrompts returns the full fixed list.
func (s *Session) SuggestedPrompts() []string { return s.prompts.List() }

func (s *Session) PromptsTitle() string { return s.prompts.Title }

// VisiblePrompts returns the suggested prompts while the transcript is empty
// and nil afterwards.
func (s *Session) VisiblePrompts() []string {
	if s.controller.State().Len() > 0 {
		return nil
	}
	return s.prompts.List()
}

func (s *Session) Title() string { return s.title }

func (s *Session) Placeholder() string { return s.placeholder }

func (s *Session) Controller() *turn.Controller { return s.controller }
