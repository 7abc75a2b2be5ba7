package cmds

import (
	"context"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/chatrunner"
	"github.com/go-go-golems/compliance-chat/pkg/config"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
	"github.com/go-go-golems/compliance-chat/pkg/ui"
)

// loadSettings resolves the shared settings from viper. The root persistent
// flags are already bound by main.
func loadSettings() (config.Settings, error) {
	s, err := config.Load(viper.GetViper(), nil)
	if err != nil {
		return config.Settings{}, err
	}
	log.Debug().
		Str("api_url", s.APIURL).
		Str("busy_policy", string(s.BusyPolicy)).
		Bool("trim_query", s.TrimQuery).
		Bool("redis", s.Redis.Enabled).
		Msg("loaded settings")
	return s, nil
}

// newChatBuilder wires the answering client, prompts and redis mirror from s.
func newChatBuilder(s config.Settings) (*chatrunner.ChatBuilder, error) {
	client, err := s.Client(answer.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	set, err := s.Prompts()
	if err != nil {
		return nil, err
	}

	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}

	return chatrunner.NewChatBuilder().
		WithAnswerer(client).
		WithPrompts(set).
		WithRedis(s.Redis).
		WithTurnOptions(s.TurnOptions()...).
		WithTurnOptions(turn.WithFailureHook(logFailure)).
		WithUIOptions(ui.WithGlamourStyle(style)).
		WithLogger(log.Logger), nil
}

// logFailure keeps a trace of answers that fell back to a fixed text.
func logFailure(_ context.Context, f turn.Failure) {
	log.Debug().
		Str("kind", string(f.Kind)).
		Int("status_code", f.StatusCode).
		Str("query", f.Query).
		Msg("turn fell back")
}
