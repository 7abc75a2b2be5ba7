// Package config resolves runtime settings from flags, environment, the clay
// config file and an optional .env file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/eventbus"
	"github.com/go-go-golems/compliance-chat/pkg/prompts"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
)

const (
	// DefaultAPIURL stands in for the page origin a browser client would use.
	DefaultAPIURL = "http://localhost:8000"

	EnvAPIURL       = "COMPLIANCE_CHAT_API_URL"
	EnvLegacyAPIURL = "REACT_APP_API_URL"
)

// Settings is everything a command needs to build a session.
type Settings struct {
	APIURL         string            `yaml:"api-url" mapstructure:"api-url"`
	RequestTimeout time.Duration     `yaml:"request-timeout" mapstructure:"request-timeout"`
	BusyPolicy     turn.Policy       `yaml:"busy-policy" mapstructure:"busy-policy"`
	TrimQuery      bool              `yaml:"trim-query" mapstructure:"trim-query"`
	PromptsFile    string            `yaml:"prompts-file" mapstructure:"prompts-file"`
	Redis          eventbus.Settings `yaml:",inline" mapstructure:",squash"`
}

func Default() Settings {
	return Settings{
		APIURL:     DefaultAPIURL,
		BusyPolicy: turn.PolicyQueue,
		Redis:      eventbus.DefaultSettings(),
	}
}

// AddFlags registers the settings flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("api-url", d.APIURL, "Base URL of the answering service (env "+EnvAPIURL+" or "+EnvLegacyAPIURL+")")
	fs.Duration("request-timeout", d.RequestTimeout, "Timeout for one call to the answering service (0 = none)")
	fs.String("busy-policy", string(d.BusyPolicy), "What to do with a submission while a turn is in flight: queue or reject")
	fs.Bool("trim-query", d.TrimQuery, "Send the trimmed query instead of the text as typed")
	fs.String("prompts-file", d.PromptsFile, "YAML file overriding the suggested prompts")
	fs.Bool("redis-enabled", d.Redis.Enabled, "Mirror session events to Redis Streams")
	fs.String("redis-addr", d.Redis.Addr, "Redis address")
	fs.String("redis-group", d.Redis.Group, "Redis consumer group")
	fs.String("redis-consumer", d.Redis.Consumer, "Redis consumer name")
}

// LoadDotEnv loads .env files into the process environment. Missing files are
// not an error; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return nil
}

// Load reads settings from v. Flags in fs, if given, are bound first so they
// take precedence over environment and config file values.
func Load(v *viper.Viper, fs *pflag.FlagSet) (Settings, error) {
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Settings{}, errors.Wrap(err, "failed to bind flags")
		}
	}
	if err := v.BindEnv("api-url", EnvAPIURL, EnvLegacyAPIURL); err != nil {
		return Settings{}, errors.Wrap(err, "failed to bind api-url env")
	}

	d := Default()
	v.SetDefault("api-url", d.APIURL)
	v.SetDefault("busy-policy", string(d.BusyPolicy))
	v.SetDefault("redis-addr", d.Redis.Addr)
	v.SetDefault("redis-group", d.Redis.Group)
	v.SetDefault("redis-consumer", d.Redis.Consumer)

	policy, err := turn.ParsePolicy(v.GetString("busy-policy"))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		APIURL:         answer.NormalizeBaseURL(v.GetString("api-url")),
		RequestTimeout: v.GetDuration("request-timeout"),
		BusyPolicy:     policy,
		TrimQuery:      v.GetBool("trim-query"),
		PromptsFile:    strings.TrimSpace(v.GetString("prompts-file")),
		Redis: eventbus.Settings{
			Enabled:  v.GetBool("redis-enabled"),
			Addr:     v.GetString("redis-addr"),
			Group:    v.GetString("redis-group"),
			Consumer: v.GetString("redis-consumer"),
		},
	}
	if s.APIURL == "" {
		// an explicitly empty value falls back to the origin default
		s.APIURL = DefaultAPIURL
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if s.APIURL == "" {
		return answer.ErrNoBaseURL
	}
	if !strings.HasPrefix(s.APIURL, "http://") && !strings.HasPrefix(s.APIURL, "https://") {
		return errors.Errorf("api-url %q must start with http:// or https://", s.APIURL)
	}
	if s.RequestTimeout < 0 {
		return errors.Errorf("request-timeout must not be negative, got %s", s.RequestTimeout)
	}
	if _, err := turn.ParsePolicy(string(s.BusyPolicy)); err != nil {
		return err
	}
	return errors.Wrap(s.Redis.Validate(), "invalid redis settings")
}

// Prompts returns the prompt set selected by PromptsFile.
func (s Settings) Prompts() (prompts.Set, error) {
	if s.PromptsFile == "" {
		return prompts.Default(), nil
	}
	return prompts.LoadFile(s.PromptsFile)
}

// Client builds the answering service client.
func (s Settings) Client(opts ...answer.ClientOption) (*answer.Client, error) {
	opts = append([]answer.ClientOption{answer.WithTimeout(s.RequestTimeout)}, opts...)
	return answer.NewClient(s.APIURL, opts...)
}

// TurnOptions returns the turn.Controller options the settings imply.
func (s Settings) TurnOptions() []turn.Option {
	return []turn.Option{
		turn.WithPolicy(s.BusyPolicy),
		turn.WithTrimQuery(s.TrimQuery),
	}
}
