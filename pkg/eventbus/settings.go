package eventbus

import (
	"strings"

	"github.com/pkg/errors"
)

// Settings holds the Redis Streams transport configuration.
// When Enabled is false the bus stays in process.
type Settings struct {
	Enabled  bool   `yaml:"redis-enabled" mapstructure:"redis-enabled"`
	Addr     string `yaml:"redis-addr" mapstructure:"redis-addr"`
	Group    string `yaml:"redis-group" mapstructure:"redis-group"`
	Consumer string `yaml:"redis-consumer" mapstructure:"redis-consumer"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:  false,
		Addr:     "localhost:6379",
		Group:    "chat-ui",
		Consumer: "ui-1",
	}
}

func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Addr) == "" {
		return errors.New("eventbus: redis address is empty")
	}
	if strings.TrimSpace(s.Group) == "" {
		return errors.New("eventbus: redis consumer group is empty")
	}
	if strings.TrimSpace(s.Consumer) == "" {
		return errors.New("eventbus: redis consumer name is empty")
	}
	return nil
}
