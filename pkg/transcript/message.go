package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

func (r Role) String() string { return string(r) }

// Message is a single transcript entry. Messages are values: once appended to
// a Store they are only ever handed out as copies.
//
// Content of bot messages may contain markdown; the transcript treats it as
// opaque text and leaves rendering to the presentation layer.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage builds a user-role message.
func NewUserMessage(content string) Message { return newMessage(RoleUser, content) }

// NewBotMessage builds a bot-role message.
func NewBotMessage(content string) Message { return newMessage(RoleBot, content) }

func (m Message) IsUser() bool { return m.Role == RoleUser }
func (m Message) IsBot() bool  { return m.Role == RoleBot }
