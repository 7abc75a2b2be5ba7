package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/compliance-chat/pkg/transcript"
)

// DefaultTopic carries session change events.
const DefaultTopic = "compliance-chat.session"

type EventType string

const (
	EventMessageAppended EventType = "message.appended"
	EventBusyChanged     EventType = "busy.changed"
)

// Event describes one state change of a session.
// Seq increases by one per event within a session.
type Event struct {
	Type      EventType           `json:"type"`
	SessionID string              `json:"session_id"`
	Seq       uint64              `json:"seq"`
	Message   *transcript.Message `json:"message,omitempty"`
	Busy      bool                `json:"busy"`
	Time      time.Time           `json:"time"`
}

// Sink receives session events.
type Sink interface {
	PublishEvent(e Event) error
}

type NopSink struct{}

func (NopSink) PublishEvent(Event) error { return nil }

var _ Sink = NopSink{}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event) error

func (f SinkFunc) PublishEvent(e Event) error { return f(e) }

// WatermillSink publishes events as JSON watermill messages on a topic.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

var _ Sink = &WatermillSink{}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillSink{publisher: publisher, topic: topic}
}

func (s *WatermillSink) PublishEvent(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "eventbus: failed to encode event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(e.Type))
	msg.Metadata.Set("session_id", e.SessionID)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return errors.Wrapf(err, "eventbus: failed to publish %s", e.Type)
	}
	return nil
}

// Decode parses a watermill message produced by WatermillSink.
func Decode(msg *message.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Event{}, errors.Wrap(err, "eventbus: failed to decode event")
	}
	return e, nil
}

// ForwardTo subscribes to topic and hands every decoded event to fn until ctx
// is done or the subscription closes. Messages are acked before fn runs;
// undecodable payloads are logged and skipped.
func ForwardTo(ctx context.Context, sub message.Subscriber, topic string, logger zerolog.Logger, fn func(Event)) error {
	if topic == "" {
		topic = DefaultTopic
	}
	msgs, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return errors.Wrapf(err, "eventbus: failed to subscribe to %s", topic)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			msg.Ack()
			e, err := Decode(msg)
			if err != nil {
				logger.Error().Err(err).Str("payload", string(msg.Payload)).Msg("Failed to parse event")
				continue
			}
			fn(e)
		}
	}
}
