// Package turn runs one request/response cycle against the answering service
// and reconciles the outcome into the session transcript.
//
// Every non-empty turn appends exactly two messages: the user's text right
// away, then either the answer or one of two fixed fallback texts. Failures
// never leave this package; they are reported to the logger and the optional
// failure hook.
package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/eventbus"
	"github.com/go-go-golems/compliance-chat/pkg/transcript"
)

const (
	// NoReplyText replaces an answer-less success payload.
	NoReplyText = "No reply from server."
	// ConnectionErrorText replaces any failed call.
	ConnectionErrorText = "Error connecting to API. Please try again later."
)

// ErrTurnInFlight is reported to the logger when PolicyReject drops a submission.
var ErrTurnInFlight = errors.New("turn: another turn is in flight")

// Source records which intent produced a submission.
type Source string

const (
	SourceTyped     Source = "typed"
	SourceSuggested Source = "suggested"
)

type Request struct {
	Query  string
	Source Source
}

type Status string

const (
	StatusIgnored  Status = "ignored"
	StatusRejected Status = "rejected"
	StatusAnswered Status = "answered"
	StatusNoReply  Status = "no_reply"
	StatusFailed   Status = "failed"
)

// Completed reports whether the turn appended a user/bot pair.
func (s Status) Completed() bool {
	return s == StatusAnswered || s == StatusNoReply || s == StatusFailed
}

// Result describes what a Run call did to the transcript.
// User and Bot are zero unless Status.Completed().
type Result struct {
	Status   Status
	User     transcript.Message
	Bot      transcript.Message
	Duration time.Duration
}

type FailureKind string

const (
	FailureTransport   FailureKind = "transport"
	FailureStatus      FailureKind = "status"
	FailureDecode      FailureKind = "decode"
	FailurePanic       FailureKind = "panic"
	FailureEmptyAnswer FailureKind = "empty_answer"
)

// Failure is handed to the failure hook. Err carries the detail that must
// never reach the transcript.
type Failure struct {
	Kind       FailureKind
	Query      string
	StatusCode int
	Err        error
}

type FailureHook func(ctx context.Context, f Failure)

// Controller executes turns against one State.
type Controller struct {
	answerer  answer.Answerer
	state     *State
	gate      *gate
	sessionID string
	trimQuery bool
	logger    zerolog.Logger
	onFailure FailureHook
	sink      eventbus.Sink
}

type Option func(*Controller) error

func WithState(s *State) Option {
	return func(c *Controller) error {
		if s == nil {
			return errors.New("turn: state is nil")
		}
		c.state = s
		return nil
	}
}

func WithPolicy(p Policy) Option {
	return func(c *Controller) error {
		if p != PolicyQueue && p != PolicyReject {
			return errors.Errorf("turn: unknown policy %q", p)
		}
		c.gate = newGate(p)
		return nil
	}
}

// WithTrimQuery sends the trimmed query instead of the text as submitted.
func WithTrimQuery(trim bool) Option {
	return func(c *Controller) error {
		c.trimQuery = trim
		return nil
	}
}

func WithSessionID(id string) Option {
	return func(c *Controller) error {
		c.sessionID = id
		return nil
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) error {
		c.logger = l
		return nil
	}
}

func WithFailureHook(h FailureHook) Option {
	return func(c *Controller) error {
		c.onFailure = h
		return nil
	}
}

func WithSink(s eventbus.Sink) Option {
	return func(c *Controller) error {
		if s == nil {
			s = eventbus.NopSink{}
		}
		c.sink = s
		return nil
	}
}

func NewController(a answer.Answerer, options ...Option) (*Controller, error) {
	if a == nil {
		return nil, errors.New("turn: answerer is nil")
	}
	c := &Controller{
		answerer: a,
		gate:     newGate(PolicyQueue),
		logger:   zerolog.Nop(),
		sink:     eventbus.NopSink{},
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.state == nil {
		c.state = NewState()
	}
	return c, nil
}

func (c *Controller) State() *State { return c.state }

func (c *Controller) Policy() Policy { return c.gate.policy }

// Run executes one turn. Empty or whitespace-only queries are ignored without
// touching state. Under PolicyQueue a call waits for the turn in flight; ctx
// only bounds that wait. Once the outbound call is issued it runs to completion.
func (c *Controller) Run(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Query) == "" {
		return Result{Status: StatusIgnored}
	}

	release, err := c.gate.enter(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Str("policy", string(c.gate.policy)).Msg("turn not started")
		return Result{Status: StatusRejected}
	}
	defer release()

	start := time.Now()
	query := req.Query
	if c.trimQuery {
		query = strings.TrimSpace(query)
	}

	user := transcript.NewUserMessage(query)
	userSeq, busySeq := c.state.begin(user, req)
	defer func() {
		if seq, reset := c.state.ensureIdle(); reset {
			c.logger.Warn().Str("session_id", c.sessionID).Msg("turn exited without a reply, busy reset")
			c.publish(eventbus.Event{Type: eventbus.EventBusyChanged, Seq: seq, Busy: false})
		}
	}()
	c.publish(eventbus.Event{Type: eventbus.EventMessageAppended, Seq: userSeq, Message: &user})
	c.publish(eventbus.Event{Type: eventbus.EventBusyChanged, Seq: busySeq, Busy: true})

	reply, err := c.ask(context.WithoutCancel(ctx), query)

	status := StatusAnswered
	content := reply.Answer
	switch {
	case err != nil:
		status = StatusFailed
		content = ConnectionErrorText
		c.reportFailure(ctx, query, err)
	case reply.Empty():
		status = StatusNoReply
		content = NoReplyText
		c.reportFailure(ctx, query, nil)
	}

	bot := transcript.NewBotMessage(content)
	botSeq, idleSeq := c.state.finish(bot)
	c.publish(eventbus.Event{Type: eventbus.EventMessageAppended, Seq: botSeq, Message: &bot})
	c.publish(eventbus.Event{Type: eventbus.EventBusyChanged, Seq: idleSeq, Busy: false})

	d := time.Since(start)
	c.logger.Debug().
		Str("session_id", c.sessionID).
		Str("status", string(status)).
		Dur("duration", d).
		Msg("turn completed")

	return Result{Status: status, User: user, Bot: bot, Duration: d}
}

// ask calls the answerer and turns a panic into an error.
func (c *Controller) ask(ctx context.Context, query string) (reply answer.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return c.answerer.Ask(ctx, query)
}

type panicError struct {
	value interface{}
}

func (p *panicError) Error() string { return fmt.Sprintf("answerer panicked: %v", p.value) }

func classify(err error) (FailureKind, int) {
	if err == nil {
		return FailureEmptyAnswer, 0
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return FailurePanic, 0
	}
	if se, ok := answer.IsStatusError(err); ok {
		return FailureStatus, se.StatusCode
	}
	if answer.IsDecodeError(err) {
		return FailureDecode, 0
	}
	return FailureTransport, 0
}

func (c *Controller) reportFailure(ctx context.Context, query string, err error) {
	kind, code := classify(err)
	var ev *zerolog.Event
	if err != nil {
		ev = c.logger.Error().Err(err)
	} else {
		ev = c.logger.Warn()
	}
	ev.Str("session_id", c.sessionID).
		Str("kind", string(kind)).
		Int("status_code", code).
		Msg("answer service call did not produce an answer")

	if c.onFailure == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("failure hook panicked")
		}
	}()
	c.onFailure(ctx, Failure{Kind: kind, Query: query, StatusCode: code, Err: err})
}

func (c *Controller) publish(e eventbus.Event) {
	e.SessionID = c.sessionID
	e.Time = time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Str("type", string(e.Type)).Msg("event sink panicked")
		}
	}()
	if err := c.sink.PublishEvent(e); err != nil {
		c.logger.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to publish session event")
	}
}
