package chatrunner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/eventbus"
	"github.com/go-go-golems/compliance-chat/pkg/prompts"
	"github.com/go-go-golems/compliance-chat/pkg/session"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
	"github.com/go-go-golems/compliance-chat/pkg/ui"
)

// RunMode defines the execution mode for the chat session.
type RunMode string

const (
	RunModeChat        RunMode = "chat"
	RunModeInteractive RunMode = "interactive"
	RunModeBlocking    RunMode = "blocking"
)

// MarkdownMode controls how blocking output is rendered.
type MarkdownMode string

const (
	MarkdownAuto   MarkdownMode = "auto"
	MarkdownAlways MarkdownMode = "always"
	MarkdownNever  MarkdownMode = "never"
)

// ErrEmptyQuery is returned by blocking runs without a query.
var ErrEmptyQuery = errors.New("query is empty")

// ChatSession holds the validated configuration and executes the chat logic.
// It's typically created by the ChatBuilder.
type ChatSession struct {
	ctx            context.Context
	session        *session.Session
	bus            *eventbus.Bus
	ownsBus        bool
	topic          string
	redis          eventbus.Settings
	uiOptions      []ui.ModelOption
	programOptions []tea.ProgramOption
	mode           RunMode
	query          string
	markdown       MarkdownMode
	outputWriter   io.Writer
	logger         zerolog.Logger
}

// Session returns the chat session the runner drives.
func (cs *ChatSession) Session() *session.Session { return cs.session }

// Close releases the event bus if the runner created it.
func (cs *ChatSession) Close() error {
	if !cs.ownsBus {
		return nil
	}
	return cs.bus.Close()
}

// Run executes the chat session based on its configured mode.
func (cs *ChatSession) Run() error {
	switch cs.mode {
	case RunModeChat:
		return cs.runChatInternal()
	case RunModeInteractive:
		return cs.runInteractiveInternal()
	case RunModeBlocking:
		_, err := cs.runBlockingInternal()
		return err
	default:
		return errors.Errorf("unknown run mode: %v", cs.mode)
	}
}

// runChatInternal runs the Bubble Tea UI and forwards session events to it
// until the program quits.
func (cs *ChatSession) runChatInternal() error {
	if cs.redis.Enabled {
		if err := eventbus.EnsureGroupAtTail(cs.ctx, cs.redis, cs.topic, cs.logger); err != nil {
			return err
		}
	}

	eg, childCtx := errgroup.WithContext(cs.ctx)
	childCtx, cancel := context.WithCancel(childCtx)
	defer cancel()

	model := ui.NewModel(childCtx, cs.session, cs.uiOptions...)
	opts := append([]tea.ProgramOption{tea.WithContext(childCtx)}, cs.programOptions...)
	p := tea.NewProgram(model, opts...)

	eg.Go(func() error {
		log.Debug().Str("component", "chatrunner").Msg("Starting event forwarder")
		err := eventbus.ForwardTo(childCtx, cs.bus.Subscriber, cs.topic, cs.logger, ui.ForwardFunc(p, cs.session.ID.String()))
		if errors.Is(err, context.Canceled) && childCtx.Err() != nil {
			return nil
		}
		return err
	})

	eg.Go(func() error {
		defer cancel()
		log.Debug().Str("component", "chatrunner").Msg("Starting Bubble Tea program")
		_, runErr := p.Run()
		log.Debug().Err(runErr).Str("component", "chatrunner").Msg("Bubble Tea program finished")
		if errors.Is(runErr, tea.ErrProgramKilled) && childCtx.Err() != nil {
			return nil
		}
		return runErr
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) && cs.ctx.Err() == context.Canceled {
		return nil
	}
	return err
}

// runBlockingInternal runs one turn with the configured query and prints the reply.
func (cs *ChatSession) runBlockingInternal() (turn.Result, error) {
	if strings.TrimSpace(cs.query) == "" {
		return turn.Result{}, ErrEmptyQuery
	}
	cs.session.SetInput(cs.query)
	res := cs.session.SubmitTyped(cs.ctx)
	if !res.Status.Completed() {
		return res, errors.Errorf("turn was not run (%s)", res.Status)
	}

	out := res.Bot.Content
	if cs.renderMarkdown() {
		rendered, err := renderMarkdown(out, terminalWidth(cs.outputWriter))
		if err != nil {
			log.Debug().Err(err).Msg("Markdown render failed, printing raw text")
		} else {
			out = strings.TrimRight(rendered, "\n")
		}
	}
	if _, err := fmt.Fprintln(cs.outputWriter, out); err != nil {
		return res, errors.Wrap(err, "failed to write output")
	}
	return res, nil
}

// runInteractiveInternal handles initial blocking run + optional chat transition.
func (cs *ChatSession) runInteractiveInternal() error {
	log.Debug().Msg("Running initial blocking step for interactive mode")
	if _, err := cs.runBlockingInternal(); err != nil {
		return errors.Wrap(err, "error during initial blocking step")
	}

	// Use Stderr for prompt asking, as Stdout might be redirected.
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.Debug().Msg("Stderr is not a TTY, skipping chat continuation prompt")
		return nil
	}

	continueInChat, err := askForChatContinuation(os.Stderr)
	if err != nil {
		return errors.Wrap(err, "failed to ask for chat continuation")
	}
	if !continueInChat {
		log.Debug().Msg("User chose not to continue in chat mode")
		return nil
	}

	log.Debug().Msg("User chose to continue, starting chat UI")
	return cs.runChatInternal()
}

func (cs *ChatSession) renderMarkdown() bool {
	switch cs.markdown {
	case MarkdownAlways:
		return true
	case MarkdownNever:
		return false
	default:
		f, ok := cs.outputWriter.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
}

func renderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to create markdown renderer")
	}
	return r.Render(text)
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// --- ChatBuilder ---

// ChatBuilder provides a fluent API for configuring and running a chat session.
type ChatBuilder struct {
	err            error
	ctx            context.Context
	answerer       answer.Answerer
	prompts        prompts.Set
	sessionOptions []session.Option
	turnOptions    []turn.Option
	bus            *eventbus.Bus
	redis          eventbus.Settings
	topic          string
	uiOptions      []ui.ModelOption
	programOptions []tea.ProgramOption
	mode           RunMode
	query          string
	markdown       MarkdownMode
	outputWriter   io.Writer
	logger         zerolog.Logger
}

// NewChatBuilder creates a new builder with default settings.
func NewChatBuilder() *ChatBuilder {
	return &ChatBuilder{
		ctx:            context.Background(),
		prompts:        prompts.Default(),
		redis:          eventbus.DefaultSettings(),
		topic:          eventbus.DefaultTopic,
		programOptions: []tea.ProgramOption{tea.WithMouseCellMotion(), tea.WithAltScreen()},
		mode:           RunModeChat,
		markdown:       MarkdownAuto,
		outputWriter:   os.Stdout,
		logger:         log.Logger,
	}
}

// WithContext sets the context for the chat session.
func (b *ChatBuilder) WithContext(ctx context.Context) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if ctx == nil {
		b.err = errors.New("context cannot be nil")
		return b
	}
	b.ctx = ctx
	return b
}

// WithAnswerer sets the answering service client. (Required)
func (b *ChatBuilder) WithAnswerer(a answer.Answerer) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if a == nil {
		b.err = errors.New("answerer cannot be nil")
		return b
	}
	b.answerer = a
	return b
}

func (b *ChatBuilder) WithPrompts(set prompts.Set) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if set.Len() == 0 {
		b.err = errors.New("prompt set cannot be empty")
		return b
	}
	b.prompts = set
	return b
}

func (b *ChatBuilder) WithSessionOptions(opts ...session.Option) *ChatBuilder {
	b.sessionOptions = append(b.sessionOptions, opts...)
	return b
}

func (b *ChatBuilder) WithTurnOptions(opts ...turn.Option) *ChatBuilder {
	b.turnOptions = append(b.turnOptions, opts...)
	return b
}

// WithRedis mirrors session events to Redis Streams when s.Enabled is set.
func (b *ChatBuilder) WithRedis(s eventbus.Settings) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if err := s.Validate(); err != nil {
		b.err = err
		return b
	}
	b.redis = s
	return b
}

// WithExternalBus provides an existing bus. It is not closed by the session.
func (b *ChatBuilder) WithExternalBus(bus *eventbus.Bus) *ChatBuilder {
	b.bus = bus
	return b
}

// WithUIOptions adds options for configuring the chat model.
func (b *ChatBuilder) WithUIOptions(opts ...ui.ModelOption) *ChatBuilder {
	b.uiOptions = append(b.uiOptions, opts...)
	return b
}

// WithProgramOptions adds options for configuring the bubbletea program.
func (b *ChatBuilder) WithProgramOptions(opts ...tea.ProgramOption) *ChatBuilder {
	b.programOptions = append(b.programOptions, opts...)
	return b
}

// WithMode sets the execution mode (chat, interactive, blocking).
func (b *ChatBuilder) WithMode(mode RunMode) *ChatBuilder {
	if b.err != nil {
		return b
	}
	switch mode {
	case RunModeChat, RunModeInteractive, RunModeBlocking:
		b.mode = mode
	default:
		b.err = errors.Errorf("invalid run mode: %s", mode)
	}
	return b
}

// WithQuery sets the question asked by blocking and interactive modes.
func (b *ChatBuilder) WithQuery(q string) *ChatBuilder {
	b.query = q
	return b
}

func (b *ChatBuilder) WithMarkdown(mode MarkdownMode) *ChatBuilder {
	if b.err != nil {
		return b
	}
	switch mode {
	case MarkdownAuto, MarkdownAlways, MarkdownNever:
		b.markdown = mode
	default:
		b.err = errors.Errorf("invalid markdown mode: %s", mode)
	}
	return b
}

// WithOutputWriter sets the writer for blocking or interactive modes.
// Defaults to os.Stdout.
func (b *ChatBuilder) WithOutputWriter(w io.Writer) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = errors.New("output writer cannot be nil")
		return b
	}
	b.outputWriter = w
	return b
}

func (b *ChatBuilder) WithLogger(l zerolog.Logger) *ChatBuilder {
	b.logger = l
	return b
}

// Build validates the configuration, creates the event bus if none was given,
// and wires a session whose events are published on it.
func (b *ChatBuilder) Build() (*ChatSession, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.answerer == nil {
		return nil, errors.New("answerer is required (use WithAnswerer)")
	}
	if (b.mode == RunModeBlocking || b.mode == RunModeInteractive) && strings.TrimSpace(b.query) == "" {
		return nil, errors.Wrapf(ErrEmptyQuery, "%s mode needs a query (use WithQuery)", b.mode)
	}

	bus, ownsBus := b.bus, false
	if bus == nil {
		var err error
		bus, err = eventbus.Build(b.redis, b.logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create event bus")
		}
		ownsBus = true
	}

	turnOpts := append([]turn.Option{
		turn.WithLogger(b.logger),
		turn.WithSink(eventbus.NewWatermillSink(bus.Publisher, b.topic)),
	}, b.turnOptions...)
	sessionOpts := append([]session.Option{session.WithTurnOptions(turnOpts...)}, b.sessionOptions...)

	s, err := session.New(b.answerer, b.prompts, sessionOpts...)
	if err != nil {
		if ownsBus {
			_ = bus.Close()
		}
		return nil, err
	}

	return &ChatSession{
		ctx:            b.ctx,
		session:        s,
		bus:            bus,
		ownsBus:        ownsBus,
		topic:          b.topic,
		redis:          b.redis,
		uiOptions:      b.uiOptions,
		programOptions: b.programOptions,
		mode:           b.mode,
		query:          b.query,
		markdown:       b.markdown,
		outputWriter:   b.outputWriter,
		logger:         b.logger,
	}, nil
}

// askForChatContinuation prompts the user on the given TTY whether they want
// to continue in chat mode.
func askForChatContinuation(tty io.ReadWriter) (bool, error) {
	prompt := &input.UI{
		Writer: tty,
		Reader: tty,
	}

	_, _ = fmt.Fprint(tty, "\n")
	query := "Do you want to continue in chat mode? [Y/n]"
	reply, err := prompt.Ask(query, &input.Options{
		Default:  "y",
		Required: true,
		Loop:     true,
		ValidateFunc: func(s string) error {
			switch s {
			case "y", "Y", "n", "N", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user input")
	}
	_, _ = fmt.Fprint(tty, "\n")

	return reply == "y" || reply == "Y" || reply == "", nil
}
