package cmds

import (
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/compliance-chat/pkg/chatrunner"
	"github.com/go-go-golems/compliance-chat/pkg/prompts"
)

const otherQuestion = "Something else..."

func NewAskCommand() *cobra.Command {
	var interactive bool
	var markdown string

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and print the answer",
		Long: "Ask one question and print the answer. Without a question on a terminal, " +
			"pick one of the suggested prompts. With --interactive, continue in the chat UI afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				if !isatty.IsTerminal(os.Stdin.Fd()) {
					return errors.Wrap(chatrunner.ErrEmptyQuery, "pass a question as argument")
				}
				set, err := s.Prompts()
				if err != nil {
					return err
				}
				query, err = pickQuestion(set)
				if err != nil {
					return err
				}
			}

			mode := chatrunner.RunModeBlocking
			if interactive {
				mode = chatrunner.RunModeInteractive
			}

			b, err := newChatBuilder(s)
			if err != nil {
				return err
			}
			cs, err := b.WithContext(cmd.Context()).
				WithMode(mode).
				WithQuery(query).
				WithMarkdown(chatrunner.MarkdownMode(markdown)).
				WithOutputWriter(cmd.OutOrStdout()).
				Build()
			if err != nil {
				return err
			}
			defer func() { _ = cs.Close() }()
			return cs.Run()
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Continue in the chat UI after the answer")
	cmd.Flags().StringVar(&markdown, "markdown", string(chatrunner.MarkdownAuto), "Render the answer as markdown: auto, always or never")
	return cmd
}

// pickQuestion lets the user choose a suggested prompt or type their own.
func pickQuestion(set prompts.Set) (string, error) {
	var choice string
	options := huh.NewOptions(append(set.List(), otherQuestion)...)
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(set.Title).
				Options(options...).
				Value(&choice),
		),
	).WithTheme(huh.ThemeCharm()).Run()
	if err != nil {
		return "", errors.Wrap(err, "failed to pick a question")
	}
	if choice != otherQuestion {
		return choice, nil
	}

	var typed string
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Your question").
				Placeholder("Ask about crypto compliance...").
				Value(&typed),
		),
	).WithTheme(huh.ThemeCharm()).Run()
	if err != nil {
		return "", errors.Wrap(err, "failed to read the question")
	}
	return typed, nil
}
