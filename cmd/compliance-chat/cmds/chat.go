package cmds

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/compliance-chat/pkg/chatrunner"
)

func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			b, err := newChatBuilder(s)
			if err != nil {
				return err
			}
			cs, err := b.WithContext(cmd.Context()).
				WithMode(chatrunner.RunModeChat).
				Build()
			if err != nil {
				return err
			}
			defer func() { _ = cs.Close() }()
			return cs.Run()
		},
	}
}
