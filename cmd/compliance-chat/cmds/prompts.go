package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
)

// PromptsCommand lists the suggested prompts, one row per prompt.
type PromptsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = &PromptsCommand{}

func NewPromptsCommand() (*PromptsCommand, error) {
	glazedLayer, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsLayer, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"prompts",
		cmds.WithShort("List the suggested prompts"),
		cmds.WithLong("List the suggested prompts shown while a conversation is empty. Use --prompts-file to override them."),
		cmds.WithSections(glazedLayer, commandSettingsLayer),
	)
	return &PromptsCommand{CommandDescription: desc}, nil
}

func (c *PromptsCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	_ *values.Values,
	gp middlewares.Processor,
) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	set, err := s.Prompts()
	if err != nil {
		return err
	}
	for i, p := range set.List() {
		row := types.NewRow(
			types.MRP("key", i+1),
			types.MRP("prompt", p),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
