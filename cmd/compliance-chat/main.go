package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/compliance-chat/cmd/compliance-chat/cmds"
	"github.com/go-go-golems/compliance-chat/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "compliance-chat",
	Short: "compliance-chat is a terminal chat client for a crypto compliance answering service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// the logging flags are only parsed once cobra has run
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	// .env has to be in the environment before viper binds it
	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("could not load .env")
	}

	err := initRootCmd()
	cobra.CheckErr(err)

	err = initAllCommands()
	cobra.CheckErr(err)

	err = rootCmd.Execute()
	cobra.CheckErr(err)
}

func initRootCmd() error {
	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	config.AddFlags(rootCmd.PersistentFlags())

	if err := clay.InitGlazed("compliance-chat", rootCmd); err != nil {
		return err
	}

	return viper.BindPFlags(rootCmd.PersistentFlags())
}

func initAllCommands() error {
	rootCmd.AddCommand(cmds.NewChatCommand())
	rootCmd.AddCommand(cmds.NewAskCommand())
	rootCmd.AddCommand(cmds.NewServeStubCommand())

	promptsCmd, err := cmds.NewPromptsCommand()
	if err != nil {
		return err
	}
	cobraPromptsCmd, err := cli.BuildCobraCommand(promptsCmd)
	if err != nil {
		return err
	}
	rootCmd.AddCommand(cobraPromptsCmd)

	return nil
}
