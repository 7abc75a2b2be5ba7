package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitRootCmd(t *testing.T) {
	require.NoError(t, initRootCmd())
	require.NoError(t, initAllCommands())

	require.NotNil(t, rootCmd.PersistentPreRunE)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("api-url"))

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"chat", "ask", "prompts", "serve-stub"} {
		require.True(t, names[want], want)
	}
}
