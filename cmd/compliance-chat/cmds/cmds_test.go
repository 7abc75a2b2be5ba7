package cmds

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAskCommand_Flags(t *testing.T) {
	cmd := NewAskCommand()
	require.Equal(t, "ask", cmd.Name())
	require.NotNil(t, cmd.Flags().Lookup("interactive"))
	require.Equal(t, "auto", cmd.Flags().Lookup("markdown").DefValue)
}

func TestNewPromptsCommand(t *testing.T) {
	c, err := NewPromptsCommand()
	require.NoError(t, err)
	require.Equal(t, "prompts", c.Name)
}

func TestServeStub_RejectsUnknownMode(t *testing.T) {
	cmd := NewServeStubCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--mode", "sideways"})
	require.Error(t, cmd.Execute())
}
