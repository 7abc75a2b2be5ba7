package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/turn"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLegacyAPIURL, "")

	s, err := Load(viper.New(), newFlags(t))
	require.NoError(t, err)
	require.Equal(t, DefaultAPIURL, s.APIURL)
	require.Equal(t, turn.PolicyQueue, s.BusyPolicy)
	require.Equal(t, time.Duration(0), s.RequestTimeout)
	require.False(t, s.TrimQuery)
	require.False(t, s.Redis.Enabled)
	require.Equal(t, "localhost:6379", s.Redis.Addr)
}

func TestLoad_Flags(t *testing.T) {
	fs := newFlags(t,
		"--api-url", "http://api.example.com///",
		"--request-timeout", "3s",
		"--busy-policy", "reject",
		"--trim-query",
	)
	s, err := Load(viper.New(), fs)
	require.NoError(t, err)
	require.Equal(t, "http://api.example.com", s.APIURL)
	require.Equal(t, 3*time.Second, s.RequestTimeout)
	require.Equal(t, turn.PolicyReject, s.BusyPolicy)
	require.True(t, s.TrimQuery)
}

func TestLoad_EnvFallsBackToLegacyName(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLegacyAPIURL, "http://legacy:9000/")

	// no flag set, so the environment is consulted
	s, err := Load(viper.New(), nil)
	require.NoError(t, err)
	require.Equal(t, "http://legacy:9000", s.APIURL)

	t.Setenv(EnvAPIURL, "https://primary.example.com")
	s, err = Load(viper.New(), nil)
	require.NoError(t, err)
	require.Equal(t, "https://primary.example.com", s.APIURL)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	_, err := Load(viper.New(), newFlags(t, "--busy-policy", "drop"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())

	s.APIURL = ""
	require.ErrorIs(t, s.Validate(), answer.ErrNoBaseURL)

	s = Default()
	s.APIURL = "localhost:8000"
	require.Error(t, s.Validate())

	s = Default()
	s.RequestTimeout = -time.Second
	require.Error(t, s.Validate())

	s = Default()
	s.Redis.Enabled = true
	s.Redis.Addr = ""
	require.Error(t, s.Validate())
}

func TestSettings_PromptsAndClient(t *testing.T) {
	s := Default()
	set, err := s.Prompts()
	require.NoError(t, err)
	require.Equal(t, 5, set.Len())

	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  - What is MiCA?\n"), 0o600))
	s.PromptsFile = path
	set, err = s.Prompts()
	require.NoError(t, err)
	require.Equal(t, []string{"What is MiCA?"}, set.List())

	c, err := s.Client()
	require.NoError(t, err)
	require.Equal(t, DefaultAPIURL+answer.QueryPath, c.Endpoint())
	require.Len(t, s.TurnOptions(), 2)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(EnvLegacyAPIURL+"=http://from-dotenv:8000\n"), 0o600))

	require.NoError(t, os.Unsetenv(EnvLegacyAPIURL))
	t.Cleanup(func() { _ = os.Unsetenv(EnvLegacyAPIURL) })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "http://from-dotenv:8000", os.Getenv(EnvLegacyAPIURL))
}
