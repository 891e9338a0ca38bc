package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "marketplace", cmd.Use)
	assert.Contains(t, cmd.Long, "journaled")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"init", "role", "add-admin", "delete-admin", "add-owner", "delete-owner",
		"create-store", "stores", "store", "log", "replay", "test", "serve",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestMutationCommandsRequireFrom(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"add-admin", "delete-admin", "add-owner", "delete-owner", "create-store"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			fromFlag := sub.Flags().Lookup("from")
			require.NotNil(t, fromFlag)
			assert.Equal(t, []string{"true"}, fromFlag.Annotations[cobra.BashCompOneRequiredFlag])
		})
	}
}

func TestInitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)

	require.NotNil(t, initCmd.Flags().Lookup("deployer"))
}

func TestLogCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	logCmd, _, err := cmd.Find([]string{"log"})
	require.NoError(t, err)

	require.NotNil(t, logCmd.Flags().Lookup("kind"))
	require.NotNil(t, logCmd.Flags().Lookup("subject"))

	sinceFlag := logCmd.Flags().Lookup("since")
	require.NotNil(t, sinceFlag)
	assert.Equal(t, "0", sinceFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	require.NotNil(t, serveCmd.Flags().Lookup("addr"))

	pollFlag := serveCmd.Flags().Lookup("poll-timeout")
	require.NotNil(t, pollFlag)
	assert.Equal(t, "30s", pollFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "stores"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
