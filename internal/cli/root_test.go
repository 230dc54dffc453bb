package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "viewq", cmd.Use)
	assert.Contains(t, cmd.Long, "remote pass")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"read", "remote", "mutate", "validate", "keys", "replay", "test"}

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
	assert.Equal(t, "", configFlag.DefValue)
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"read", "remote"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			for _, flag := range []string{"store", "journal", "query", "expr"} {
				assert.NotNil(t, sub.Flags().Lookup(flag), "missing --%s", flag)
			}
			assert.Equal(t, "e", sub.Flags().Lookup("expr").Shorthand)
		})
	}
}

func TestMutateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	mutateCmd, _, err := cmd.Find([]string{"mutate"})
	require.NoError(t, err)

	paramsFlag := mutateCmd.Flags().Lookup("params")
	require.NotNil(t, paramsFlag)
	assert.Equal(t, "{}", paramsFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "keys", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "viewq.yaml")
	content := "log:\n  level: debug\n  format: json\npasses:\n  id_prefix: run\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	out, errOut, err := execute(t, "remote", "--config", cfgPath, "--format", "json",
		"--store", "testdata/dashboard.yaml", "--query", "testdata/remote.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `"pass_id":"run-1"`)
	assert.Contains(t, errOut, `"msg":"remote pass"`, "json logs on stderr")
}

func TestConfigFileMissing(t *testing.T) {
	_, _, err := execute(t, "keys", "--config", "/nonexistent/viewq.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
