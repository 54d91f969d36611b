package test

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// CmdTest is a helper struct to test commands.
type CmdTest struct {
	Name        string   // Name of the test.
	Args        []string // Arguments to pass to the command.
	ExpectedOut []string // Expected output to be present in stdout or the captured log.
}

// Command is a helper struct to test commands.
type Command struct {
	Helper
}

func (th Command) RunCommand(t *testing.T, cmd *cobra.Command, testCase CmdTest) {
	t.Helper()

	cmdRoot := &cobra.Command{Use: "root"}
	cmdRoot.AddCommand(cmd)
	cmdRoot.SetArgs(testCase.Args)

	var stdout bytes.Buffer
	cmdRoot.SetOut(&stdout)
	cmdRoot.SetErr(&stdout)

	err := cmdRoot.ExecuteContext(th.Context)
	require.NoError(t, err)

	output := stdout.String()
	if th.LoggingOutput != nil {
		output += th.LoggingOutput.String()
	}

	for _, expectedOutput := range testCase.ExpectedOut {
		require.Contains(t, output, expectedOutput)
	}
}

// RunCommandWithError runs a command and returns the error (if any) without failing the test.
func (th Command) RunCommandWithError(t *testing.T, cmd *cobra.Command, testCase CmdTest) error {
	t.Helper()

	cmdRoot := &cobra.Command{Use: "root"}
	cmdRoot.AddCommand(cmd)
	cmdRoot.SetArgs(testCase.Args)

	var stdout bytes.Buffer
	cmdRoot.SetOut(&stdout)
	cmdRoot.SetErr(&stdout)

	err := cmdRoot.ExecuteContext(th.Context)

	if err == nil {
		output := stdout.String()
		if th.LoggingOutput != nil {
			output += th.LoggingOutput.String()
		}
		for _, expectedOutput := range testCase.ExpectedOut {
			if len(expectedOutput) > 0 {
				require.Contains(t, output, expectedOutput)
			}
		}
	}

	return err
}

func SetupCommand(t *testing.T, opts ...HelperOption) Command {
	t.Helper()

	opts = append(opts, WithCaptureLoggingOutput())
	return Command{Helper: Setup(t, opts...)}
}
