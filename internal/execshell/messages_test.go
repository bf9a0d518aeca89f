package execshell_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mergereport/internal/execshell"
)

func TestCommandMessageFormatterDescribesPipelineCommands(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}

	testCases := []struct {
		name            string
		command         execshell.ShellCommand
		result          execshell.ExecutionResult
		failure         error
		buildMessage    func(execshell.ShellCommand, execshell.ExecutionResult, error) string
		expectedMessage string
	}{
		{
			name: "clone_start",
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"clone", "https://github.com/example/widgets.git", "/tmp/widgets"}},
			},
			buildMessage: func(command execshell.ShellCommand, result execshell.ExecutionResult, failure error) string {
				return formatter.BuildStartedMessage(command)
			},
			expectedMessage: "Cloning https://github.com/example/widgets.git",
		},
		{
			name: "fetch_failure",
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"fetch", "--all", "--prune"}, WorkingDirectory: "/tmp/widgets"},
			},
			result: execshell.ExecutionResult{ExitCode: 128, StandardError: "could not resolve host"},
			buildMessage: func(command execshell.ShellCommand, result execshell.ExecutionResult, failure error) string {
				return formatter.BuildFailureMessage(command, result)
			},
			expectedMessage: "Failed to fetch remote references in /tmp/widgets (exit code 128: could not resolve host)",
		},
		{
			name: "ancestry_failure",
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"merge-base", "--is-ancestor", "abc123", "refs/remotes/origin/main"}, WorkingDirectory: "/tmp/widgets"},
			},
			result: execshell.ExecutionResult{ExitCode: 1},
			buildMessage: func(command execshell.ShellCommand, result execshell.ExecutionResult, failure error) string {
				return formatter.BuildFailureMessage(command, result)
			},
			expectedMessage: "abc123 is not an ancestor in /tmp/widgets (exit code 1)",
		},
		{
			name: "api_start",
			command: execshell.ShellCommand{
				Name:    execshell.CommandGitHub,
				Details: execshell.CommandDetails{Arguments: []string{"api", "repos/example/widgets/pulls?state=closed"}},
			},
			buildMessage: func(command execshell.ShellCommand, result execshell.ExecutionResult, failure error) string {
				return formatter.BuildStartedMessage(command)
			},
			expectedMessage: "Requesting GitHub API path repos/example/widgets/pulls?state=closed",
		},
		{
			name: "auth_execution_failure",
			command: execshell.ShellCommand{
				Name:    execshell.CommandGitHub,
				Details: execshell.CommandDetails{Arguments: []string{"auth", "status"}},
			},
			failure: errors.New("executable file not found"),
			buildMessage: func(command execshell.ShellCommand, result execshell.ExecutionResult, failure error) string {
				return formatter.BuildExecutionFailureMessage(command, failure)
			},
			expectedMessage: "Unable to verify GitHub CLI authentication: executable file not found",
		},
		{
			name: "generic_success",
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"status"}, WorkingDirectory: "/tmp/widgets"},
			},
			buildMessage: func(command execshell.ShellCommand, result execshell.ExecutionResult, failure error) string {
				return formatter.BuildSuccessMessage(command)
			},
			expectedMessage: "Completed git status (in /tmp/widgets)",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			message := testCase.buildMessage(testCase.command, testCase.result, testCase.failure)
			require.Equal(testInstance, testCase.expectedMessage, message)
		})
	}
}
