package audit_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mergereport/internal/audit"
	"github.com/temirov/mergereport/internal/githubcli"
)

type stubToolLocator struct {
	missingTools map[string]struct{}
}

func (locator stubToolLocator) LookPath(executableName string) (string, error) {
	if _, missing := locator.missingTools[executableName]; missing {
		return "", errors.New("executable file not found in $PATH")
	}
	return filepath.Join("/usr/bin", executableName), nil
}

func testConfigurationProvider(testInstance *testing.T) (audit.ConfigurationProvider, string) {
	testInstance.Helper()
	workingDirectory := testInstance.TempDir()
	configuration := audit.DefaultCommandConfiguration()
	configuration.Organization = serviceTestOrganizationConstant
	configuration.CloneRoot = filepath.Join(workingDirectory, "clones")
	configuration.ReportDirectory = filepath.Join(workingDirectory, "reports")
	return func() audit.CommandConfiguration { return configuration }, configuration.ReportDirectory
}

func TestCommandBuilderRegistersFlags(testInstance *testing.T) {
	builder := &audit.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	for _, flagName := range []string{"strict-tickets", "strict-subjects", "strict-approvers", "debug"} {
		require.NotNil(testInstance, command.Flags().Lookup(flagName), flagName)
	}
	require.True(testInstance, strings.HasPrefix(command.Use, "report"))
}

func TestCommandShowsHelpWithoutRepositories(testInstance *testing.T) {
	configurationProvider, _ := testConfigurationProvider(testInstance)
	builder := &audit.CommandBuilder{
		ConfigurationProvider: configurationProvider,
		GitHubClient:          &stubMetadataClient{},
		RepositoryManager:     &stubRepositorySynchronizer{},
		ToolLocator:           stubToolLocator{},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetArgs([]string{})

	executionError := command.Execute()
	var exitError audit.ExitCodeError
	require.ErrorAs(testInstance, executionError, &exitError)
	require.Equal(testInstance, audit.ExitCodeNoRepositories, exitError.Code)
	require.Contains(testInstance, outputBuffer.String(), "report")
}

func TestCommandFailsWhenPrerequisiteMissing(testInstance *testing.T) {
	configurationProvider, _ := testConfigurationProvider(testInstance)
	builder := &audit.CommandBuilder{
		ConfigurationProvider: configurationProvider,
		GitHubClient:          &stubMetadataClient{},
		RepositoryManager:     &stubRepositorySynchronizer{},
		ToolLocator:           stubToolLocator{missingTools: map[string]struct{}{"gh": {}}},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{serviceTestRepositoryConstant})

	executionError := command.Execute()
	var exitError audit.ExitCodeError
	require.ErrorAs(testInstance, executionError, &exitError)
	require.Equal(testInstance, audit.ExitCodeGeneralFailure, exitError.Code)
}

func TestCommandRunsReportWithInjectedDependencies(testInstance *testing.T) {
	pull := mergedPullRequest(1, "2024-03-05T10:00:00Z", "Fix login regression", "PROJ-101")
	client := &stubMetadataClient{
		fixtures: map[string]repositoryFixture{
			serviceTestRepositoryConstant: {
				pullRequests: []githubcli.PullRequestDetails{pull},
				reviews:      map[int][]githubcli.PullRequestReview{1: {{State: "APPROVED", AuthorLogin: "alice"}}},
				commits:      map[string]githubcli.CommitDetails{"sha-1": {Message: "Fix login regression (#1)"}},
			},
		},
	}
	configurationProvider, reportDirectory := testConfigurationProvider(testInstance)
	builder := &audit.CommandBuilder{
		ConfigurationProvider: configurationProvider,
		GitHubClient:          client,
		RepositoryManager:     &stubRepositorySynchronizer{},
		SpreadsheetRenderer:   &recordingSpreadsheetRenderer{},
		ToolLocator:           stubToolLocator{},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{serviceTestRepositoryConstant})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "1 rows written")

	reportFileName := audit.DefaultReportPrefixConstant + serviceTestRepositoryConstant + "_" + audit.DefaultWindowStartConstant + "_" + audit.DefaultWindowEndConstant + ".csv"
	reportContents, readError := os.ReadFile(filepath.Join(reportDirectory, reportFileName))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(reportContents), pull.URL)
}

func TestCommandStrictTicketsFlagOverridesConfiguration(testInstance *testing.T) {
	pull := mergedPullRequest(1, "2024-03-05T10:00:00Z", "No references here", "")
	client := &stubMetadataClient{
		fixtures: map[string]repositoryFixture{
			serviceTestRepositoryConstant: {
				pullRequests: []githubcli.PullRequestDetails{pull},
				commits:      map[string]githubcli.CommitDetails{"sha-1": {Message: "No references here (#1)"}},
			},
		},
	}
	configurationProvider, _ := testConfigurationProvider(testInstance)
	builder := &audit.CommandBuilder{
		ConfigurationProvider: configurationProvider,
		GitHubClient:          client,
		RepositoryManager:     &stubRepositorySynchronizer{},
		ToolLocator:           stubToolLocator{},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{"--strict-tickets", serviceTestRepositoryConstant})

	executionError := command.Execute()
	var exitError audit.ExitCodeError
	require.ErrorAs(testInstance, executionError, &exitError)
	require.Equal(testInstance, audit.ExitCodeStrictTickets, exitError.Code)
}
