package audit

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mergereport/internal/execshell"
	"github.com/temirov/mergereport/internal/githubcli"
	"github.com/temirov/mergereport/internal/gitrepo"
	"github.com/temirov/mergereport/internal/report"
	"github.com/temirov/mergereport/internal/retry"
)

const (
	commandUseConstant      = "report REPO [REPO...]"
	commandShortDescription = "Generate merged pull request reports"
	commandLongDescription  = "report collects merged pull requests for each named repository, enriches them with commit subjects, approvers, and ticket references, and writes one CSV report per repository with a spreadsheet rendering."

	flagStrictTicketsName          = "strict-tickets"
	flagStrictTicketsDescription   = "fail when any pull request lacks a ticket reference"
	flagStrictSubjectsName         = "strict-subjects"
	flagStrictSubjectsDescription  = "fail when any merge commit subject falls back to the pull request title"
	flagStrictApproversName        = "strict-approvers"
	flagStrictApproversDescription = "fail when any pull request lacks approving reviews"
	flagDebugName                  = "debug"
	flagDebugDescription           = "emit verbose diagnostics"

	gitExecutableConstant       = "git"
	githubExecutableConstant    = "gh"
	missingPrerequisiteTemplate = "required tool %q not found: %w"
	missingRepositoriesMessage  = "at least one repository argument required"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies persistent configuration for the report command.
type ConfigurationProvider func() CommandConfiguration

type osToolLocator struct{}

func (osToolLocator) LookPath(executableName string) (string, error) {
	return exec.LookPath(executableName)
}

// CommandBuilder assembles the report cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GitHubClient          MetadataClient
	RepositoryManager     RepositorySynchronizer
	ReportFileFactory     ReportFileFactory
	SpreadsheetRenderer   SpreadsheetRenderer
	ToolLocator           ToolLocator
	CommandEventsObserver execshell.CommandEventObserver
}

// Build constructs the cobra command for the report workflow.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		Args:  cobra.ArbitraryArgs,
		RunE:  builder.run,
	}

	command.Flags().Bool(flagStrictTicketsName, false, flagStrictTicketsDescription)
	command.Flags().Bool(flagStrictSubjectsName, false, flagStrictSubjectsDescription)
	command.Flags().Bool(flagStrictApproversName, false, flagStrictApproversDescription)
	command.Flags().Bool(flagDebugName, false, flagDebugDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	if prerequisiteError := builder.checkPrerequisites(); prerequisiteError != nil {
		return prerequisiteError
	}

	logger := builder.resolveLogger()

	githubClient, repositoryManager, dependenciesError := builder.resolveDependencies(logger)
	if dependenciesError != nil {
		return dependenciesError
	}

	service := NewService(githubClient, repositoryManager, builder.ReportFileFactory, builder.resolveSpreadsheetRenderer(), logger, command.OutOrStdout(), command.ErrOrStderr())
	return service.Run(command.Context(), options)
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (CommandOptions, error) {
	configuration := builder.resolveConfiguration().sanitize()

	repositories := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 {
			continue
		}
		repositories = append(repositories, trimmedArgument)
	}
	if len(repositories) == 0 {
		if helpError := command.Help(); helpError != nil {
			return CommandOptions{}, helpError
		}
		return CommandOptions{}, ExitCodeError{Code: ExitCodeNoRepositories, Cause: errors.New(missingRepositoriesMessage)}
	}

	options := CommandOptions{
		Repositories:    repositories,
		Organization:    configuration.Organization,
		WindowStart:     configuration.WindowStart,
		WindowEnd:       configuration.WindowEnd,
		BaseBranch:      configuration.BaseBranch,
		TicketPattern:   configuration.TicketPattern,
		TicketURLPrefix: configuration.TicketURLPrefix,
		ReportPrefix:    configuration.ReportPrefix,
		CloneRoot:       configuration.CloneRoot,
		ReportDirectory: configuration.ReportDirectory,
		StrictTickets:   configuration.StrictTickets,
		StrictSubjects:  configuration.StrictSubjects,
		StrictApprovers: configuration.StrictApprovers,
		DebugOutput:     configuration.Debug,
	}

	if command.Flags().Changed(flagStrictTicketsName) {
		options.StrictTickets, _ = command.Flags().GetBool(flagStrictTicketsName)
	}
	if command.Flags().Changed(flagStrictSubjectsName) {
		options.StrictSubjects, _ = command.Flags().GetBool(flagStrictSubjectsName)
	}
	if command.Flags().Changed(flagStrictApproversName) {
		options.StrictApprovers, _ = command.Flags().GetBool(flagStrictApproversName)
	}
	if command.Flags().Changed(flagDebugName) {
		options.DebugOutput, _ = command.Flags().GetBool(flagDebugName)
	}

	return options, nil
}

func (builder *CommandBuilder) checkPrerequisites() error {
	toolLocator := builder.ToolLocator
	if toolLocator == nil {
		toolLocator = osToolLocator{}
	}

	for _, executableName := range []string{gitExecutableConstant, githubExecutableConstant} {
		if _, lookupError := toolLocator.LookPath(executableName); lookupError != nil {
			return ExitCodeError{
				Code:  ExitCodeGeneralFailure,
				Cause: fmt.Errorf(missingPrerequisiteTemplate, executableName, lookupError),
			}
		}
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveDependencies(logger *zap.Logger) (MetadataClient, RepositorySynchronizer, error) {
	githubClient := builder.GitHubClient
	repositoryManager := builder.RepositoryManager
	if githubClient != nil && repositoryManager != nil {
		return githubClient, repositoryManager, nil
	}

	shellExecutor, executorError := execshell.NewShellExecutorWithObserver(logger, execshell.NewOSCommandRunner(), builder.CommandEventsObserver)
	if executorError != nil {
		return nil, nil, executorError
	}

	if githubClient == nil {
		resilientClient, clientError := githubcli.NewClient(shellExecutor, retry.NewDefaultPolicy(retry.ClassifyTransientFailure))
		if clientError != nil {
			return nil, nil, clientError
		}
		githubClient = resilientClient
	}

	if repositoryManager == nil {
		cloneManager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
		if managerError != nil {
			return nil, nil, managerError
		}
		repositoryManager = cloneManager
	}

	return githubClient, repositoryManager, nil
}

func (builder *CommandBuilder) resolveSpreadsheetRenderer() SpreadsheetRenderer {
	if builder.SpreadsheetRenderer != nil {
		return builder.SpreadsheetRenderer
	}
	return report.SpreadsheetRenderer{}
}
