package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitCloneSubcommandNameConstant     = "clone"
	gitFetchSubcommandNameConstant     = "fetch"
	gitMergeBaseSubcommandNameConstant = "merge-base"
	gitRevParseSubcommandNameConstant  = "rev-parse"
	gitLogSubcommandNameConstant       = "log"
	githubAPISubcommandNameConstant    = "api"
	githubAuthSubcommandNameConstant   = "auth"
	mergeBaseIsAncestorFlagConstant    = "--is-ancestor"
)

const (
	gitCloneStartTemplateConstant            = "Cloning %s"
	gitCloneSuccessTemplateConstant          = "Cloned %s"
	gitCloneFailureTemplateConstant          = "Failed to clone %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant = "Unable to clone %s: %s"
	gitFetchStartTemplateConstant            = "Fetching remote references in %s"
	gitFetchSuccessTemplateConstant          = "Fetched remote references in %s"
	gitFetchFailureTemplateConstant          = "Failed to fetch remote references in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant = "Unable to fetch remote references in %s: %s"
	gitAncestryStartTemplateConstant         = "Checking ancestry of %s in %s"
	gitAncestrySuccessTemplateConstant       = "Confirmed ancestry of %s in %s"
	gitAncestryFailureTemplateConstant       = "%s is not an ancestor in %s (exit code %d%s)"
	gitAncestryExecutionFailureConstant      = "Unable to check ancestry of %s in %s: %s"
	gitRevisionStartTemplateConstant         = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant       = "%s in %s resolved to %s"
	gitRevisionEmptySuccessTemplateConstant  = "%s in %s did not resolve to a revision"
	gitRevisionFailureTemplateConstant       = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureConstant      = "Unable to resolve %s in %s: %s"
	githubAPIStartTemplateConstant           = "Requesting GitHub API path %s"
	githubAPISuccessTemplateConstant         = "Received GitHub API response for %s"
	githubAPIFailureTemplateConstant         = "GitHub API request for %s failed (exit code %d%s)"
	githubAPIExecutionFailureConstant        = "Unable to request GitHub API path %s: %s"
	githubAuthStartMessageConstant           = "Verifying GitHub CLI authentication"
	githubAuthSuccessMessageConstant         = "GitHub CLI authentication verified"
	githubAuthFailureTemplateConstant        = "GitHub CLI authentication check failed (exit code %d%s)"
	githubAuthExecutionFailureConstant       = "Unable to verify GitHub CLI authentication: %s"
)

const (
	ancestryMinimumArgumentCountConstant      = 3
	githubAPIPathArgumentIndexConstant        = 1
	githubAPIMinimumArgumentCountConstant     = 2
	revisionReferenceFallbackArgumentConstant = "HEAD"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandGitHub:
		return formatter.describeGitHubMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, result, failure, stage)
	case gitMergeBaseSubcommandNameConstant:
		return formatter.describeGitAncestryMessage(command, result, failure, stage)
	case gitRevParseSubcommandNameConstant, gitLogSubcommandNameConstant:
		return formatter.describeGitRevisionMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	cloneSource := formatter.argumentAtIndex(command.Details.Arguments, 1)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, cloneSource)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, cloneSource)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, cloneSource, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, cloneSource, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitFetchStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitFetchSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitFetchFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitAncestryMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	commitReference := fallbackUnknownValueLabelConstant
	if containsArgument(arguments, mergeBaseIsAncestorFlagConstant) && len(arguments) >= ancestryMinimumArgumentCountConstant {
		commitReference = arguments[len(arguments)-2]
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitAncestryStartTemplateConstant, commitReference, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitAncestrySuccessTemplateConstant, commitReference, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitAncestryFailureTemplateConstant, commitReference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitAncestryExecutionFailureConstant, commitReference, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitRevisionMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	reference := formatter.resolveRevisionReference(command.Details.Arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		trimmed := strings.TrimSpace(result.StandardOutput)
		if len(trimmed) == 0 {
			return fmt.Sprintf(gitRevisionEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, reference, workingDirectory, trimmed)
	case messageStageFailure:
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitRevisionExecutionFailureConstant, reference, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch strings.TrimSpace(arguments[0]) {
	case githubAPISubcommandNameConstant:
		if len(arguments) < githubAPIMinimumArgumentCountConstant {
			return formatter.buildGenericMessage(command, result, failure, stage)
		}
		apiPath := arguments[githubAPIPathArgumentIndexConstant]
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(githubAPIStartTemplateConstant, apiPath)
		case messageStageSuccess:
			return fmt.Sprintf(githubAPISuccessTemplateConstant, apiPath)
		case messageStageFailure:
			return fmt.Sprintf(githubAPIFailureTemplateConstant, apiPath, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(githubAPIExecutionFailureConstant, apiPath, formatter.describeFailure(failure))
		}
	case githubAuthSubcommandNameConstant:
		switch stage {
		case messageStageStart:
			return githubAuthStartMessageConstant
		case messageStageSuccess:
			return githubAuthSuccessMessageConstant
		case messageStageFailure:
			return fmt.Sprintf(githubAuthFailureTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(githubAuthExecutionFailureConstant, formatter.describeFailure(failure))
		}
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)

	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, emptyStringConstant)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory))
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmed := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmed) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) resolveRevisionReference(arguments []string) string {
	for argumentIndex := len(arguments) - 1; argumentIndex > 0; argumentIndex-- {
		candidate := strings.TrimSpace(arguments[argumentIndex])
		if len(candidate) == 0 || strings.HasPrefix(candidate, "-") {
			continue
		}
		return candidate
	}
	return revisionReferenceFallbackArgumentConstant
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return fallbackUnknownValueLabelConstant
	}
	trimmed := strings.TrimSpace(arguments[index])
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, target string) bool {
	for _, argument := range arguments {
		if argument == target {
			return true
		}
	}
	return false
}
