package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/mergereport/internal/execshell"
)

const (
	cloneSubcommandConstant             = "clone"
	fetchSubcommandConstant             = "fetch"
	fetchAllFlagConstant                = "--all"
	fetchPruneFlagConstant              = "--prune"
	mergeBaseSubcommandConstant         = "merge-base"
	isAncestorFlagConstant              = "--is-ancestor"
	revParseSubcommandConstant          = "rev-parse"
	verifyFlagConstant                  = "--verify"
	gitMetadataDirectoryNameConstant    = ".git"
	remoteBranchReferenceTemplate       = "refs/remotes/origin/%s"
	httpsRemoteURLTemplateConstant      = "https://github.com/%s/%s.git"
	cloneRootPermissionsConstant        = 0o755
	ancestryMismatchExitCodeConstant    = 1
	executorNotConfiguredMessage        = "git repository executor not configured"
	organizationRequiredMessageConstant = "organization name required"
	repositoryRequiredMessageConstant   = "repository name required"
	cloneRootRequiredMessageConstant    = "clone root required"
	commitRequiredMessageConstant       = "commit reference required"
	baseBranchRequiredMessageConstant   = "base branch required"
	repositoryPathSeparatorConstant     = "/"
	repositoryPathSegmentCountConstant  = 2
	invalidRepositoryPathTemplate       = "invalid repository reference %q"
)

// GitCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// DirectoryExistenceChecker reports whether a directory exists on disk.
type DirectoryExistenceChecker interface {
	DirectoryExists(directoryPath string) bool
}

type osDirectoryChecker struct{}

func (osDirectoryChecker) DirectoryExists(directoryPath string) bool {
	fileInformation, statError := os.Stat(directoryPath)
	return statError == nil && fileInformation.IsDir()
}

// ErrExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// RepositoryManager keeps local clones synchronized and answers ancestry questions.
type RepositoryManager struct {
	executor         GitCommandExecutor
	directoryChecker DirectoryExistenceChecker
}

// NewRepositoryManager constructs a manager using the filesystem for clone detection.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	return NewRepositoryManagerWithChecker(executor, osDirectoryChecker{})
}

// NewRepositoryManagerWithChecker constructs a manager with an injected directory checker.
func NewRepositoryManagerWithChecker(executor GitCommandExecutor, directoryChecker DirectoryExistenceChecker) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if directoryChecker == nil {
		directoryChecker = osDirectoryChecker{}
	}
	return &RepositoryManager{executor: executor, directoryChecker: directoryChecker}, nil
}

// BuildHTTPSRemoteURL formats the canonical HTTPS clone URL for a repository.
func BuildHTTPSRemoteURL(organization string, repository string) string {
	return fmt.Sprintf(httpsRemoteURLTemplateConstant, organization, repository)
}

// SplitRepositoryReference accepts either "repository" or "organization/repository"
// and returns the repository name with an optional organization override.
func SplitRepositoryReference(repositoryReference string) (string, string, error) {
	trimmedReference := strings.TrimSpace(repositoryReference)
	if len(trimmedReference) == 0 {
		return "", "", errors.New(repositoryRequiredMessageConstant)
	}
	if !strings.Contains(trimmedReference, repositoryPathSeparatorConstant) {
		return "", trimmedReference, nil
	}

	referenceSegments := strings.Split(trimmedReference, repositoryPathSeparatorConstant)
	if len(referenceSegments) != repositoryPathSegmentCountConstant {
		return "", "", fmt.Errorf(invalidRepositoryPathTemplate, repositoryReference)
	}
	organizationSegment := strings.TrimSpace(referenceSegments[0])
	repositorySegment := strings.TrimSpace(referenceSegments[1])
	if len(organizationSegment) == 0 || len(repositorySegment) == 0 {
		return "", "", fmt.Errorf(invalidRepositoryPathTemplate, repositoryReference)
	}
	return organizationSegment, repositorySegment, nil
}

// EnsureRepository clones the repository under the clone root when missing,
// otherwise refreshes its remote references, and returns the local path.
func (manager *RepositoryManager) EnsureRepository(executionContext context.Context, cloneRoot string, organization string, repository string) (string, error) {
	trimmedCloneRoot := strings.TrimSpace(cloneRoot)
	if len(trimmedCloneRoot) == 0 {
		return "", errors.New(cloneRootRequiredMessageConstant)
	}
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return "", errors.New(organizationRequiredMessageConstant)
	}
	trimmedRepository := strings.TrimSpace(repository)
	if len(trimmedRepository) == 0 {
		return "", errors.New(repositoryRequiredMessageConstant)
	}

	repositoryPath := filepath.Join(trimmedCloneRoot, trimmedRepository)
	metadataPath := filepath.Join(repositoryPath, gitMetadataDirectoryNameConstant)

	if manager.directoryChecker.DirectoryExists(metadataPath) {
		fetchDetails := execshell.CommandDetails{
			Arguments:        []string{fetchSubcommandConstant, fetchAllFlagConstant, fetchPruneFlagConstant},
			WorkingDirectory: repositoryPath,
		}
		if _, fetchError := manager.executor.ExecuteGit(executionContext, fetchDetails); fetchError != nil {
			return "", fetchError
		}
		return repositoryPath, nil
	}

	if directoryError := os.MkdirAll(trimmedCloneRoot, cloneRootPermissionsConstant); directoryError != nil {
		return "", directoryError
	}

	cloneDetails := execshell.CommandDetails{
		Arguments: []string{cloneSubcommandConstant, BuildHTTPSRemoteURL(trimmedOrganization, trimmedRepository), repositoryPath},
	}
	if _, cloneError := manager.executor.ExecuteGit(executionContext, cloneDetails); cloneError != nil {
		return "", cloneError
	}
	return repositoryPath, nil
}

// IsAncestor reports whether the commit is reachable from the remote base branch head.
// A merge-base exit code of one means the commit is not an ancestor; any other
// non-zero exit code is propagated as an error.
func (manager *RepositoryManager) IsAncestor(executionContext context.Context, repositoryPath string, commitSHA string, baseBranch string) (bool, error) {
	trimmedCommit := strings.TrimSpace(commitSHA)
	if len(trimmedCommit) == 0 {
		return false, errors.New(commitRequiredMessageConstant)
	}
	trimmedBaseBranch := strings.TrimSpace(baseBranch)
	if len(trimmedBaseBranch) == 0 {
		return false, errors.New(baseBranchRequiredMessageConstant)
	}

	ancestryDetails := execshell.CommandDetails{
		Arguments: []string{
			mergeBaseSubcommandConstant,
			isAncestorFlagConstant,
			trimmedCommit,
			fmt.Sprintf(remoteBranchReferenceTemplate, trimmedBaseBranch),
		},
		WorkingDirectory: repositoryPath,
	}

	_, ancestryError := manager.executor.ExecuteGit(executionContext, ancestryDetails)
	if ancestryError == nil {
		return true, nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(ancestryError, &failedError) && failedError.Result.ExitCode == ancestryMismatchExitCodeConstant {
		return false, nil
	}
	return false, ancestryError
}

// ResolveRemoteHead returns the commit hash currently at the remote base branch head.
func (manager *RepositoryManager) ResolveRemoteHead(executionContext context.Context, repositoryPath string, baseBranch string) (string, error) {
	trimmedBaseBranch := strings.TrimSpace(baseBranch)
	if len(trimmedBaseBranch) == 0 {
		return "", errors.New(baseBranchRequiredMessageConstant)
	}

	revParseDetails := execshell.CommandDetails{
		Arguments: []string{
			revParseSubcommandConstant,
			verifyFlagConstant,
			fmt.Sprintf(remoteBranchReferenceTemplate, trimmedBaseBranch),
		},
		WorkingDirectory: repositoryPath,
	}

	revParseResult, revParseError := manager.executor.ExecuteGit(executionContext, revParseDetails)
	if revParseError != nil {
		return "", revParseError
	}
	return strings.TrimSpace(revParseResult.StandardOutput), nil
}
