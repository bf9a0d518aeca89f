package audit

import (
	"context"

	"github.com/temirov/mergereport/internal/githubcli"
	"github.com/temirov/mergereport/internal/report"
)

// MetadataClient exposes the GitHub API operations used by the report pipeline.
type MetadataClient interface {
	CheckAuthentication(executionContext context.Context) error
	ListClosedPullRequests(executionContext context.Context, organization string, repository string, baseBranch string) ([]githubcli.PullRequestDetails, error)
	ListPullRequestReviews(executionContext context.Context, organization string, repository string, pullRequestNumber int) ([]githubcli.PullRequestReview, error)
	GetCommit(executionContext context.Context, organization string, repository string, commitReference string) (githubcli.CommitDetails, error)
}

// RepositorySynchronizer keeps local clones current and answers ancestry questions.
type RepositorySynchronizer interface {
	EnsureRepository(executionContext context.Context, cloneRoot string, organization string, repository string) (string, error)
	ResolveRemoteHead(executionContext context.Context, repositoryPath string, branchName string) (string, error)
	IsAncestor(executionContext context.Context, repositoryPath string, commitSHA string, baseBranch string) (bool, error)
}

// ReportFileAccessor exposes the per-repository report operations used by the service.
type ReportFileAccessor interface {
	Path() string
	EnsureHeader() error
	ProcessedURLs() (map[string]struct{}, error)
	AppendRow(reportRow report.Row) error
	SortAndRewrite() error
	SortedRows() ([][]string, error)
}

// ReportFileFactory binds a report accessor to a file path.
type ReportFileFactory func(filePath string) (ReportFileAccessor, error)

// SpreadsheetRenderer regenerates the spreadsheet artifact from sorted report rows.
type SpreadsheetRenderer interface {
	RenderSpreadsheet(reportFilePath string, headerRow []string, dataRows [][]string) (string, error)
}

// ToolLocator resolves prerequisite executables on the local system.
type ToolLocator interface {
	LookPath(executableName string) (string, error)
}
