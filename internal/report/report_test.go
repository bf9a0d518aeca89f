package report_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mergereport/internal/report"
)

const (
	firstPullRequestURLConstant  = "https://github.com/example-org/example-repo/pull/1"
	secondPullRequestURLConstant = "https://github.com/example-org/example-repo/pull/2"
	thirdPullRequestURLConstant  = "https://github.com/example-org/example-repo/pull/3"
)

func newTestReportFile(testInstance *testing.T) *report.File {
	testInstance.Helper()
	reportFile, constructionError := report.NewFile(filepath.Join(testInstance.TempDir(), "merged_prs_example-repo_2024-01-01_2024-12-31.csv"))
	require.NoError(testInstance, constructionError)
	return reportFile
}

func TestBuildReportFileName(testInstance *testing.T) {
	fileName := report.BuildReportFileName("merged_prs_", "example-repo", "2024-01-01", "2024-12-31")
	require.Equal(testInstance, "merged_prs_example-repo_2024-01-01_2024-12-31.csv", fileName)
}

func TestAppendRowCreatesFileWithHeader(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	appendError := reportFile.AppendRow(report.Row{
		MergedDate:     "2024-06-15T12:00:00Z",
		CommitSubject:  "Fix login regression",
		PullRequestURL: firstPullRequestURLConstant,
		Author:         "octocat",
		Approvers:      []string{"alice", "bob"},
		Tickets:        []string{"PROJ-101"},
	})
	require.NoError(testInstance, appendError)

	fileContents, readError := os.ReadFile(reportFile.Path())
	require.NoError(testInstance, readError)
	fileLines := strings.Split(strings.TrimSpace(string(fileContents)), "\n")
	require.Len(testInstance, fileLines, 2)
	require.Equal(testInstance, "Merged Date,Commit Subject,PR URL,Author,Approvers,Ticket", fileLines[0])
	require.Contains(testInstance, fileLines[1], "alice; bob")
	require.Contains(testInstance, fileLines[1], "PROJ-101")
}

func TestEnsureHeaderCreatesHeaderOnlyFile(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	require.NoError(testInstance, reportFile.EnsureHeader())

	fileContents, readError := os.ReadFile(reportFile.Path())
	require.NoError(testInstance, readError)
	fileLines := strings.Split(strings.TrimSpace(string(fileContents)), "\n")
	require.Len(testInstance, fileLines, 1)
	require.Equal(testInstance, "Merged Date,Commit Subject,PR URL,Author,Approvers,Ticket", fileLines[0])

	processedURLs, processedError := reportFile.ProcessedURLs()
	require.NoError(testInstance, processedError)
	require.Empty(testInstance, processedURLs)
}

func TestEnsureHeaderLeavesExistingFileUntouched(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	appendError := reportFile.AppendRow(report.Row{
		MergedDate:     "2024-06-15T12:00:00Z",
		CommitSubject:  "Fix login regression",
		PullRequestURL: firstPullRequestURLConstant,
		Author:         "octocat",
	})
	require.NoError(testInstance, appendError)
	require.NoError(testInstance, reportFile.EnsureHeader())
	require.NoError(testInstance, reportFile.EnsureHeader())

	fileContents, readError := os.ReadFile(reportFile.Path())
	require.NoError(testInstance, readError)
	fileLines := strings.Split(strings.TrimSpace(string(fileContents)), "\n")
	require.Len(testInstance, fileLines, 2)
	require.Equal(testInstance, "Merged Date,Commit Subject,PR URL,Author,Approvers,Ticket", fileLines[0])
	require.Contains(testInstance, fileLines[1], firstPullRequestURLConstant)
}

func TestAppendRowEscapesDelimitersLosslessly(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	trickySubject := `Add "quoted" value, with comma`
	appendError := reportFile.AppendRow(report.Row{
		MergedDate:     "2024-06-15T12:00:00Z",
		CommitSubject:  trickySubject,
		PullRequestURL: firstPullRequestURLConstant,
		Author:         "octocat",
	})
	require.NoError(testInstance, appendError)

	sortedRows, loadError := reportFile.SortedRows()
	require.NoError(testInstance, loadError)
	require.Len(testInstance, sortedRows, 1)
	require.Equal(testInstance, trickySubject, sortedRows[0][1])
}

func TestProcessedURLsReturnsRecordedKeys(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	require.NoError(testInstance, reportFile.AppendRow(report.Row{MergedDate: "2024-02-01T00:00:00Z", PullRequestURL: firstPullRequestURLConstant}))
	require.NoError(testInstance, reportFile.AppendRow(report.Row{MergedDate: "2024-03-01T00:00:00Z", PullRequestURL: secondPullRequestURLConstant}))

	processedURLs, loadError := reportFile.ProcessedURLs()
	require.NoError(testInstance, loadError)
	require.Len(testInstance, processedURLs, 2)
	require.Contains(testInstance, processedURLs, firstPullRequestURLConstant)
	require.Contains(testInstance, processedURLs, secondPullRequestURLConstant)
}

func TestProcessedURLsToleratesMissingFile(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	processedURLs, loadError := reportFile.ProcessedURLs()
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, processedURLs)
}

func TestProcessedURLsRejectsMalformedRows(testInstance *testing.T) {
	reportFilePath := filepath.Join(testInstance.TempDir(), "report.csv")
	malformedContents := "Merged Date,Commit Subject,PR URL,Author,Approvers,Ticket\nonly,three,columns\n"
	require.NoError(testInstance, os.WriteFile(reportFilePath, []byte(malformedContents), 0o644))

	reportFile, constructionError := report.NewFile(reportFilePath)
	require.NoError(testInstance, constructionError)

	_, loadError := reportFile.ProcessedURLs()
	var malformedError report.MalformedRowError
	require.ErrorAs(testInstance, loadError, &malformedError)
	require.Equal(testInstance, 2, malformedError.RowNumber)
}

func TestSortAndRewriteOrdersByMergedDate(testInstance *testing.T) {
	reportFile := newTestReportFile(testInstance)

	require.NoError(testInstance, reportFile.AppendRow(report.Row{MergedDate: "2024-09-01T08:00:00Z", PullRequestURL: thirdPullRequestURLConstant}))
	require.NoError(testInstance, reportFile.AppendRow(report.Row{MergedDate: "2024-01-15T08:00:00Z", PullRequestURL: firstPullRequestURLConstant}))
	require.NoError(testInstance, reportFile.AppendRow(report.Row{MergedDate: "2024-04-20T08:00:00Z", PullRequestURL: secondPullRequestURLConstant}))

	require.NoError(testInstance, reportFile.SortAndRewrite())

	sortedRows, loadError := reportFile.SortedRows()
	require.NoError(testInstance, loadError)
	require.Len(testInstance, sortedRows, 3)
	for rowIndex := 1; rowIndex < len(sortedRows); rowIndex++ {
		require.LessOrEqual(testInstance, sortedRows[rowIndex-1][0], sortedRows[rowIndex][0])
	}
	require.Equal(testInstance, firstPullRequestURLConstant, sortedRows[0][2])
}

func TestJoinMultiValueField(testInstance *testing.T) {
	require.Equal(testInstance, "", report.JoinMultiValueField(nil))
	require.Equal(testInstance, "alice", report.JoinMultiValueField([]string{"alice"}))
	require.Equal(testInstance, "alice; bob", report.JoinMultiValueField([]string{"alice", "bob"}))
}
