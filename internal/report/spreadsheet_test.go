package report_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/temirov/mergereport/internal/report"
)

func TestSpreadsheetPathForReport(testInstance *testing.T) {
	require.Equal(testInstance, "/tmp/report.xlsx", report.SpreadsheetPathForReport("/tmp/report.csv"))
}

func TestRenderSpreadsheetWritesRowsAndLayout(testInstance *testing.T) {
	reportFilePath := filepath.Join(testInstance.TempDir(), "merged_prs_example-repo_2024-01-01_2024-12-31.csv")
	dataRows := [][]string{
		{"2024-01-15T08:00:00Z", "Fix login regression", "https://github.com/example-org/example-repo/pull/1", "octocat", "alice; bob", "PROJ-101"},
		{"2024-04-20T08:00:00Z", "Add audit trail", "https://github.com/example-org/example-repo/pull/2", "hubot", "", ""},
	}

	artifactPath, renderError := report.SpreadsheetRenderer{}.RenderSpreadsheet(reportFilePath, report.ReportHeader, dataRows)
	require.NoError(testInstance, renderError)
	require.Equal(testInstance, report.SpreadsheetPathForReport(reportFilePath), artifactPath)

	workbook, openError := excelize.OpenFile(artifactPath)
	require.NoError(testInstance, openError)
	defer workbook.Close()

	worksheetNames := workbook.GetSheetList()
	require.Len(testInstance, worksheetNames, 1)
	require.LessOrEqual(testInstance, len(worksheetNames[0]), 31)

	headerValue, headerError := workbook.GetCellValue(worksheetNames[0], "A1")
	require.NoError(testInstance, headerError)
	require.Equal(testInstance, "Merged Date", headerValue)

	subjectValue, subjectError := workbook.GetCellValue(worksheetNames[0], "B2")
	require.NoError(testInstance, subjectError)
	require.Equal(testInstance, "Fix login regression", subjectValue)

	approversValue, approversError := workbook.GetCellValue(worksheetNames[0], "E2")
	require.NoError(testInstance, approversError)
	require.Equal(testInstance, "alice; bob", approversValue)

	approversWidth, widthError := workbook.GetColWidth(worksheetNames[0], "E")
	require.NoError(testInstance, widthError)
	require.GreaterOrEqual(testInstance, approversWidth, 12.0)
	require.LessOrEqual(testInstance, approversWidth, 62.0)
}
