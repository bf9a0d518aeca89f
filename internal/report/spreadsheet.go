package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	defaultWorksheetNameConstant   = "Sheet1"
	spreadsheetExtensionConstant   = ".xlsx"
	worksheetNameLengthLimit       = 31
	minimumColumnWidthConstant     = 10.0
	maximumColumnWidthConstant     = 60.0
	columnWidthMarginConstant      = 2.0
	frozenTopLeftCellConstant      = "A2"
	frozenActivePaneConstant       = "bottomLeft"
	frozenRowCountConstant         = 1
	headerRowNumberConstant        = 1
	firstColumnNumberConstant      = 1
	firstDataRowNumberConstant     = 2
	autoFilterRangeTemplate        = "%s:%s"
	invalidWorksheetCharacters     = `[]:*?/\`
	worksheetCharacterReplacement  = "_"
	emptyWorksheetFallbackConstant = "Report"
)

// SpreadsheetRenderer regenerates the spreadsheet artifact next to a report file.
type SpreadsheetRenderer struct{}

// RenderSpreadsheet writes a spreadsheet with the report's header and rows and
// returns the artifact path. The single worksheet carries a frozen header row,
// an auto-filter over the used range, and content-fitted column widths.
func (SpreadsheetRenderer) RenderSpreadsheet(reportFilePath string, headerRow []string, dataRows [][]string) (string, error) {
	workbook := excelize.NewFile()
	defer workbook.Close()

	worksheetName := worksheetNameForReport(reportFilePath)
	if renameError := workbook.SetSheetName(defaultWorksheetNameConstant, worksheetName); renameError != nil {
		return "", renameError
	}

	if headerError := writeWorksheetRow(workbook, worksheetName, headerRowNumberConstant, headerRow); headerError != nil {
		return "", headerError
	}
	for dataRowIndex, dataRow := range dataRows {
		if rowError := writeWorksheetRow(workbook, worksheetName, firstDataRowNumberConstant+dataRowIndex, dataRow); rowError != nil {
			return "", rowError
		}
	}

	if freezeError := workbook.SetPanes(worksheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      frozenRowCountConstant,
		TopLeftCell: frozenTopLeftCellConstant,
		ActivePane:  frozenActivePaneConstant,
	}); freezeError != nil {
		return "", freezeError
	}

	lastCellName, lastCellError := excelize.CoordinatesToCellName(len(headerRow), frozenRowCountConstant+len(dataRows))
	if lastCellError != nil {
		return "", lastCellError
	}
	firstCellName, firstCellError := excelize.CoordinatesToCellName(firstColumnNumberConstant, headerRowNumberConstant)
	if firstCellError != nil {
		return "", firstCellError
	}
	filterRange := fmt.Sprintf(autoFilterRangeTemplate, firstCellName, lastCellName)
	if filterError := workbook.AutoFilter(worksheetName, filterRange, nil); filterError != nil {
		return "", filterError
	}

	for columnIndex := range headerRow {
		columnWidth := fittedColumnWidth(columnIndex, headerRow, dataRows)
		columnName, columnNameError := excelize.ColumnNumberToName(columnIndex + firstColumnNumberConstant)
		if columnNameError != nil {
			return "", columnNameError
		}
		if widthError := workbook.SetColWidth(worksheetName, columnName, columnName, columnWidth); widthError != nil {
			return "", widthError
		}
	}

	artifactPath := SpreadsheetPathForReport(reportFilePath)
	if saveError := workbook.SaveAs(artifactPath); saveError != nil {
		return "", saveError
	}
	return artifactPath, nil
}

// SpreadsheetPathForReport derives the artifact path from a report file path.
func SpreadsheetPathForReport(reportFilePath string) string {
	reportExtension := filepath.Ext(reportFilePath)
	return strings.TrimSuffix(reportFilePath, reportExtension) + spreadsheetExtensionConstant
}

func worksheetNameForReport(reportFilePath string) string {
	baseName := filepath.Base(reportFilePath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	for _, invalidCharacter := range invalidWorksheetCharacters {
		baseName = strings.ReplaceAll(baseName, string(invalidCharacter), worksheetCharacterReplacement)
	}
	if len(baseName) == 0 {
		baseName = emptyWorksheetFallbackConstant
	}
	if len(baseName) > worksheetNameLengthLimit {
		baseName = baseName[:worksheetNameLengthLimit]
	}
	return baseName
}

func writeWorksheetRow(workbook *excelize.File, worksheetName string, rowNumber int, rowValues []string) error {
	for columnIndex, cellValue := range rowValues {
		cellName, cellNameError := excelize.CoordinatesToCellName(columnIndex+firstColumnNumberConstant, rowNumber)
		if cellNameError != nil {
			return cellNameError
		}
		if valueError := workbook.SetCellValue(worksheetName, cellName, cellValue); valueError != nil {
			return valueError
		}
	}
	return nil
}

func fittedColumnWidth(columnIndex int, headerRow []string, dataRows [][]string) float64 {
	longestContent := utf8.RuneCountInString(headerRow[columnIndex])
	for _, dataRow := range dataRows {
		if columnIndex >= len(dataRow) {
			continue
		}
		contentLength := utf8.RuneCountInString(dataRow[columnIndex])
		if contentLength > longestContent {
			longestContent = contentLength
		}
	}

	columnWidth := float64(longestContent)
	if columnWidth < minimumColumnWidthConstant {
		columnWidth = minimumColumnWidthConstant
	}
	if columnWidth > maximumColumnWidthConstant {
		columnWidth = maximumColumnWidthConstant
	}
	return columnWidth + columnWidthMarginConstant
}
