package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	mergedDateColumnHeaderConstant     = "Merged Date"
	commitSubjectColumnHeaderConstant  = "Commit Subject"
	pullRequestURLColumnHeaderConstant = "PR URL"
	authorColumnHeaderConstant         = "Author"
	approversColumnHeaderConstant      = "Approvers"
	ticketColumnHeaderConstant         = "Ticket"
	reportColumnCountConstant          = 6
	pullRequestURLColumnIndexConstant  = 2
	mergedDateColumnIndexConstant      = 0
	reportFileNameTemplateConstant     = "%s%s_%s_%s.csv"
	reportFilePermissionsConstant      = 0o644
	reportDirectoryPermissions         = 0o755
	multiValueJoinSeparatorConstant    = "; "
	malformedRowMessageTemplate        = "report file %s row %d has %d columns, expected %d"
	reportPathRequiredMessageConstant  = "report file path required"
)

// ReportHeader lists the six report columns in serialization order.
var ReportHeader = []string{
	mergedDateColumnHeaderConstant,
	commitSubjectColumnHeaderConstant,
	pullRequestURLColumnHeaderConstant,
	authorColumnHeaderConstant,
	approversColumnHeaderConstant,
	ticketColumnHeaderConstant,
}

// Row is one flattened merged pull request entry.
type Row struct {
	MergedDate     string
	CommitSubject  string
	PullRequestURL string
	Author         string
	Approvers      []string
	Tickets        []string
}

// MalformedRowError reports a data row whose column count does not match the header.
type MalformedRowError struct {
	FilePath    string
	RowNumber   int
	ColumnCount int
}

// Error describes the malformed row.
func (malformedError MalformedRowError) Error() string {
	return fmt.Sprintf(malformedRowMessageTemplate, malformedError.FilePath, malformedError.RowNumber, malformedError.ColumnCount, reportColumnCountConstant)
}

// JoinMultiValueField serializes a multi-value column with the standard separator.
func JoinMultiValueField(values []string) string {
	return strings.Join(values, multiValueJoinSeparatorConstant)
}

// BuildReportFileName formats the per-repository report file name.
func BuildReportFileName(filePrefix string, repositoryName string, windowStart string, windowEnd string) string {
	return fmt.Sprintf(reportFileNameTemplateConstant, filePrefix, repositoryName, windowStart, windowEnd)
}

// File manages a single repository's report on disk.
type File struct {
	filePath string
}

// NewFile binds a report manager to the provided path, creating parent directories as needed.
func NewFile(filePath string) (*File, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return nil, errors.New(reportPathRequiredMessageConstant)
	}
	if directoryError := os.MkdirAll(filepath.Dir(trimmedPath), reportDirectoryPermissions); directoryError != nil {
		return nil, directoryError
	}
	return &File{filePath: trimmedPath}, nil
}

// Path returns the report file location.
func (reportFile *File) Path() string {
	return reportFile.filePath
}

// EnsureHeader creates the report file holding only the header row when the
// file is absent. An existing file is left untouched.
func (reportFile *File) EnsureHeader() error {
	_, statError := os.Stat(reportFile.filePath)
	if statError == nil {
		return nil
	}
	if !errors.Is(statError, os.ErrNotExist) {
		return statError
	}

	fileHandle, createError := os.Create(reportFile.filePath)
	if createError != nil {
		return createError
	}
	defer fileHandle.Close()

	csvWriter := csv.NewWriter(fileHandle)
	if headerError := csvWriter.Write(ReportHeader); headerError != nil {
		return headerError
	}
	csvWriter.Flush()
	if flushError := csvWriter.Error(); flushError != nil {
		return flushError
	}
	return fileHandle.Sync()
}

// ProcessedURLs parses the existing report and returns the set of pull request
// URLs already recorded. A missing file yields an empty set.
func (reportFile *File) ProcessedURLs() (map[string]struct{}, error) {
	dataRows, loadError := reportFile.loadDataRows()
	if loadError != nil {
		return nil, loadError
	}

	processedURLs := make(map[string]struct{}, len(dataRows))
	for _, dataRow := range dataRows {
		processedURLs[dataRow[pullRequestURLColumnIndexConstant]] = struct{}{}
	}
	return processedURLs, nil
}

// AppendRow durably writes one row, creating the file with a header first when absent.
func (reportFile *File) AppendRow(reportRow Row) error {
	_, statError := os.Stat(reportFile.filePath)
	fileIsNew := errors.Is(statError, os.ErrNotExist)
	if statError != nil && !fileIsNew {
		return statError
	}

	fileHandle, openError := os.OpenFile(reportFile.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, reportFilePermissionsConstant)
	if openError != nil {
		return openError
	}
	defer fileHandle.Close()

	csvWriter := csv.NewWriter(fileHandle)
	if fileIsNew {
		if headerError := csvWriter.Write(ReportHeader); headerError != nil {
			return headerError
		}
	}
	if rowError := csvWriter.Write(serializeRow(reportRow)); rowError != nil {
		return rowError
	}
	csvWriter.Flush()
	if flushError := csvWriter.Error(); flushError != nil {
		return flushError
	}
	return fileHandle.Sync()
}

// SortAndRewrite orders the data region by merge timestamp ascending and rewrites the file.
func (reportFile *File) SortAndRewrite() error {
	dataRows, loadError := reportFile.loadDataRows()
	if loadError != nil {
		return loadError
	}
	if len(dataRows) == 0 {
		return nil
	}

	sort.SliceStable(dataRows, func(firstIndex int, secondIndex int) bool {
		return dataRows[firstIndex][mergedDateColumnIndexConstant] < dataRows[secondIndex][mergedDateColumnIndexConstant]
	})

	fileHandle, createError := os.Create(reportFile.filePath)
	if createError != nil {
		return createError
	}
	defer fileHandle.Close()

	csvWriter := csv.NewWriter(fileHandle)
	if headerError := csvWriter.Write(ReportHeader); headerError != nil {
		return headerError
	}
	if rowsError := csvWriter.WriteAll(dataRows); rowsError != nil {
		return rowsError
	}
	return fileHandle.Sync()
}

// SortedRows returns the full data region in merge timestamp order.
func (reportFile *File) SortedRows() ([][]string, error) {
	dataRows, loadError := reportFile.loadDataRows()
	if loadError != nil {
		return nil, loadError
	}
	sort.SliceStable(dataRows, func(firstIndex int, secondIndex int) bool {
		return dataRows[firstIndex][mergedDateColumnIndexConstant] < dataRows[secondIndex][mergedDateColumnIndexConstant]
	})
	return dataRows, nil
}

func (reportFile *File) loadDataRows() ([][]string, error) {
	fileHandle, openError := os.Open(reportFile.filePath)
	if errors.Is(openError, os.ErrNotExist) {
		return nil, nil
	}
	if openError != nil {
		return nil, openError
	}
	defer fileHandle.Close()

	csvReader := csv.NewReader(fileHandle)
	csvReader.FieldsPerRecord = -1
	allRecords, readError := csvReader.ReadAll()
	if readError != nil {
		return nil, readError
	}
	if len(allRecords) == 0 {
		return nil, nil
	}

	dataRows := make([][]string, 0, len(allRecords)-1)
	for recordIndex, record := range allRecords[1:] {
		if len(record) != reportColumnCountConstant {
			return nil, MalformedRowError{FilePath: reportFile.filePath, RowNumber: recordIndex + 2, ColumnCount: len(record)}
		}
		dataRows = append(dataRows, record)
	}
	return dataRows, nil
}

func serializeRow(reportRow Row) []string {
	return []string{
		reportRow.MergedDate,
		reportRow.CommitSubject,
		reportRow.PullRequestURL,
		reportRow.Author,
		JoinMultiValueField(reportRow.Approvers),
		JoinMultiValueField(reportRow.Tickets),
	}
}
