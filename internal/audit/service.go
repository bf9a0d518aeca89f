package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/temirov/mergereport/internal/githubcli"
	"github.com/temirov/mergereport/internal/gitrepo"
	"github.com/temirov/mergereport/internal/report"
)

const (
	noRepositoriesMessageConstant          = "no repositories provided"
	organizationMissingMessageConstant     = "organization not configured"
	authenticationFailedTemplateConstant   = "authentication check failed: %w"
	ticketPatternInvalidTemplateConstant   = "invalid ticket pattern %q: %w"
	strictTicketsMessageTemplateConstant   = "repository %s has %d pull requests without ticket references"
	strictSubjectsMessageTemplateConstant  = "repository %s has %d pull requests without merge commit subjects"
	strictApproversMessageTemplateConstant = "repository %s has %d pull requests without approvers"
	failedRepositoriesMessageTemplate      = "%d of %d repositories failed"
	repositoryFailedOutputTemplate         = "%s: processing failed: %v\n"
	repositorySummaryOutputTemplate        = "%s: %d rows written to %s (skipped %d, missing tickets %d, fallback subjects %d, missing approvers %d, non-ancestor merges %d)\n"
	spreadsheetSkippedOutputTemplate       = "%s: spreadsheet rendering skipped, CSV remains authoritative\n"
	spreadsheetFailedOutputTemplate        = "%s: spreadsheet rendering failed: %v\n"

	repositoryLogFieldConstant  = "repository"
	pullRequestLogFieldConstant = "pull_request_url"
	commitLogFieldConstant      = "merge_commit"
	reportPathLogFieldConstant  = "report_path"

	missingTicketLogMessageConstant     = "pull request has no ticket reference"
	missingApproversLogMessageConstant  = "pull request has no approving reviews"
	subjectFromTitleLogMessageConstant  = "merge commit subject unavailable, using pull request title"
	nonAncestorMergeLogMessageConstant  = "merge commit is not an ancestor of the base branch"
	ancestryCheckFailedLogMessage       = "ancestry check failed"
	baseBranchHeadUnavailableLogMessage = "base branch tip could not be resolved"
	skippingProcessedLogMessageConstant = "pull request already recorded, skipping"
	skippingUnmergedLogMessageConstant  = "pull request closed without merging, skipping"
	outsideWindowLogMessageConstant     = "pull request merged outside the report window, skipping"
	repositorySummaryLogMessageConstant = "repository report complete"
	repositoryFailedLogMessageConstant  = "repository processing failed"
	spreadsheetRenderedLogMessage       = "spreadsheet artifact regenerated"
	spreadsheetUnavailableLogMessage    = "spreadsheet renderer unavailable"
	spreadsheetRenderFailedLogMessage   = "spreadsheet rendering failed"
	rowsWrittenLogFieldConstant         = "rows_written"
	rowsSkippedLogFieldConstant         = "rows_skipped"
	baseBranchLogFieldConstant          = "base_branch"
	baseBranchHeadLogFieldConstant      = "base_branch_head"
	missingTicketsLogFieldConstant      = "missing_tickets"
	fallbackSubjectsLogFieldConstant    = "fallback_subjects"
	missingApproversLogFieldConstant    = "missing_approvers"
	nonAncestorMergesLogFieldConstant   = "non_ancestor_merges"
	spreadsheetPathLogFieldConstant     = "spreadsheet_path"
	windowStartLogFieldConstant         = "window_start"
	windowEndLogFieldConstant           = "window_end"
	mergedTimestampLogFieldConstant     = "merged_at"
)

// Service runs the merged pull request report pipeline across repositories.
type Service struct {
	githubClient        MetadataClient
	repositoryManager   RepositorySynchronizer
	reportFileFactory   ReportFileFactory
	spreadsheetRenderer SpreadsheetRenderer
	logger              *zap.Logger
	outputWriter        io.Writer
	errorWriter         io.Writer
}

// NewService constructs a Service using the provided dependencies.
func NewService(githubClient MetadataClient, repositoryManager RepositorySynchronizer, reportFileFactory ReportFileFactory, spreadsheetRenderer SpreadsheetRenderer, logger *zap.Logger, outputWriter io.Writer, errorWriter io.Writer) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reportFileFactory == nil {
		reportFileFactory = func(filePath string) (ReportFileAccessor, error) {
			return report.NewFile(filePath)
		}
	}
	return &Service{
		githubClient:        githubClient,
		repositoryManager:   repositoryManager,
		reportFileFactory:   reportFileFactory,
		spreadsheetRenderer: spreadsheetRenderer,
		logger:              logger,
		outputWriter:        outputWriter,
		errorWriter:         errorWriter,
	}
}

// Run validates inputs once, then processes each repository sequentially.
// A repository whose processing fails does not prevent the remaining
// repositories from being attempted; strict-mode violations abort the run.
func (service *Service) Run(executionContext context.Context, options CommandOptions) error {
	if len(options.Repositories) == 0 {
		return ExitCodeError{Code: ExitCodeNoRepositories, Cause: errors.New(noRepositoriesMessageConstant)}
	}
	if len(options.Organization) == 0 {
		return ExitCodeError{Code: ExitCodeGeneralFailure, Cause: errors.New(organizationMissingMessageConstant)}
	}
	if windowError := ValidateDateWindow(options.WindowStart, options.WindowEnd); windowError != nil {
		return ExitCodeError{Code: ExitCodeGeneralFailure, Cause: windowError}
	}

	ticketPattern, patternError := regexp.Compile(options.TicketPattern)
	if patternError != nil {
		return ExitCodeError{Code: ExitCodeGeneralFailure, Cause: fmt.Errorf(ticketPatternInvalidTemplateConstant, options.TicketPattern, patternError)}
	}

	if authenticationError := service.githubClient.CheckAuthentication(executionContext); authenticationError != nil {
		return ExitCodeError{Code: ExitCodeGeneralFailure, Cause: fmt.Errorf(authenticationFailedTemplateConstant, authenticationError)}
	}

	failedRepositories := 0
	for _, repositoryReference := range options.Repositories {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		repositoryCounters, processingError := service.processRepository(executionContext, options, ticketPattern, repositoryReference)
		if processingError != nil {
			failedRepositories++
			service.logger.Error(repositoryFailedLogMessageConstant,
				zap.String(repositoryLogFieldConstant, repositoryReference),
				zap.Error(processingError),
			)
			fmt.Fprintf(service.errorWriter, repositoryFailedOutputTemplate, repositoryReference, processingError)
			continue
		}

		if strictError := evaluateStrictCounters(options, repositoryReference, repositoryCounters); strictError != nil {
			return strictError
		}
	}

	if failedRepositories > 0 {
		return ExitCodeError{
			Code:  ExitCodeGeneralFailure,
			Cause: fmt.Errorf(failedRepositoriesMessageTemplate, failedRepositories, len(options.Repositories)),
		}
	}
	return nil
}

// evaluateStrictCounters runs after a repository's report is durably written.
// The three strict checks are independent and evaluated in priority order.
func evaluateStrictCounters(options CommandOptions, repositoryReference string, counters QualityCounters) error {
	if options.StrictTickets && counters.MissingTickets > 0 {
		return ExitCodeError{
			Code:  ExitCodeStrictTickets,
			Cause: fmt.Errorf(strictTicketsMessageTemplateConstant, repositoryReference, counters.MissingTickets),
		}
	}
	if options.StrictSubjects && counters.MissingSubjects > 0 {
		return ExitCodeError{
			Code:  ExitCodeStrictSubjects,
			Cause: fmt.Errorf(strictSubjectsMessageTemplateConstant, repositoryReference, counters.MissingSubjects),
		}
	}
	if options.StrictApprovers && counters.MissingApprovers > 0 {
		return ExitCodeError{
			Code:  ExitCodeStrictApprovers,
			Cause: fmt.Errorf(strictApproversMessageTemplateConstant, repositoryReference, counters.MissingApprovers),
		}
	}
	return nil
}

func (service *Service) processRepository(executionContext context.Context, options CommandOptions, ticketPattern *regexp.Regexp, repositoryReference string) (QualityCounters, error) {
	var counters QualityCounters

	organizationOverride, repositoryName, referenceError := gitrepo.SplitRepositoryReference(repositoryReference)
	if referenceError != nil {
		return counters, referenceError
	}
	organization := options.Organization
	if len(organizationOverride) > 0 {
		organization = organizationOverride
	}

	clonePath, syncError := service.repositoryManager.EnsureRepository(executionContext, options.CloneRoot, organization, repositoryName)
	if syncError != nil {
		return counters, syncError
	}

	baseBranchHead, headError := service.repositoryManager.ResolveRemoteHead(executionContext, clonePath, options.BaseBranch)
	if headError != nil {
		service.logger.Warn(baseBranchHeadUnavailableLogMessage,
			zap.String(repositoryLogFieldConstant, repositoryName),
			zap.String(baseBranchLogFieldConstant, options.BaseBranch),
			zap.Error(headError),
		)
	}

	reportFilePath := filepath.Join(options.ReportDirectory, report.BuildReportFileName(options.ReportPrefix, repositoryName, options.WindowStart, options.WindowEnd))
	reportFile, reportError := service.reportFileFactory(reportFilePath)
	if reportError != nil {
		return counters, reportError
	}
	if headerError := reportFile.EnsureHeader(); headerError != nil {
		return counters, headerError
	}

	processedURLs, resumeError := reportFile.ProcessedURLs()
	if resumeError != nil {
		return counters, resumeError
	}

	closedPullRequests, listingError := service.githubClient.ListClosedPullRequests(executionContext, organization, repositoryName, options.BaseBranch)
	if listingError != nil {
		return counters, listingError
	}

	rowsWritten := 0
	rowsSkipped := 0
	for _, pullRequest := range closedPullRequests {
		if contextError := executionContext.Err(); contextError != nil {
			return counters, contextError
		}

		if len(pullRequest.MergedAt) == 0 {
			service.logDebug(options, skippingUnmergedLogMessageConstant, zap.String(pullRequestLogFieldConstant, pullRequest.URL))
			continue
		}
		if !MergedWithinWindow(pullRequest.MergedAt, options.WindowStart, options.WindowEnd) {
			service.logDebug(options, outsideWindowLogMessageConstant,
				zap.String(pullRequestLogFieldConstant, pullRequest.URL),
				zap.String(mergedTimestampLogFieldConstant, pullRequest.MergedAt),
				zap.String(windowStartLogFieldConstant, options.WindowStart),
				zap.String(windowEndLogFieldConstant, options.WindowEnd),
			)
			continue
		}
		if _, alreadyProcessed := processedURLs[pullRequest.URL]; alreadyProcessed {
			rowsSkipped++
			service.logDebug(options, skippingProcessedLogMessageConstant, zap.String(pullRequestLogFieldConstant, pullRequest.URL))
			continue
		}

		enrichedRecord, enrichmentError := service.enrichPullRequest(executionContext, options, ticketPattern, organization, repositoryName, clonePath, pullRequest)
		if enrichmentError != nil {
			return counters, enrichmentError
		}
		counters.RecordQuality(enrichedRecord)

		if appendError := reportFile.AppendRow(report.Row{
			MergedDate:     enrichedRecord.MergedAt,
			CommitSubject:  enrichedRecord.Subject,
			PullRequestURL: enrichedRecord.URL,
			Author:         enrichedRecord.Author,
			Approvers:      enrichedRecord.Approvers,
			Tickets:        enrichedRecord.Tickets,
		}); appendError != nil {
			return counters, appendError
		}
		rowsWritten++
	}

	if sortError := reportFile.SortAndRewrite(); sortError != nil {
		return counters, sortError
	}

	service.regenerateSpreadsheet(repositoryName, reportFile)

	service.logger.Info(repositorySummaryLogMessageConstant,
		zap.String(repositoryLogFieldConstant, repositoryName),
		zap.String(reportPathLogFieldConstant, reportFile.Path()),
		zap.String(baseBranchHeadLogFieldConstant, baseBranchHead),
		zap.Int(rowsWrittenLogFieldConstant, rowsWritten),
		zap.Int(rowsSkippedLogFieldConstant, rowsSkipped),
		zap.Int(missingTicketsLogFieldConstant, counters.MissingTickets),
		zap.Int(fallbackSubjectsLogFieldConstant, counters.MissingSubjects),
		zap.Int(missingApproversLogFieldConstant, counters.MissingApprovers),
		zap.Int(nonAncestorMergesLogFieldConstant, counters.NonAncestorMerges),
	)
	fmt.Fprintf(service.outputWriter, repositorySummaryOutputTemplate,
		repositoryName, rowsWritten, reportFile.Path(), rowsSkipped,
		counters.MissingTickets, counters.MissingSubjects, counters.MissingApprovers, counters.NonAncestorMerges,
	)

	return counters, nil
}

func (service *Service) enrichPullRequest(executionContext context.Context, options CommandOptions, ticketPattern *regexp.Regexp, organization string, repositoryName string, clonePath string, pullRequest githubcli.PullRequestDetails) (PullRequestRecord, error) {
	record := PullRequestRecord{
		Number:         pullRequest.Number,
		URL:            pullRequest.URL,
		MergedAt:       pullRequest.MergedAt,
		MergeCommitSHA: pullRequest.MergeCommitSHA,
		Author:         pullRequest.AuthorLogin,
	}

	record.Tickets = ExtractTicketReferences(ticketPattern, pullRequest.Title, pullRequest.Body, options.TicketURLPrefix)
	if len(record.Tickets) == 0 {
		service.logger.Warn(missingTicketLogMessageConstant, zap.String(pullRequestLogFieldConstant, pullRequest.URL))
	}

	reviews, reviewsError := service.githubClient.ListPullRequestReviews(executionContext, organization, repositoryName, pullRequest.Number)
	if reviewsError != nil {
		return PullRequestRecord{}, reviewsError
	}
	record.Approvers = DistinctApprovedReviewers(reviews)
	if len(record.Approvers) == 0 {
		service.logger.Warn(missingApproversLogMessageConstant, zap.String(pullRequestLogFieldConstant, pullRequest.URL))
	}

	record.Subject, record.SubjectFromTitle = service.resolveCommitSubject(executionContext, organization, repositoryName, pullRequest)
	if record.SubjectFromTitle {
		service.logger.Warn(subjectFromTitleLogMessageConstant,
			zap.String(pullRequestLogFieldConstant, pullRequest.URL),
			zap.String(commitLogFieldConstant, pullRequest.MergeCommitSHA),
		)
	}

	if len(pullRequest.MergeCommitSHA) > 0 {
		isAncestor, ancestryError := service.repositoryManager.IsAncestor(executionContext, clonePath, pullRequest.MergeCommitSHA, options.BaseBranch)
		if ancestryError != nil {
			record.NonAncestorMerge = true
			service.logger.Warn(ancestryCheckFailedLogMessage,
				zap.String(pullRequestLogFieldConstant, pullRequest.URL),
				zap.String(commitLogFieldConstant, pullRequest.MergeCommitSHA),
				zap.Error(ancestryError),
			)
		} else if !isAncestor {
			record.NonAncestorMerge = true
			service.logger.Warn(nonAncestorMergeLogMessageConstant,
				zap.String(pullRequestLogFieldConstant, pullRequest.URL),
				zap.String(commitLogFieldConstant, pullRequest.MergeCommitSHA),
			)
		}
	}

	return record, nil
}

// resolveCommitSubject prefers the merge commit's first message line and falls
// back to the pull request title when the commit is missing or unreadable.
func (service *Service) resolveCommitSubject(executionContext context.Context, organization string, repositoryName string, pullRequest githubcli.PullRequestDetails) (string, bool) {
	if len(pullRequest.MergeCommitSHA) == 0 {
		return pullRequest.Title, true
	}

	commitDetails, commitError := service.githubClient.GetCommit(executionContext, organization, repositoryName, pullRequest.MergeCommitSHA)
	if commitError != nil {
		service.logger.Warn(subjectFromTitleLogMessageConstant,
			zap.String(pullRequestLogFieldConstant, pullRequest.URL),
			zap.String(commitLogFieldConstant, pullRequest.MergeCommitSHA),
			zap.Error(commitError),
		)
		return pullRequest.Title, true
	}

	commitSubject := FirstMessageLine(commitDetails.Message)
	if len(commitSubject) == 0 {
		return pullRequest.Title, true
	}
	return commitSubject, false
}

func (service *Service) regenerateSpreadsheet(repositoryName string, reportFile ReportFileAccessor) {
	if service.spreadsheetRenderer == nil {
		service.logger.Info(spreadsheetUnavailableLogMessage, zap.String(repositoryLogFieldConstant, repositoryName))
		fmt.Fprintf(service.errorWriter, spreadsheetSkippedOutputTemplate, repositoryName)
		return
	}

	sortedRows, loadError := reportFile.SortedRows()
	if loadError != nil {
		service.logger.Warn(spreadsheetRenderFailedLogMessage, zap.String(repositoryLogFieldConstant, repositoryName), zap.Error(loadError))
		fmt.Fprintf(service.errorWriter, spreadsheetFailedOutputTemplate, repositoryName, loadError)
		return
	}

	artifactPath, renderError := service.spreadsheetRenderer.RenderSpreadsheet(reportFile.Path(), report.ReportHeader, sortedRows)
	if renderError != nil {
		service.logger.Warn(spreadsheetRenderFailedLogMessage, zap.String(repositoryLogFieldConstant, repositoryName), zap.Error(renderError))
		fmt.Fprintf(service.errorWriter, spreadsheetFailedOutputTemplate, repositoryName, renderError)
		return
	}

	service.logger.Info(spreadsheetRenderedLogMessage,
		zap.String(repositoryLogFieldConstant, repositoryName),
		zap.String(spreadsheetPathLogFieldConstant, artifactPath),
	)
}

func (service *Service) logDebug(options CommandOptions, message string, fields ...zap.Field) {
	if !options.DebugOutput {
		return
	}
	service.logger.Debug(message, fields...)
}
