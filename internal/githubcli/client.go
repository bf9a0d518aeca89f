package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/temirov/mergereport/internal/execshell"
	"github.com/temirov/mergereport/internal/retry"
)

const (
	apiSubcommandConstant                   = "api"
	authSubcommandConstant                  = "auth"
	statusSubcommandConstant                = "status"
	acceptHeaderFlagConstant                = "-H"
	acceptHeaderValueConstant               = "Accept: application/vnd.github+json"
	organizationFieldNameConstant           = "organization"
	repositoryFieldNameConstant             = "repository"
	baseBranchFieldNameConstant             = "base_branch"
	commitReferenceFieldNameConstant        = "commit_reference"
	pullRequestNumberFieldNameConstant      = "pull_request_number"
	requiredValueMessageConstant            = "value required"
	positiveValueMessageConstant            = "positive value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	closedPullRequestsEndpointTemplate      = "repos/%s/%s/pulls?state=closed&base=%s"
	pullRequestReviewsEndpointTemplate      = "repos/%s/%s/pulls/%d/reviews"
	commitEndpointTemplateConstant          = "repos/%s/%s/commits/%s"
	pageQueryParameterTemplateConstant      = "%s%sper_page=%d&page=%d"
	querySeparatorAmpersandConstant         = "&"
	querySeparatorQuestionMarkConstant      = "?"
	queryMarkerConstant                     = "?"
	resultsPerPageConstant                  = 100
	firstPageNumberConstant                 = 1
	reviewStateApprovedConstant             = "APPROVED"
	listPullRequestsOperationNameConstant   = OperationName("ListClosedPullRequests")
	listReviewsOperationNameConstant        = OperationName("ListPullRequestReviews")
	getCommitOperationNameConstant          = OperationName("GetCommit")
	checkAuthenticationOperationConstant    = OperationName("CheckAuthentication")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestDetails carries the merged-PR metadata extracted from the listing endpoint.
type PullRequestDetails struct {
	Number         int
	URL            string
	MergedAt       string
	MergeCommitSHA string
	AuthorLogin    string
	Title          string
	Body           string
}

// PullRequestReview captures a single review's state and author.
type PullRequestReview struct {
	State       string
	AuthorLogin string
}

// CommitDetails carries the commit message retrieved from the commit endpoint.
type CommitDetails struct {
	SHA     string
	Message string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell with retry on transient failures.
type Client struct {
	executor    GitHubCommandExecutor
	retryPolicy retry.Policy
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client applying the provided retry policy to every call.
func NewClient(executor GitHubCommandExecutor, retryPolicy retry.Policy) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor, retryPolicy: retryPolicy}, nil
}

// CheckAuthentication verifies the GitHub CLI has usable credentials.
func (client *Client) CheckAuthentication(executionContext context.Context) error {
	commandDetails := execshell.CommandDetails{
		Arguments: []string{authSubcommandConstant, statusSubcommandConstant},
	}

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return OperationError{Operation: checkAuthenticationOperationConstant, Cause: executionError}
	}
	return nil
}

// ListClosedPullRequests enumerates every closed pull request targeting the base branch, across all pages.
func (client *Client) ListClosedPullRequests(executionContext context.Context, organization string, repository string, baseBranch string) ([]PullRequestDetails, error) {
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return nil, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedRepository := strings.TrimSpace(repository)
	if len(trimmedRepository) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedBaseBranch := strings.TrimSpace(baseBranch)
	if len(trimmedBaseBranch) == 0 {
		return nil, InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpointPath := fmt.Sprintf(closedPullRequestsEndpointTemplate, trimmedOrganization, trimmedRepository, url.QueryEscape(trimmedBaseBranch))

	var pullRequests []PullRequestDetails
	pageDecoder := func(pagePayload []byte) (int, error) {
		var pageEntries []struct {
			Number         int    `json:"number"`
			HTMLURL        string `json:"html_url"`
			MergedAt       string `json:"merged_at"`
			MergeCommitSHA string `json:"merge_commit_sha"`
			Title          string `json:"title"`
			Body           string `json:"body"`
			User           struct {
				Login string `json:"login"`
			} `json:"user"`
		}
		if decodingError := json.Unmarshal(pagePayload, &pageEntries); decodingError != nil {
			return 0, ResponseDecodingError{Operation: listPullRequestsOperationNameConstant, Cause: decodingError}
		}
		for _, pageEntry := range pageEntries {
			pullRequests = append(pullRequests, PullRequestDetails{
				Number:         pageEntry.Number,
				URL:            pageEntry.HTMLURL,
				MergedAt:       pageEntry.MergedAt,
				MergeCommitSHA: pageEntry.MergeCommitSHA,
				AuthorLogin:    pageEntry.User.Login,
				Title:          pageEntry.Title,
				Body:           pageEntry.Body,
			})
		}
		return len(pageEntries), nil
	}

	if paginationError := client.fetchAllPages(executionContext, listPullRequestsOperationNameConstant, endpointPath, pageDecoder); paginationError != nil {
		return nil, paginationError
	}
	return pullRequests, nil
}

// ListPullRequestReviews returns every review recorded for the pull request, across all pages.
func (client *Client) ListPullRequestReviews(executionContext context.Context, organization string, repository string, pullRequestNumber int) ([]PullRequestReview, error) {
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return nil, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedRepository := strings.TrimSpace(repository)
	if len(trimmedRepository) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if pullRequestNumber <= 0 {
		return nil, InvalidInputError{FieldName: pullRequestNumberFieldNameConstant, Message: positiveValueMessageConstant}
	}

	endpointPath := fmt.Sprintf(pullRequestReviewsEndpointTemplate, trimmedOrganization, trimmedRepository, pullRequestNumber)

	var reviews []PullRequestReview
	pageDecoder := func(pagePayload []byte) (int, error) {
		var pageEntries []struct {
			State string `json:"state"`
			User  struct {
				Login string `json:"login"`
			} `json:"user"`
		}
		if decodingError := json.Unmarshal(pagePayload, &pageEntries); decodingError != nil {
			return 0, ResponseDecodingError{Operation: listReviewsOperationNameConstant, Cause: decodingError}
		}
		for _, pageEntry := range pageEntries {
			reviews = append(reviews, PullRequestReview{
				State:       pageEntry.State,
				AuthorLogin: pageEntry.User.Login,
			})
		}
		return len(pageEntries), nil
	}

	if paginationError := client.fetchAllPages(executionContext, listReviewsOperationNameConstant, endpointPath, pageDecoder); paginationError != nil {
		return nil, paginationError
	}
	return reviews, nil
}

// GetCommit retrieves the commit object for the provided reference.
func (client *Client) GetCommit(executionContext context.Context, organization string, repository string, commitReference string) (CommitDetails, error) {
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return CommitDetails{}, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedRepository := strings.TrimSpace(repository)
	if len(trimmedRepository) == 0 {
		return CommitDetails{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedReference := strings.TrimSpace(commitReference)
	if len(trimmedReference) == 0 {
		return CommitDetails{}, InvalidInputError{FieldName: commitReferenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpointPath := fmt.Sprintf(commitEndpointTemplateConstant, trimmedOrganization, trimmedRepository, trimmedReference)

	responsePayload, requestError := client.requestWithRetry(executionContext, getCommitOperationNameConstant, endpointPath)
	if requestError != nil {
		return CommitDetails{}, requestError
	}

	var response struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
		} `json:"commit"`
	}
	if decodingError := json.Unmarshal(responsePayload, &response); decodingError != nil {
		return CommitDetails{}, ResponseDecodingError{Operation: getCommitOperationNameConstant, Cause: decodingError}
	}

	return CommitDetails{SHA: response.SHA, Message: response.Commit.Message}, nil
}

// IsApprovedReviewState reports whether a review state marks an approval.
func IsApprovedReviewState(reviewState string) bool {
	return strings.EqualFold(strings.TrimSpace(reviewState), reviewStateApprovedConstant)
}

func (client *Client) fetchAllPages(executionContext context.Context, operation OperationName, endpointPath string, decodePage func(pagePayload []byte) (int, error)) error {
	for pageNumber := firstPageNumberConstant; ; pageNumber++ {
		pagePath := paginatedEndpointPath(endpointPath, pageNumber)
		pagePayload, requestError := client.requestWithRetry(executionContext, operation, pagePath)
		if requestError != nil {
			return requestError
		}

		entryCount, decodingError := decodePage(pagePayload)
		if decodingError != nil {
			return decodingError
		}
		if entryCount < resultsPerPageConstant {
			return nil
		}
	}
}

func (client *Client) requestWithRetry(executionContext context.Context, operation OperationName, endpointPath string) ([]byte, error) {
	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			apiSubcommandConstant,
			endpointPath,
			acceptHeaderFlagConstant,
			acceptHeaderValueConstant,
		},
	}

	var responsePayload []byte
	retryError := client.retryPolicy.Execute(executionContext, string(operation), func(attemptContext context.Context) error {
		executionResult, executionError := client.executor.ExecuteGitHubCLI(attemptContext, commandDetails)
		if executionError != nil {
			return executionError
		}
		responsePayload = []byte(executionResult.StandardOutput)
		return nil
	})
	if retryError != nil {
		return nil, OperationError{Operation: operation, Cause: retryError}
	}
	return responsePayload, nil
}

func paginatedEndpointPath(endpointPath string, pageNumber int) string {
	querySeparator := querySeparatorQuestionMarkConstant
	if strings.Contains(endpointPath, queryMarkerConstant) {
		querySeparator = querySeparatorAmpersandConstant
	}
	return fmt.Sprintf(pageQueryParameterTemplateConstant, endpointPath, querySeparator, resultsPerPageConstant, pageNumber)
}
