package audit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/temirov/mergereport/internal/githubcli"
)

const (
	calendarDateLayoutConstant       = "2006-01-02"
	calendarDateLengthConstant       = 10
	messageLineSeparatorConstant     = "\n"
	invalidDateMessageTemplate       = "invalid date %q, expected YYYY-MM-DD"
	invertedWindowMessageTemplate    = "window start %s is after window end %s"
	titleBodyConcatenationSeparator  = "\n"
	windowStartFieldLabelConstant    = "window start"
	windowEndFieldLabelConstant      = "window end"
	labeledDateMessageTemplateFormat = "%s: %s"
)

// ValidateDateWindow checks both window bounds parse as calendar dates in order.
func ValidateDateWindow(windowStart string, windowEnd string) error {
	if _, parseError := time.Parse(calendarDateLayoutConstant, windowStart); parseError != nil {
		return fmt.Errorf(labeledDateMessageTemplateFormat, windowStartFieldLabelConstant, fmt.Sprintf(invalidDateMessageTemplate, windowStart))
	}
	if _, parseError := time.Parse(calendarDateLayoutConstant, windowEnd); parseError != nil {
		return fmt.Errorf(labeledDateMessageTemplateFormat, windowEndFieldLabelConstant, fmt.Sprintf(invalidDateMessageTemplate, windowEnd))
	}
	if windowStart > windowEnd {
		return fmt.Errorf(invertedWindowMessageTemplate, windowStart, windowEnd)
	}
	return nil
}

// MergedWithinWindow reports whether a merge timestamp falls inside the
// inclusive calendar-day window. ISO-8601 timestamps compare by their first
// ten characters, so the check is a lexicographic day comparison.
func MergedWithinWindow(mergedAt string, windowStart string, windowEnd string) bool {
	if len(mergedAt) < calendarDateLengthConstant {
		return false
	}
	mergedDay := mergedAt[:calendarDateLengthConstant]
	return mergedDay >= windowStart && mergedDay <= windowEnd
}

// ExtractTicketReferences collects every pattern match across title and body,
// deduplicated in first-seen order, optionally prefixed with the ticket URL.
func ExtractTicketReferences(ticketPattern *regexp.Regexp, title string, body string, ticketURLPrefix string) []string {
	searchText := title + titleBodyConcatenationSeparator + body
	rawMatches := ticketPattern.FindAllString(searchText, -1)

	seenTickets := make(map[string]struct{}, len(rawMatches))
	var ticketReferences []string
	for _, rawMatch := range rawMatches {
		if _, alreadySeen := seenTickets[rawMatch]; alreadySeen {
			continue
		}
		seenTickets[rawMatch] = struct{}{}
		ticketReferences = append(ticketReferences, ticketURLPrefix+rawMatch)
	}
	return ticketReferences
}

// DistinctApprovedReviewers collects approving review authors in first-seen
// order, collapsing repeated approvals from the same account.
func DistinctApprovedReviewers(reviews []githubcli.PullRequestReview) []string {
	seenReviewers := make(map[string]struct{}, len(reviews))
	var approvers []string
	for _, review := range reviews {
		if !githubcli.IsApprovedReviewState(review.State) {
			continue
		}
		reviewerHandle := strings.TrimSpace(review.AuthorLogin)
		if len(reviewerHandle) == 0 {
			continue
		}
		if _, alreadySeen := seenReviewers[reviewerHandle]; alreadySeen {
			continue
		}
		seenReviewers[reviewerHandle] = struct{}{}
		approvers = append(approvers, reviewerHandle)
	}
	return approvers
}

// FirstMessageLine returns the trimmed first line of a commit message.
func FirstMessageLine(commitMessage string) string {
	firstLine, _, _ := strings.Cut(commitMessage, messageLineSeparatorConstant)
	return strings.TrimSpace(firstLine)
}
