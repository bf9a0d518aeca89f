package audit

import "fmt"

// Exit codes reported to the invoking shell.
const (
	ExitCodeGeneralFailure  = 1
	ExitCodeNoRepositories  = 2
	ExitCodeStrictTickets   = 10
	ExitCodeStrictSubjects  = 11
	ExitCodeStrictApprovers = 12
)

const exitCodeErrorMessageTemplateConstant = "exit code %d: %s"

// CommandOptions captures the configurable parameters for one report run.
type CommandOptions struct {
	Repositories    []string
	Organization    string
	WindowStart     string
	WindowEnd       string
	BaseBranch      string
	TicketPattern   string
	TicketURLPrefix string
	ReportPrefix    string
	CloneRoot       string
	ReportDirectory string
	StrictTickets   bool
	StrictSubjects  bool
	StrictApprovers bool
	DebugOutput     bool
}

// PullRequestRecord is one merged pull request after enrichment.
type PullRequestRecord struct {
	Number           int
	URL              string
	MergedAt         string
	MergeCommitSHA   string
	Author           string
	Subject          string
	Approvers        []string
	Tickets          []string
	SubjectFromTitle bool
	NonAncestorMerge bool
}

// QualityCounters accumulates per-repository data quality tallies.
type QualityCounters struct {
	MissingTickets    int
	MissingSubjects   int
	MissingApprovers  int
	NonAncestorMerges int
}

// RecordQuality updates the counters from one enriched record.
func (counters *QualityCounters) RecordQuality(record PullRequestRecord) {
	if len(record.Tickets) == 0 {
		counters.MissingTickets++
	}
	if record.SubjectFromTitle {
		counters.MissingSubjects++
	}
	if len(record.Approvers) == 0 {
		counters.MissingApprovers++
	}
	if record.NonAncestorMerge {
		counters.NonAncestorMerges++
	}
}

// ExitCodeError carries a process exit code alongside the underlying failure.
type ExitCodeError struct {
	Code  int
	Cause error
}

// Error describes the failure with its exit code.
func (exitError ExitCodeError) Error() string {
	return fmt.Sprintf(exitCodeErrorMessageTemplateConstant, exitError.Code, exitError.Cause)
}

// Unwrap exposes the underlying failure.
func (exitError ExitCodeError) Unwrap() error {
	return exitError.Cause
}
