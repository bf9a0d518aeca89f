// Package audit builds merged pull request compliance reports: it synchronizes
// repository clones, collects merged pull requests from the GitHub API, enriches
// them with commit subjects, approvers, and ticket references, and writes
// per-repository CSV reports with spreadsheet renderings.
package audit
