// Package report persists merged pull request rows as per-repository CSV files
// and regenerates their spreadsheet renderings.
package report
