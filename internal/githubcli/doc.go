// Package githubcli wraps GitHub CLI invocations for pull request, review, and commit queries.
package githubcli
