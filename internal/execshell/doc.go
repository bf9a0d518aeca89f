// Package execshell provides shared helpers for invoking git and the GitHub
// CLI as external processes. It wraps os/exec behind ShellExecutor with
// structured logging of each command's lifecycle, exposes typed errors for
// non-zero exits and execution failures, and accepts an observer hook for
// console progress reporting.
package execshell
