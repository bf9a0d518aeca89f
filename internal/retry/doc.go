// Package retry implements the bounded exponential-backoff policy applied to
// every hosting API call: a fixed attempt budget, a delay that doubles per
// attempt, and a substring classifier separating transient failures from
// permanent ones.
package retry
