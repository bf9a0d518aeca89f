package retry

import "strings"

// transientFailurePhrases lists the substrings that mark an API failure as retryable.
// Anything not matching one of these phrases is treated as permanent.
var transientFailurePhrases = []string{
	"rate limit",
	"api rate limit exceeded",
	"secondary rate limit",
	"403 forbidden",
	"connection reset",
	"connection refused",
	"timeout",
	"timed out",
	"tls handshake",
	"temporary failure",
	"502",
	"503",
	"bad gateway",
	"service unavailable",
}

// ClassifyTransientFailure reports whether the failure text matches a known transient phrase.
func ClassifyTransientFailure(failure error) Classification {
	if failure == nil {
		return ClassificationPermanent
	}

	failureText := strings.ToLower(failure.Error())
	for _, transientPhrase := range transientFailurePhrases {
		if strings.Contains(failureText, transientPhrase) {
			return ClassificationRetryable
		}
	}
	return ClassificationPermanent
}
