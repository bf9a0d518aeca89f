package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaximumAttemptsConstant         = 5
	defaultBaseDelaySecondsConstant        = 5
	exhaustedErrorTemplateConstant         = "%s failed after %d attempts: %s"
	operationNotConfiguredMessageConstant  = "retry operation not configured"
	classifierNotConfiguredMessageConstant = "retry classifier not configured"
	backoffDelayDoublingFactorConstant     = 2
)

// Classification describes how a failed attempt should be handled.
type Classification int

// Supported classifications.
const (
	ClassificationPermanent Classification = iota
	ClassificationRetryable
)

// Classifier inspects an attempt failure and decides whether it may be retried.
type Classifier func(failure error) Classification

// Sleeper abstracts delay injection between attempts for deterministic testing.
type Sleeper interface {
	Sleep(delay time.Duration)
}

// SystemSleeper implements Sleeper using time.Sleep.
type SystemSleeper struct{}

// Sleep blocks for the requested delay.
func (SystemSleeper) Sleep(delay time.Duration) {
	time.Sleep(delay)
}

// ExhaustedError reports that every permitted attempt failed with a retryable error.
type ExhaustedError struct {
	OperationName string
	Attempts      int
	LastFailure   error
}

// Error describes the exhausted retry budget including the final failure.
func (exhaustedError ExhaustedError) Error() string {
	return fmt.Sprintf(exhaustedErrorTemplateConstant, exhaustedError.OperationName, exhaustedError.Attempts, exhaustedError.LastFailure)
}

// Unwrap exposes the final attempt's failure.
func (exhaustedError ExhaustedError) Unwrap() error {
	return exhaustedError.LastFailure
}

// Policy retries an operation with a doubling delay between attempts.
type Policy struct {
	MaximumAttempts int
	BaseDelay       time.Duration
	Classifier      Classifier
	Sleeper         Sleeper
}

// NewDefaultPolicy constructs the production policy: five attempts with a five second base delay.
func NewDefaultPolicy(classifier Classifier) Policy {
	return Policy{
		MaximumAttempts: defaultMaximumAttemptsConstant,
		BaseDelay:       defaultBaseDelaySecondsConstant * time.Second,
		Classifier:      classifier,
		Sleeper:         SystemSleeper{},
	}
}

// Execute runs the operation until it succeeds, fails permanently, or the attempt budget is exhausted.
func (policy Policy) Execute(executionContext context.Context, operationName string, operation func(executionContext context.Context) error) error {
	if operation == nil {
		return fmt.Errorf(operationNotConfiguredMessageConstant)
	}
	if policy.Classifier == nil {
		return fmt.Errorf(classifierNotConfiguredMessageConstant)
	}

	maximumAttempts := policy.MaximumAttempts
	if maximumAttempts <= 0 {
		maximumAttempts = defaultMaximumAttemptsConstant
	}

	sleeper := policy.Sleeper
	if sleeper == nil {
		sleeper = SystemSleeper{}
	}

	delay := policy.BaseDelay
	var lastFailure error

	for attemptNumber := 1; attemptNumber <= maximumAttempts; attemptNumber++ {
		attemptFailure := operation(executionContext)
		if attemptFailure == nil {
			return nil
		}

		if policy.Classifier(attemptFailure) == ClassificationPermanent {
			return attemptFailure
		}

		lastFailure = attemptFailure
		if attemptNumber == maximumAttempts {
			break
		}

		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		sleeper.Sleep(delay)
		delay *= backoffDelayDoublingFactorConstant
	}

	return ExhaustedError{OperationName: operationName, Attempts: maximumAttempts, LastFailure: lastFailure}
}
