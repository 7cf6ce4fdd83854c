package ai

import (
	"context"
	"fmt"

	"skillgap/internal/errors"
	"skillgap/internal/sanitize"
)

// MaxSanitizeAttempts bounds the number of LLM calls one operation may make
const MaxSanitizeAttempts = 3

// AttemptFunc performs one LLM call on the (possibly redacted) texts
type AttemptFunc[T any] func(ctx context.Context, texts []string) Outcome[T]

// AttemptObserver is told about every attempt the controller makes
type AttemptObserver interface {
	RecordSanitizeAttempt(ctx context.Context, operation string, attempt int, status string)
}

// SanitizeRetry retries safety-blocked calls on progressively redacted input
type SanitizeRetry struct {
	maxChars int
	logger   *errors.Logger
	observer AttemptObserver
}

// NewSanitizeRetry creates a controller. maxChars <= 0 selects sanitize.DefaultMaxChars;
// observer may be nil.
func NewSanitizeRetry(maxChars int, logger *errors.Logger, observer AttemptObserver) *SanitizeRetry {
	if maxChars <= 0 {
		maxChars = sanitize.DefaultMaxChars
	}
	return &SanitizeRetry{maxChars: maxChars, logger: logger, observer: observer}
}

// Run calls fn with the raw texts, then with texts redacted at level 1 and 2 while the
// model keeps blocking on safety grounds. It returns the value and the number of attempts used.
func Run[T any](ctx context.Context, s *SanitizeRetry, operation string, texts []string, fn AttemptFunc[T]) (T, int, error) {
	var zero T

	for attempt := 1; attempt <= MaxSanitizeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt - 1, err
		}

		input := texts
		if level := attempt - 1; level > sanitize.LevelNone {
			input = make([]string, len(texts))
			for i, t := range texts {
				input[i] = sanitize.Redact(t, level, s.maxChars)
			}
		}

		outcome := fn(ctx, input)
		s.record(ctx, operation, attempt, outcome.Status)

		switch outcome.Status {
		case StatusOK:
			return outcome.Value, attempt, nil

		case StatusSafetyBlocked:
			if attempt < MaxSanitizeAttempts {
				s.logger.Warn("AI reply blocked by safety filters, retrying with redacted input",
					"operation", operation,
					"attempt", attempt,
					"next_redaction_level", attempt)
				continue
			}

		case StatusShapeError:
			return zero, attempt, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
				fmt.Sprintf("The AI reply for %s was not in the expected format", operation), outcome.Err).
				WithContext("attempt", attempt)

		default:
			return zero, attempt, errors.NewAIError(errors.ErrCodeAIServiceFailed,
				fmt.Sprintf("The AI service failed during %s", operation), outcome.Err).
				WithContext("attempt", attempt)
		}
	}

	s.logger.Warn("AI reply still blocked after all redaction levels",
		"operation", operation,
		"attempts", MaxSanitizeAttempts)

	return zero, MaxSanitizeAttempts, errors.NewAIError(errors.ErrCodeAISafetyBlocked,
		"The AI safety filters rejected the documents even after removing contact details. "+
			"Please remove sensitive or personal content and try again", nil).
		WithContext("operation", operation).
		WithContext("attempts", MaxSanitizeAttempts)
}

func (s *SanitizeRetry) record(ctx context.Context, operation string, attempt int, status Status) {
	s.logger.Debug("AI attempt finished",
		"operation", operation,
		"attempt", attempt,
		"status", status.String())
	if s.observer != nil {
		s.observer.RecordSanitizeAttempt(ctx, operation, attempt, status.String())
	}
}
