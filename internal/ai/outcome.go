package ai

// Status tags the result of a single LLM attempt
type Status int

const (
	StatusOK Status = iota
	StatusSafetyBlocked
	StatusShapeError
	StatusServiceError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSafetyBlocked:
		return "safety_blocked"
	case StatusShapeError:
		return "shape_error"
	case StatusServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one attempt. Value is only meaningful when Status is StatusOK;
// Err carries the AppError describing any other status.
type Outcome[T any] struct {
	Status Status
	Value  T
	Usage  *TokenUsage
	Err    error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func ok[T any](value T, usage *TokenUsage) Outcome[T] {
	return Outcome[T]{Status: StatusOK, Value: value, Usage: usage}
}

func failed[T any](status Status, usage *TokenUsage, err error) Outcome[T] {
	return Outcome[T]{Status: status, Usage: usage, Err: err}
}
