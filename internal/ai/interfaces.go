package ai

import (
	"context"

	"skillgap/internal/types"
)

// Provider is an LLM backend for the two analysis calls.
// Each call makes exactly one request and reports how it ended; retrying on
// safety blocks is the caller's job.
type Provider interface {
	RefineSkills(ctx context.Context, input types.RefineInput) Outcome[types.RefinedProfile]
	Coach(ctx context.Context, input types.CoachInput) Outcome[types.CoachingPlan]
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
