package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// runIDContextKey stores the identifier of the current pipeline run.
const runIDContextKey contextKey = "run_id"

// NewRunID generates a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID returns a context carrying the given run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunIDFromContext extracts the run ID, or "" if none is set.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if runID, ok := ctx.Value(runIDContextKey).(string); ok {
		return runID
	}
	return ""
}
