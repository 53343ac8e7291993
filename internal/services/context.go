package services

import "context"

type contextKey string

const (
	episodeIDKey contextKey = "episode_id"
	stageKey     contextKey = "stage"
	runIDKey     contextKey = "run_id"
)

// WithEpisodeID annotates context with the ledger episode identifier.
func WithEpisodeID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, episodeIDKey, id)
}

// EpisodeIDFromContext extracts the episode identifier if present.
func EpisodeIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(episodeIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with a processing run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
