package logging

import (
	"context"
	"log/slog"

	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEpisodeID is the standardized structured logging key for ledger episode identifiers.
	FieldEpisodeID = "episode_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldFeed is the standardized structured logging key for feed names or URLs.
	FieldFeed = "feed"
	// FieldRunID is the standardized structured logging key for processing run identifiers.
	FieldRunID = "run_id"
	// FieldEventType is the standardized structured logging key for machine-readable event tags.
	FieldEventType = "event_type"
	// FieldAttempt is the standardized structured logging key for retry attempt counters.
	FieldAttempt = "attempt"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.EpisodeIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldEpisodeID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

// WithEpisodeID is a convenience wrapper pairing services context annotation
// with logging extraction.
func WithEpisodeID(ctx context.Context, id int64) context.Context {
	return services.WithEpisodeID(ctx, id)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}
